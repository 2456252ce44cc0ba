// Package jwtgate rejects requests without a valid HS256 bearer token.
//
// On success the token subject is forwarded to the origin in
// X-Auth-Subject; a client-supplied X-Auth-Subject is always dropped first.
// On failure the exchange takes the error path with status 401.
package jwtgate

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joeydtaylor/steeze-hook/pkg/exchange"
	"github.com/joeydtaylor/steeze-hook/pkg/hook"
	"github.com/joeydtaylor/steeze-hook/pkg/plugin"
	"go.uber.org/zap"
)

const SubjectHeader = "X-Auth-Subject"

func init() { plugin.Register("jwtgate", Bootstrap) }

var (
	errNoToken  = errors.New("missing bearer token")
	errNoSecret = errors.New("jwtgate: signing secret is empty")
)

// Gate validates bearer tokens.
type Gate struct {
	secret       []byte
	parser       *jwt.Parser
	skipInternal bool
	strip        bool
	log          *zap.Logger
}

func Bootstrap(env plugin.Env, args []string) error {
	g, err := Parse(args)
	if err != nil {
		return err
	}
	g.log = env.Log
	return env.Registry.RegisterGlobal(hook.ReadRequestHeader, g.Handle)
}

// Parse builds a Gate from argv. The secret is read from the environment
// variable named by --secret-env.
func Parse(args []string) (*Gate, error) {
	fs := plugin.FlagSet(args)
	secretEnv := fs.String("secret-env", "JWT_SECRET", "environment variable holding the HS256 secret")
	issuer := fs.String("issuer", "", "required iss claim")
	audience := fs.String("audience", "", "required aud claim")
	leeway := fs.Duration("leeway", 30*time.Second, "clock skew allowed on exp/nbf/iat")
	skipInternal := fs.Bool("skip-internal", false, "let internal requests through unchecked")
	strip := fs.Bool("strip-token", false, "remove the Authorization header before the origin sees it")
	if err := plugin.ParseFlags(fs, args); err != nil {
		return nil, err
	}
	secret := os.Getenv(*secretEnv)
	if secret == "" {
		return nil, fmt.Errorf("%w (env %s)", errNoSecret, *secretEnv)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(*leeway),
		jwt.WithExpirationRequired(),
	}
	if *issuer != "" {
		opts = append(opts, jwt.WithIssuer(*issuer))
	}
	if *audience != "" {
		opts = append(opts, jwt.WithAudience(*audience))
	}
	return &Gate{
		secret:       []byte(secret),
		parser:       jwt.NewParser(opts...),
		skipInternal: *skipInternal,
		strip:        *strip,
		log:          zap.NewNop(),
	}, nil
}

// Verify returns the subject of a valid token.
func (g *Gate) Verify(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	tok, err := g.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return g.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !tok.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

func bearer(h string) (string, error) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
		return "", errNoToken
	}
	return strings.TrimSpace(tok), nil
}

func (g *Gate) Handle(v *exchange.View) hook.Outcome {
	if err := v.DelHeader(SubjectHeader); err != nil {
		g.log.Warn("jwtgate: clear subject header", zap.Error(err))
		return hook.Error
	}
	if g.skipInternal {
		if internal, err := v.IsInternal(); err == nil && internal {
			return hook.Continue
		}
	}

	h, _, err := v.Header("Authorization")
	if err != nil {
		g.log.Warn("jwtgate: read authorization", zap.Error(err))
		return hook.Error
	}
	sub, err := g.check(h)
	if err != nil {
		g.log.Info("jwtgate: rejected",
			zap.Uint64("txn", uint64(v.Txn())),
			zap.Error(err),
		)
		if err := v.SetStatus(http.StatusUnauthorized); err != nil {
			g.log.Warn("jwtgate: set status", zap.Error(err))
		}
		return hook.Error
	}

	if err := v.SetHeader(SubjectHeader, sub); err != nil {
		g.log.Warn("jwtgate: set subject", zap.Error(err))
		return hook.Error
	}
	if g.strip {
		if err := v.DelHeader("Authorization"); err != nil {
			g.log.Warn("jwtgate: strip token", zap.Error(err))
			return hook.Error
		}
	}
	return hook.Continue
}

func (g *Gate) check(h string) (string, error) {
	raw, err := bearer(h)
	if err != nil {
		return "", err
	}
	return g.Verify(raw)
}
