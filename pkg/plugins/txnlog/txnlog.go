// Package txnlog publishes one record per exchange when it closes.
//
// A global read-request-header handler captures what is only known early
// (arrival time, pristine URL) and registers an exchange-scoped txn-close
// handler that fills in the rest and publishes through the relay.
package txnlog

import (
	"context"
	"time"

	"github.com/joeydtaylor/steeze-hook/pkg/codec"
	"github.com/joeydtaylor/steeze-hook/pkg/electrician"
	"github.com/joeydtaylor/steeze-hook/pkg/exchange"
	"github.com/joeydtaylor/steeze-hook/pkg/hook"
	"github.com/joeydtaylor/steeze-hook/pkg/plugin"
	"go.uber.org/zap"
)

func init() { plugin.Register("txnlog", Bootstrap) }

// Record is the published summary of one exchange.
type Record struct {
	Txn         uint64    `json:"txn"`
	Start       time.Time `json:"start"`
	DurationMS  float64   `json:"duration_ms"`
	Method      string    `json:"method"`
	PristineURL string    `json:"pristine_url"`
	URL         string    `json:"url"`
	Status      int       `json:"status"`
	Client      string    `json:"client,omitempty"`
	Internal    bool      `json:"internal"`
}

// Logger builds and publishes records.
type Logger struct {
	reg   *hook.Registry
	relay electrician.RelayClient
	codec codec.Codec
	topic string
	ctx   context.Context
	log   *zap.Logger
	now   func() time.Time
}

func Bootstrap(env plugin.Env, args []string) error {
	fs := plugin.FlagSet(args)
	topic := fs.String("topic", "exchanges", "relay topic records are published on")
	format := fs.String("codec", "json", "record encoding: json | json-pretty")
	if err := plugin.ParseFlags(fs, args); err != nil {
		return err
	}
	c, err := codec.Lookup(*format)
	if err != nil {
		return err
	}
	l := New(env.Ctx, env.Registry, env.Relay, c, *topic)
	l.log = env.Log
	return env.Registry.RegisterGlobal(hook.ReadRequestHeader, l.Handle)
}

func New(ctx context.Context, reg *hook.Registry, relay electrician.RelayClient, c codec.Codec, topic string) *Logger {
	if ctx == nil {
		ctx = context.Background()
	}
	if c == nil {
		c = codec.JSONStrict
	}
	if relay == nil {
		relay = electrician.NewLogRelay(nil)
	}
	return &Logger{
		reg:   reg,
		relay: relay,
		codec: c,
		topic: topic,
		ctx:   ctx,
		log:   zap.NewNop(),
		now:   time.Now,
	}
}

func (l *Logger) Handle(v *exchange.View) hook.Outcome {
	rec := Record{Txn: uint64(v.Txn()), Start: l.now()}
	rec.PristineURL, _ = v.PristineURL()
	if addr, err := v.ClientAddr(); err == nil && addr.IsValid() {
		rec.Client = addr.String()
	}
	rec.Internal, _ = v.IsInternal()

	err := l.reg.RegisterForExchange(v, hook.TxnClose, func(cv *exchange.View) hook.Outcome {
		l.finish(cv, rec)
		return hook.Continue
	})
	if err != nil {
		// Logging must never fail the exchange.
		l.log.Warn("txnlog: register close handler", zap.Uint64("txn", rec.Txn), zap.Error(err))
	}
	return hook.Continue
}

func (l *Logger) finish(v *exchange.View, rec Record) {
	rec.DurationMS = float64(l.now().Sub(rec.Start).Microseconds()) / 1000
	rec.Method, _ = v.Method()
	rec.URL, _ = v.URL()
	rec.Status, _ = v.ResponseStatus()

	b, err := l.codec.Marshal(rec)
	if err != nil {
		l.log.Warn("txnlog: encode", zap.Uint64("txn", rec.Txn), zap.Error(err))
		return
	}
	err = l.relay.Publish(l.ctx, electrician.RelayRequest{
		Topic:   l.topic,
		Body:    b,
		Headers: map[string]string{"content-type": l.codec.ContentType()},
	})
	if err != nil {
		l.log.Warn("txnlog: publish", zap.Uint64("txn", rec.Txn), zap.Error(err))
	}
}
