package electrician

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// logRelay writes publishes to a zap logger instead of a relay target.
type logRelay struct {
	log *zap.Logger
}

// NewLogRelay is the fallback when no relay target is configured.
func NewLogRelay(log *zap.Logger) RelayClient {
	if log == nil {
		log = zap.NewNop()
	}
	return logRelay{log: log}
}

func (l logRelay) Publish(_ context.Context, rr RelayRequest) error {
	if rr.Topic == "" {
		return fmt.Errorf("relay: missing topic")
	}
	l.log.Info("",
		zap.String("topic", rr.Topic),
		zap.ByteString("record", rr.Body),
	)
	return nil
}
