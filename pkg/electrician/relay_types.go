package electrician

import "context"

// RelayRequest is the byte-level publish envelope.
type RelayRequest struct {
	Topic   string
	Body    []byte
	Headers map[string]string
}

// RelayClient is what plugins publish exchange records through.
type RelayClient interface {
	Publish(ctx context.Context, rr RelayRequest) error
}
