package bridge

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"commlink.dev/rendezvous/exchange"
	"commlink.dev/rendezvous/rendezvous"
)

func isRPCNotFound(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.NotFound
}

// mapExchangeRPC restores exchange sentinel errors from gRPC status codes.
func mapExchangeRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return exchange.ErrNotFound
	case codes.InvalidArgument:
		return exchange.ErrInvalidKey
	case codes.AlreadyExists:
		return exchange.ErrImmutable
	default:
		return err
	}
}

// mapBootstrapRPC restores rendezvous error kinds from gRPC status codes.
// The server sends its own message text, so the original Kind is recovered
// from the code; messages are preserved verbatim.
func mapBootstrapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.InvalidArgument:
		return &rendezvous.Error{Kind: rendezvous.KindInvalidArgument, Message: st.Message()}
	case codes.AlreadyExists:
		return &rendezvous.Error{Kind: rendezvous.KindConflict, Message: st.Message()}
	case codes.Unavailable:
		return &rendezvous.Error{Kind: rendezvous.KindCommLib, Message: st.Message()}
	default:
		return err
	}
}
