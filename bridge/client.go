package bridge

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"commlink.dev/rendezvous/rendezvous"
)

// Client talks to a Bridge gRPC service. Its exchange methods implement
// exchange.Exchange, so a remote bridge daemon can serve as the rendezvous
// point for processes that share no filesystem.
type Client struct {
	cc     *grpc.ClientConn
	client BridgeClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout bounds the initial dial when non-zero. The dial then blocks
	// until the connection is established or the timeout elapses; a zero
	// Timeout returns immediately and connects lazily on first RPC.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.Timeout > 0 {
		// DialContext is non-blocking by default, which would make the
		// deadline below a no-op.
		dialOpts = append(dialOpts, grpc.WithBlock())
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewBridgeClient(cc), Timeout: 0}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// CreateUniqueID asks the bridge to generate a fresh identifier.
func (c *Client) CreateUniqueID() (rendezvous.UniqueID, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.CreateUniqueID(ctx, wrapperspb.Bytes(nil))
	if err != nil {
		return rendezvous.UniqueID{}, mapBootstrapRPC(err)
	}
	return rendezvous.UniqueIDFromBytes(reply.GetValue())
}

// IngestInfo stages the triple in the bridge's bootstrap state.
func (c *Client) IngestInfo(info rendezvous.Info) error {
	frame, err := info.Encode()
	if err != nil {
		return err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	if _, err := c.client.IngestInfo(ctx, wrapperspb.Bytes(frame)); err != nil {
		return mapBootstrapRPC(err)
	}
	return nil
}

// Info reads back the staged triple. ok is false while nothing is ingested.
func (c *Client) Info() (info rendezvous.Info, ok bool, err error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Info(ctx, wrapperspb.Bytes(nil))
	if err != nil {
		mapped := mapBootstrapRPC(err)
		if isRPCNotFound(err) {
			return rendezvous.Info{}, false, nil
		}
		return rendezvous.Info{}, false, mapped
	}
	info, err = rendezvous.DecodeInfo(reply.GetValue())
	if err != nil {
		return rendezvous.Info{}, false, err
	}
	return info, true, nil
}

// Publish implements exchange.Exchange.
func (c *Client) Publish(key string, payload []byte) error {
	frame, err := EncodePublish(key, payload)
	if err != nil {
		return err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	if _, err := c.client.Publish(ctx, wrapperspb.Bytes(frame)); err != nil {
		return mapExchangeRPC(err)
	}
	return nil
}

// Fetch implements exchange.Exchange.
func (c *Client) Fetch(key string) ([]byte, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Fetch(ctx, wrapperspb.String(key))
	if err != nil {
		return nil, mapExchangeRPC(err)
	}
	return reply.GetValue(), nil
}

// Has implements exchange.Exchange.
func (c *Client) Has(key string) bool {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Has(ctx, wrapperspb.String(key))
	if err != nil {
		return false
	}
	return reply.GetValue()
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}
