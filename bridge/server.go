// Package bridge exposes the rendezvous operations over a narrow gRPC
// surface so out-of-process callers (typically a host scripting runtime
// driving a distributed job) can create unique ids, ingest bootstrap info,
// and move tickets through an exchange.
package bridge

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"commlink.dev/rendezvous/exchange"
	"commlink.dev/rendezvous/rendezvous"
)

// Server exposes a Bootstrap, a Generator, and an Exchange over the Bridge
// gRPC service. Generator may be nil (the package default is used);
// Exchange may be nil when the daemon serves only the bootstrap operations.
type Server struct {
	UnimplementedBridgeServer

	Bootstrap *rendezvous.Bootstrap
	Generator rendezvous.Generator
	Exchange  exchange.Exchange
}

func (s *Server) CreateUniqueID(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	_ = in
	if s == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing server")
	}
	id, err := rendezvous.CreateUniqueID(s.Generator)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(id.Bytes()), nil
}

func (s *Server) IngestInfo(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	_ = ctx
	if s == nil || s.Bootstrap == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing bootstrap")
	}
	info, err := rendezvous.DecodeInfo(in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	if err := s.Bootstrap.IngestInfo(info); err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(true), nil
}

func (s *Server) Info(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	_ = in
	if s == nil || s.Bootstrap == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing bootstrap")
	}
	info, ok := s.Bootstrap.Snapshot()
	if !ok {
		return nil, status.Error(codes.NotFound, "bootstrap info not ingested")
	}
	frame, err := info.Encode()
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(frame), nil
}

func (s *Server) Publish(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	_ = ctx
	if s == nil || s.Exchange == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing exchange")
	}
	key, payload, err := DecodePublish(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.Exchange.Publish(key, payload); err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(key), nil
}

func (s *Server) Fetch(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if s == nil || s.Exchange == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing exchange")
	}
	b, err := s.Exchange.Fetch(in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	_ = ctx
	if s == nil || s.Exchange == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing exchange")
	}
	return wrapperspb.Bool(s.Exchange.Has(in.GetValue())), nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, exchange.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, exchange.ErrInvalidKey):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, exchange.ErrImmutable):
		return status.Error(codes.AlreadyExists, err.Error())
	case rendezvous.IsKind(err, rendezvous.KindInvalidArgument),
		rendezvous.IsKind(err, rendezvous.KindWire):
		return status.Error(codes.InvalidArgument, err.Error())
	case rendezvous.IsKind(err, rendezvous.KindConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case rendezvous.IsKind(err, rendezvous.KindCommLib):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
