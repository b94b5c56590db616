package bridge

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"commlink.dev/rendezvous/exchange"
	"commlink.dev/rendezvous/exchange/memstore"
	"commlink.dev/rendezvous/rendezvous"
)

func newTestClient(t *testing.T, srv *Server) *Client {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	s := grpc.NewServer()
	RegisterBridgeServer(s, srv)

	go func() {
		_ = s.Serve(lis)
	}()
	t.Cleanup(s.Stop)

	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })

	return &Client{cc: cc, client: NewBridgeClient(cc), Timeout: 2 * time.Second}
}

func TestBridge_CreateUniqueID(t *testing.T) {
	client := newTestClient(t, &Server{Bootstrap: &rendezvous.Bootstrap{}})

	a, err := client.CreateUniqueID()
	if err != nil {
		t.Fatalf("CreateUniqueID: %v", err)
	}
	if len(a.Bytes()) != rendezvous.UniqueIDBytes {
		t.Fatalf("id length: got %d want %d", len(a.Bytes()), rendezvous.UniqueIDBytes)
	}
	b, err := client.CreateUniqueID()
	if err != nil {
		t.Fatalf("CreateUniqueID: %v", err)
	}
	if a == b {
		t.Fatalf("two calls returned identical ids")
	}
}

func TestBridge_IngestInfoRoundTrip(t *testing.T) {
	client := newTestClient(t, &Server{Bootstrap: &rendezvous.Bootstrap{}})

	if _, ok, err := client.Info(); err != nil || ok {
		t.Fatalf("Info before ingest: ok=%v err=%v", ok, err)
	}

	id, err := client.CreateUniqueID()
	if err != nil {
		t.Fatalf("CreateUniqueID: %v", err)
	}
	want := rendezvous.Info{Rank: 1, Size: 2, ID: id}
	if err := client.IngestInfo(want); err != nil {
		t.Fatalf("IngestInfo: %v", err)
	}

	got, ok, err := client.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if !ok {
		t.Fatalf("Info not ok after ingest")
	}
	if got.Rank != 1 || got.Size != 2 || !bytes.Equal(got.ID[:], id[:]) {
		t.Fatalf("Info mismatch: %+v", got)
	}

	// Identical re-ingest is accepted; a differing one is a conflict.
	if err := client.IngestInfo(want); err != nil {
		t.Fatalf("idempotent IngestInfo: %v", err)
	}
	err = client.IngestInfo(rendezvous.Info{Rank: 0, Size: 2, ID: id})
	if !rendezvous.IsKind(err, rendezvous.KindConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestBridge_IngestInfoValidation(t *testing.T) {
	client := newTestClient(t, &Server{Bootstrap: &rendezvous.Bootstrap{}})

	err := client.IngestInfo(rendezvous.Info{Rank: 4, Size: 2})
	if !rendezvous.IsKind(err, rendezvous.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestBridge_CommLibFailure(t *testing.T) {
	client := newTestClient(t, &Server{
		Bootstrap: &rendezvous.Bootstrap{},
		Generator: failingGenerator{},
	})

	_, err := client.CreateUniqueID()
	if !rendezvous.IsKind(err, rendezvous.KindCommLib) {
		t.Fatalf("expected CommLib, got %v", err)
	}
}

type failingGenerator struct{}

func (failingGenerator) Generate() (rendezvous.UniqueID, error) {
	return rendezvous.UniqueID{}, errOffline
}

var errOffline = &rendezvous.Error{Kind: rendezvous.KindInternal, Message: "library offline"}

func TestBridge_ExchangeRoundTrip(t *testing.T) {
	client := newTestClient(t, &Server{
		Bootstrap: &rendezvous.Bootstrap{},
		Exchange:  memstore.New(),
	})

	payload := []byte("ticket payload")
	if err := client.Publish("job-x", payload); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !client.Has("job-x") {
		t.Fatalf("Has: expected true")
	}
	got, err := client.Fetch("job-x")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch")
	}

	if _, err := client.Fetch("missing"); !exchange.IsNotFound(err) {
		t.Fatalf("Fetch missing: got %v want ErrNotFound", err)
	}
	if err := client.Publish("job-x", []byte("different")); err != exchange.ErrImmutable {
		t.Fatalf("overwrite: got %v want ErrImmutable", err)
	}
	if err := client.Publish("bad/key", payload); err != exchange.ErrInvalidKey {
		t.Fatalf("invalid key: got %v want ErrInvalidKey", err)
	}
}

func TestDial_TimeoutBoundsBlockingDial(t *testing.T) {
	// Reserve a port with no server behind it.
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	target := lis.Addr().String()
	_ = lis.Close()

	start := time.Now()
	client, err := Dial(target, DialOptions{Timeout: 200 * time.Millisecond})
	if err == nil {
		_ = client.Close()
		t.Fatalf("expected dial failure for dead target")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("dial did not respect timeout: took %v", elapsed)
	}
}

func TestBridge_MissingExchange(t *testing.T) {
	client := newTestClient(t, &Server{Bootstrap: &rendezvous.Bootstrap{}})
	if err := client.Publish("job", []byte("x")); err == nil {
		t.Fatalf("expected failure without an exchange")
	}
}
