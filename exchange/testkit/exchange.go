// Package testkit provides a conformance suite every Exchange backend runs.
package testkit

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"commlink.dev/rendezvous/exchange"
)

// NewExchange constructs a fresh, empty Exchange for a test.
// The returned Exchange MUST be isolated from other tests.
type NewExchange func(t *testing.T) exchange.Exchange

func RunExchangeConformance(t *testing.T, newEx NewExchange) {
	t.Helper()

	t.Run("PublishFetchRoundTrip", func(t *testing.T) {
		ex := newEx(t)
		want := []byte("rendezvous ticket bytes")

		if err := ex.Publish("job-a", want); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		if !ex.Has("job-a") {
			t.Fatalf("Has returned false after Publish")
		}
		got, err := ex.Fetch("job-a")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Fetch bytes mismatch")
		}
	})

	t.Run("PublishIdempotent", func(t *testing.T) {
		ex := newEx(t)
		b := []byte("same bytes")

		if err := ex.Publish("job-b", b); err != nil {
			t.Fatalf("Publish(1) failed: %v", err)
		}
		if err := ex.Publish("job-b", b); err != nil {
			t.Fatalf("Publish(2) failed: %v", err)
		}
	})

	t.Run("PublishImmutable", func(t *testing.T) {
		ex := newEx(t)
		if err := ex.Publish("job-c", []byte("first")); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		err := ex.Publish("job-c", []byte("second"))
		if err != exchange.ErrImmutable {
			t.Fatalf("overwrite: got err=%v want ErrImmutable", err)
		}
		got, err := ex.Fetch("job-c")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if string(got) != "first" {
			t.Fatalf("payload mutated by rejected overwrite")
		}
	})

	t.Run("PublishConcurrentDiffering", func(t *testing.T) {
		ex := newEx(t)
		payloads := [][]byte{[]byte("winner-a"), []byte("winner-b")}
		errs := make([]error, len(payloads))

		var wg sync.WaitGroup
		for i := range payloads {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = ex.Publish("job-race", payloads[i])
			}(i)
		}
		wg.Wait()

		// Exactly one publisher wins; the other observes immutability.
		var winner []byte
		for i, err := range errs {
			switch err {
			case nil:
				if winner != nil {
					t.Fatalf("both differing publishes succeeded")
				}
				winner = payloads[i]
			case exchange.ErrImmutable:
			default:
				t.Fatalf("Publish(%d): unexpected error %v", i, err)
			}
		}
		if winner == nil {
			t.Fatalf("no publish succeeded: %v", errs)
		}
		got, err := ex.Fetch("job-race")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if !bytes.Equal(got, winner) {
			t.Fatalf("stored payload %q does not match winner %q", got, winner)
		}
	})

	t.Run("FetchNotFound", func(t *testing.T) {
		ex := newEx(t)
		if ex.Has("missing") {
			t.Fatalf("Has returned true for missing key")
		}
		_, err := ex.Fetch("missing")
		if !exchange.IsNotFound(err) {
			t.Fatalf("Fetch missing: got err=%v want ErrNotFound", err)
		}
	})

	t.Run("RejectInvalidKey", func(t *testing.T) {
		ex := newEx(t)
		for _, key := range []string{"", "a/b", "a\\b", "a\x00b"} {
			if err := ex.Publish(key, []byte("x")); err != exchange.ErrInvalidKey {
				t.Fatalf("Publish(%q): got err=%v want ErrInvalidKey", key, err)
			}
			if _, err := ex.Fetch(key); err != exchange.ErrInvalidKey {
				t.Fatalf("Fetch(%q): got err=%v want ErrInvalidKey", key, err)
			}
			if ex.Has(key) {
				t.Fatalf("Has(%q) should be false", key)
			}
		}
	})

	t.Run("WaitSeesLatePublish", func(t *testing.T) {
		ex := newEx(t)
		want := []byte("late ticket")

		go func() {
			time.Sleep(50 * time.Millisecond)
			_ = ex.Publish("job-late", want)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		got, err := exchange.Wait(ctx, ex, "job-late", 10*time.Millisecond)
		if err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Wait bytes mismatch")
		}
	})

	t.Run("WaitHonorsContext", func(t *testing.T) {
		ex := newEx(t)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := exchange.Wait(ctx, ex, "never", 10*time.Millisecond)
		if err != context.DeadlineExceeded {
			t.Fatalf("Wait: got err=%v want DeadlineExceeded", err)
		}
	})
}
