package filestore

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"commlink.dev/rendezvous/exchange"
	"commlink.dev/rendezvous/exchange/testkit"
)

func TestFilestoreConformance(t *testing.T) {
	testkit.RunExchangeConformance(t, func(t *testing.T) exchange.Exchange {
		st, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return st
	})
}

func TestNew_RequiresRoot(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestPublish_ObjectIsReadOnly(t *testing.T) {
	dir := t.TempDir()
	st, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := st.Publish("job", []byte("ticket")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	fi, err := os.Stat(filepath.Join(dir, "job.rdzv"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if fi.Mode().Perm()&0o222 != 0 {
		t.Fatalf("published object is writable: %v", fi.Mode())
	}
}

func TestPublish_ConcurrentDifferingPayloads(t *testing.T) {
	payloads := [][]byte{[]byte("first"), []byte("second")}

	for i := 0; i < 25; i++ {
		st, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		errs := make([]error, len(payloads))
		var start, wg sync.WaitGroup
		start.Add(1)
		for j := range payloads {
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				start.Wait()
				errs[j] = st.Publish("job", payloads[j])
			}(j)
		}
		start.Done()
		wg.Wait()

		var winner []byte
		for j, err := range errs {
			switch err {
			case nil:
				if winner != nil {
					t.Fatalf("iteration %d: both differing publishes succeeded", i)
				}
				winner = payloads[j]
			case exchange.ErrImmutable:
			default:
				t.Fatalf("iteration %d: unexpected error %v", i, err)
			}
		}
		if winner == nil {
			t.Fatalf("iteration %d: no publish succeeded: %v", i, errs)
		}
		got, err := st.Fetch("job")
		if err != nil {
			t.Fatalf("iteration %d: Fetch: %v", i, err)
		}
		if !bytes.Equal(got, winner) {
			t.Fatalf("iteration %d: stored %q, want winner %q", i, got, winner)
		}
	}
}

func TestPublish_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	st, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := st.Publish("job", []byte("ticket")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := st.Publish("job", []byte("other")); err != exchange.ErrImmutable {
		t.Fatalf("overwrite: got %v want ErrImmutable", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "job.rdzv" {
			t.Fatalf("leftover file %q", e.Name())
		}
	}
}

func TestSharedRootAcrossStores(t *testing.T) {
	dir := t.TempDir()
	a, err := New(dir)
	if err != nil {
		t.Fatalf("New(a): %v", err)
	}
	b, err := New(dir)
	if err != nil {
		t.Fatalf("New(b): %v", err)
	}

	if err := a.Publish("shared", []byte("from-a")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	got, err := b.Fetch("shared")
	if err != nil {
		t.Fatalf("Fetch via second store: %v", err)
	}
	if string(got) != "from-a" {
		t.Fatalf("payload mismatch across stores")
	}
}
