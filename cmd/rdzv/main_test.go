package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"commlink.dev/rendezvous/rendezvous"
)

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_NoArgs(t *testing.T) {
	code, _, stderr := runCLI(t)
	if code != 2 {
		t.Fatalf("exit code: got %d want 2", code)
	}
	if !strings.Contains(stderr, "Usage:") {
		t.Fatalf("expected usage on stderr, got %q", stderr)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, stderr := runCLI(t, "bogus")
	if code != 2 {
		t.Fatalf("exit code: got %d want 2", code)
	}
	if !strings.Contains(stderr, "unknown command") {
		t.Fatalf("stderr: %q", stderr)
	}
}

func TestCreateIDAndFingerprint(t *testing.T) {
	idPath := filepath.Join(t.TempDir(), "id.bin")

	code, stdout, stderr := runCLI(t, "create-id", "--out", idPath)
	if code != 0 {
		t.Fatalf("create-id failed: %s", stderr)
	}
	fingerprint := strings.TrimSpace(stdout)
	if fingerprint == "" {
		t.Fatalf("expected fingerprint on stdout")
	}

	raw, err := os.ReadFile(idPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(raw) != rendezvous.UniqueIDBytes {
		t.Fatalf("id file length: got %d want %d", len(raw), rendezvous.UniqueIDBytes)
	}

	code, stdout, stderr = runCLI(t, "fingerprint", idPath)
	if code != 0 {
		t.Fatalf("fingerprint failed: %s", stderr)
	}
	if strings.TrimSpace(stdout) != fingerprint {
		t.Fatalf("fingerprint mismatch: %q vs %q", strings.TrimSpace(stdout), fingerprint)
	}
}

func TestTicketSignAndVerify(t *testing.T) {
	dir := t.TempDir()
	idPath := filepath.Join(dir, "id.bin")
	ticketPath := filepath.Join(dir, "job.ticket")

	if code, _, stderr := runCLI(t, "create-id", "--out", idPath); code != 0 {
		t.Fatalf("create-id failed: %s", stderr)
	}

	seed := strings.Repeat("ab", 32)
	code, _, stderr := runCLI(t, "ticket", "sign",
		"--job", "job-cli", "--size", "4", "--id", idPath,
		"--seed-hex", seed, "--out", ticketPath)
	if code != 0 {
		t.Fatalf("ticket sign failed: %s", stderr)
	}

	code, stdout, stderr := runCLI(t, "ticket", "verify", ticketPath)
	if code != 0 {
		t.Fatalf("ticket verify failed: %s", stderr)
	}
	if !strings.Contains(stdout, "job: job-cli") || !strings.Contains(stdout, "group-size: 4") {
		t.Fatalf("unexpected verify output: %q", stdout)
	}

	// Tampering must fail verification.
	data, err := os.ReadFile(ticketPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	tampered := bytes.Replace(data, []byte("Group-Size: 4"), []byte("Group-Size: 8"), 1)
	tamperedPath := filepath.Join(dir, "tampered.ticket")
	if err := os.WriteFile(tamperedPath, tampered, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if code, _, _ := runCLI(t, "ticket", "verify", tamperedPath); code == 0 {
		t.Fatalf("tampered ticket verified")
	}
}

func TestPublishFetchWait_FileBackend(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "exchange")
	payloadPath := filepath.Join(dir, "payload")
	if err := os.WriteFile(payloadPath, []byte("hello exchange"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	code, stdout, stderr := runCLI(t, "publish",
		"--backend", "file", "--file-root", root, "--key", "job-pub", payloadPath)
	if code != 0 {
		t.Fatalf("publish failed: %s", stderr)
	}
	if strings.TrimSpace(stdout) != "job-pub" {
		t.Fatalf("publish output: %q", stdout)
	}

	code, stdout, stderr = runCLI(t, "fetch",
		"--backend", "file", "--file-root", root, "--key", "job-pub")
	if code != 0 {
		t.Fatalf("fetch failed: %s", stderr)
	}
	if stdout != "hello exchange" {
		t.Fatalf("fetch payload: %q", stdout)
	}

	// The key already exists, so wait returns immediately.
	code, stdout, stderr = runCLI(t, "wait",
		"--backend", "file", "--file-root", root, "--key", "job-pub",
		"--timeout", "2s", "--poll", "10ms")
	if code != 0 {
		t.Fatalf("wait failed: %s", stderr)
	}
	if stdout != "hello exchange" {
		t.Fatalf("wait payload: %q", stdout)
	}

	if code, _, _ = runCLI(t, "fetch",
		"--backend", "file", "--file-root", root, "--key", "absent"); code == 0 {
		t.Fatalf("fetch of absent key succeeded")
	}
}
