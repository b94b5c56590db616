package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"commlink.dev/rendezvous/bridge"
	"commlink.dev/rendezvous/exchange"
	"commlink.dev/rendezvous/exchange/registry"
	"commlink.dev/rendezvous/idutil"
	"commlink.dev/rendezvous/rendezvous"
	"commlink.dev/rendezvous/ticket"

	_ "commlink.dev/rendezvous/exchange/filestore"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "create-id":
		return cmdCreateID(args[1:], out, errOut)
	case "fingerprint":
		return cmdFingerprint(args[1:], out, errOut)
	case "ticket":
		return cmdTicket(args[1:], out, errOut)
	case "publish":
		return cmdPublish(args[1:], out, errOut)
	case "fetch":
		return cmdFetch(args[1:], out, errOut)
	case "wait":
		return cmdWait(args[1:], out, errOut)
	case "ingest":
		return cmdIngest(args[1:], out, errOut)
	case "info":
		return cmdInfo(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "rdzv: rendezvous bootstrap tool")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  rdzv create-id [--out <file>]")
	fmt.Fprintln(w, "  rdzv fingerprint <id-file>")
	fmt.Fprintln(w, "  rdzv ticket sign --job <name> --size <n> --id <id-file> --seed-hex <64hex> [--out <file>]")
	fmt.Fprintln(w, "  rdzv ticket verify <ticket-file>")
	fmt.Fprintln(w, "  rdzv publish --backend file --file-root <dir> --key <key> <file>")
	fmt.Fprintln(w, "  rdzv fetch --backend file --file-root <dir> --key <key> [--out <file>]")
	fmt.Fprintln(w, "  rdzv wait --backend file --file-root <dir> --key <key> [--timeout <d>] [--out <file>]")
	fmt.Fprintln(w, "  rdzv ingest --grpc-target <host:port> --rank <r> --ticket <ticket-file>")
	fmt.Fprintln(w, "  rdzv info --grpc-target <host:port>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - id files hold the raw identifier bytes; ticket files hold canonical signed tickets")
	fmt.Fprintln(w, "  - publish/fetch/wait also accept --backend grpc --grpc-target <host:port>")
	fmt.Fprintln(w, "  - --seed-hex must be 32 bytes (64 hex chars) ed25519 seed")
	fmt.Fprintln(w, "  - ingest verifies the ticket signature before staging the triple")
}

type commonFlags struct {
	backend      string
	listBackends bool
}

func (c *commonFlags) add(fs *flag.FlagSet) {
	fs.StringVar(&c.backend, "backend", "file", "exchange backend name")
	fs.BoolVar(&c.listBackends, "list-backends", false, "List supported backends and exit")
	registry.RegisterFlags(fs, registry.UsageCLI)
}

func (c *commonFlags) open() (exchange.Exchange, func() error, error) {
	return registry.Open(c.backend, registry.UsageCLI)
}

func printBackends(w io.Writer) {
	for _, b := range registry.List(registry.UsageCLI) {
		if b.Description == "" {
			_, _ = fmt.Fprintf(w, "%s\n", b.Name)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", b.Name, b.Description)
	}
}

func readUniqueIDFile(path string) (rendezvous.UniqueID, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return rendezvous.UniqueID{}, err
	}
	return rendezvous.UniqueIDFromBytes(b)
}

func cmdCreateID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("create-id", flag.ContinueOnError)
	fs.SetOutput(errOut)
	outPath := fs.String("out", "", "write raw identifier bytes to this file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	id, err := rendezvous.CreateUniqueID(nil)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if *outPath != "" {
		if err := os.WriteFile(*outPath, id.Bytes(), 0o600); err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		fmt.Fprintln(out, idutil.FingerprintString(id))
		return 0
	}
	fmt.Fprintln(out, id.String())
	fmt.Fprintln(out, idutil.FingerprintString(id))
	return 0
}

func cmdFingerprint(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("fingerprint", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: rdzv fingerprint <id-file>")
		return 2
	}

	id, err := readUniqueIDFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintln(out, idutil.FingerprintString(id))
	return 0
}

func cmdTicket(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: rdzv ticket <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: sign, verify")
		return 2
	}
	switch args[0] {
	case "sign":
		return cmdTicketSign(args[1:], out, errOut)
	case "verify":
		return cmdTicketVerify(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown ticket subcommand: %s\n", args[0])
		return 2
	}
}

func cmdTicketSign(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("ticket sign", flag.ContinueOnError)
	fs.SetOutput(errOut)
	job := fs.String("job", "", "job name (the exchange key)")
	size := fs.Int("size", 0, "group size")
	idPath := fs.String("id", "", "raw identifier file")
	seedHex := fs.String("seed-hex", "", "ed25519 seed, 64 hex chars")
	outPath := fs.String("out", "", "write canonical ticket to this file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *job == "" || *size < 1 || *idPath == "" || *seedHex == "" {
		fmt.Fprintln(errOut, "usage: rdzv ticket sign --job <name> --size <n> --id <id-file> --seed-hex <64hex> [--out <file>]")
		return 2
	}

	seed, err := hex.DecodeString(*seedHex)
	if err != nil || len(seed) != ed25519.SeedSize {
		fmt.Fprintln(errOut, "--seed-hex must decode to 32 bytes")
		return 2
	}
	id, err := readUniqueIDFile(*idPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	tk := &ticket.Ticket{
		Job:       *job,
		GroupSize: *size,
		ID:        id,
		CreatedAt: time.Now(),
	}
	if err := tk.SignEd25519(ed25519.NewKeyFromSeed(seed)); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	data, err := tk.Render()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if *outPath != "" {
		if err := os.WriteFile(*outPath, data, 0o644); err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		return 0
	}
	_, _ = out.Write(data)
	return 0
}

func cmdTicketVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("ticket verify", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: rdzv ticket verify <ticket-file>")
		return 2
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	tk, err := ticket.Parse(data)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if err := tk.Verify(); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "job: %s\n", tk.Job)
	fmt.Fprintf(out, "group-size: %d\n", tk.GroupSize)
	fmt.Fprintf(out, "id-fingerprint: %s\n", idutil.FingerprintString(tk.ID))
	fmt.Fprintf(out, "signature-alg: %s\n", tk.SignatureAlg)
	return 0
}

func cmdPublish(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)
	key := fs.String("key", "", "exchange key")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if *key == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: rdzv publish [common flags] --key <key> <file>")
		return 2
	}

	payload, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	ex, closeFn, err := common.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	if err := ex.Publish(*key, payload); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintln(out, *key)
	return 0
}

func cmdFetch(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)
	key := fs.String("key", "", "exchange key")
	outPath := fs.String("out", "", "write payload to this file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if *key == "" {
		fmt.Fprintln(errOut, "usage: rdzv fetch [common flags] --key <key> [--out <file>]")
		return 2
	}

	ex, closeFn, err := common.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	payload, err := ex.Fetch(*key)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	return writePayload(payload, *outPath, out, errOut)
}

func cmdWait(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("wait", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)
	key := fs.String("key", "", "exchange key")
	timeout := fs.Duration("timeout", 5*time.Minute, "give up after this long")
	poll := fs.Duration("poll", 250*time.Millisecond, "poll interval")
	outPath := fs.String("out", "", "write payload to this file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if *key == "" {
		fmt.Fprintln(errOut, "usage: rdzv wait [common flags] --key <key> [--timeout <d>] [--out <file>]")
		return 2
	}

	ex, closeFn, err := common.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	payload, err := exchange.Wait(ctx, ex, *key, *poll)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	return writePayload(payload, *outPath, out, errOut)
}

func writePayload(payload []byte, outPath string, out io.Writer, errOut io.Writer) int {
	if outPath != "" {
		if err := os.WriteFile(outPath, payload, 0o644); err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		return 0
	}
	_, _ = out.Write(payload)
	return 0
}

func cmdIngest(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(errOut)
	target := fs.String("grpc-target", "", "bridge daemon host:port")
	rank := fs.Int("rank", -1, "this process's rank")
	ticketPath := fs.String("ticket", "", "signed ticket file")
	dialTimeout := fs.Duration("grpc-dial-timeout", 5*time.Second, "dial timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *target == "" || *rank < 0 || *ticketPath == "" {
		fmt.Fprintln(errOut, "usage: rdzv ingest --grpc-target <host:port> --rank <r> --ticket <ticket-file>")
		return 2
	}

	data, err := os.ReadFile(*ticketPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	tk, err := ticket.Parse(data)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if err := tk.Verify(); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	client, err := bridge.Dial(*target, bridge.DialOptions{Timeout: *dialTimeout})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer client.Close()

	info := rendezvous.Info{Rank: *rank, Size: tk.GroupSize, ID: tk.ID}
	if err := client.IngestInfo(info); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "ingested rank %d of %d (%s)\n", info.Rank, info.Size, idutil.FingerprintString(info.ID))
	return 0
}

func cmdInfo(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(errOut)
	target := fs.String("grpc-target", "", "bridge daemon host:port")
	dialTimeout := fs.Duration("grpc-dial-timeout", 5*time.Second, "dial timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *target == "" {
		fmt.Fprintln(errOut, "usage: rdzv info --grpc-target <host:port>")
		return 2
	}

	client, err := bridge.Dial(*target, bridge.DialOptions{Timeout: *dialTimeout})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer client.Close()

	info, ok, err := client.Info()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if !ok {
		fmt.Fprintln(out, "no bootstrap info ingested")
		return 0
	}
	fmt.Fprintf(out, "rank: %d\n", info.Rank)
	fmt.Fprintf(out, "size: %d\n", info.Size)
	fmt.Fprintf(out, "id-fingerprint: %s\n", idutil.FingerprintString(info.ID))
	return 0
}
