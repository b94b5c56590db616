package filestore

import (
	"flag"
	"fmt"
	"strings"

	"commlink.dev/rendezvous/exchange"
	"commlink.dev/rendezvous/exchange/registry"
)

var flagRoot string

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "file",
		Description: "shared-filesystem exchange (rank 0 writes the ticket, other ranks poll)",
		Usage:       registry.UsageCLI | registry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagRoot, "file-root", "", "exchange directory (for --backend=file)")
		},
		Open: func() (exchange.Exchange, func() error, error) {
			root := strings.TrimSpace(flagRoot)
			if root == "" {
				return nil, nil, fmt.Errorf("missing --file-root")
			}
			st, err := New(root)
			if err != nil {
				return nil, nil, err
			}
			return st, nil, nil
		},
	})
}
