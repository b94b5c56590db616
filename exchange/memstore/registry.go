package memstore

import (
	"flag"

	"commlink.dev/rendezvous/exchange"
	"commlink.dev/rendezvous/exchange/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:          "mem",
		Description:   "in-process exchange (the daemon itself is the rendezvous point)",
		Usage:         registry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {},
		Open: func() (exchange.Exchange, func() error, error) {
			return New(), nil, nil
		},
	})
}
