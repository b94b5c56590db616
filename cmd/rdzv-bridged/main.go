package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"commlink.dev/rendezvous/bridge"
	"commlink.dev/rendezvous/exchange/registry"
	"commlink.dev/rendezvous/rendezvous"

	_ "commlink.dev/rendezvous/exchange/filestore"
	_ "commlink.dev/rendezvous/exchange/memstore"
)

func main() {
	def := defaultConfig()

	fs := flag.NewFlagSet("rdzv-bridged", flag.ExitOnError)
	configPath := fs.String("config", "", "optional TOML config file")
	listen := fs.String("listen", def.Listen, "listen address")
	backend := fs.String("backend", def.Backend, "exchange backend name")
	logLevel := fs.String("log-level", def.LogLevel, "log level (trace/debug/info/warn/error)")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")

	registry.RegisterFlags(fs, registry.UsageDaemon)

	_ = fs.Parse(os.Args[1:])
	if *listBackends {
		for _, b := range registry.List(registry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return
	}

	cfg := def
	if *configPath != "" {
		var err error
		cfg, err = loadConfig(*configPath, cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	// Flags passed explicitly win over the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = *listen
		case "backend":
			cfg.Backend = *backend
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q\n", cfg.LogLevel)
		os.Exit(2)
	}
	log := zerolog.New(os.Stderr).Level(level).With().
		Timestamp().
		Str("component", "rdzv-bridged").
		Logger()

	ex, closeFn, err := registry.Open(cfg.Backend, registry.UsageDaemon)
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.Backend).Msg("open exchange backend")
		os.Exit(2)
	}
	if closeFn != nil {
		defer closeFn()
	}

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		log.Error().Err(err).Str("listen", cfg.Listen).Msg("listen")
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	bridge.RegisterBridgeServer(s, &bridge.Server{
		Bootstrap: &rendezvous.Bootstrap{},
		Exchange:  ex,
	})

	log.Info().
		Str("addr", lis.Addr().String()).
		Str("backend", cfg.Backend).
		Msg("rdzv-bridged listening")
	if err := s.Serve(lis); err != nil {
		log.Error().Err(err).Msg("serve")
		os.Exit(1)
	}
}
