// Command server runs the minesweeper network service.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"minesweep-server/internal/config"
	"minesweep-server/internal/logging"
	"minesweep-server/internal/server"
)

func main() {
	configPath := flag.String("config", "server.yaml", "path to server.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	if args := flag.Args(); len(args) > 0 {
		port, err := strconv.Atoi(args[0])
		if err != nil {
			log.Fatalf("invalid port argument %q: %v", args[0], err)
		}
		if port < 0 {
			port = -port
		}
		cfg.ListenPort = strconv.Itoa(port)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	s, err := server.New(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := s.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
