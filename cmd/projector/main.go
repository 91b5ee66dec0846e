// Package main starts the projector service process lifecycle.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	projectorcmd "github.com/louisbranch/courtapps/internal/cmd/projector"
	"github.com/louisbranch/courtapps/internal/platform/config"
)

func main() {
	cfg, err := projectorcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if cfg.Healthcheck {
		err = projectorcmd.Probe(ctx, cfg)
		stop()
		config.ExitOnError("health check", err)
		return
	}
	err = projectorcmd.Run(ctx, cfg)
	stop()
	config.ExitOnError("failed to serve", err)
}
