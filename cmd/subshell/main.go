package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tkellem/subshell/internal/cli"
	"github.com/tkellem/subshell/internal/log"
)

func main() {
	defer log.RecoverPanic("main", func() { os.Exit(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	if err := cli.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
