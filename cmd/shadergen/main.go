package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"shadergen/internal/cli"
)

// main only wires the process: arguments, standard streams, signals and the
// exit status. Everything else lives in internal/cli.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	res, _ := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(res.ExitCode)
}
