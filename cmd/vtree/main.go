// Command vtree runs render scenarios against the virtual DOM and inspects
// recorded mutation traces.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/vtree/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
