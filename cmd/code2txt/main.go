// Command code2txt combines a source tree into one markdown document.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/waleking/code2pdf/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, cli.NewCode2TxtCommand(cli.DefaultDeps()), os.Args[1:])
	stop()
	os.Exit(code)
}
