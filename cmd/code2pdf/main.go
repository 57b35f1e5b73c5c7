// Command code2pdf renders source files to syntax-highlighted PDF.
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
	code := cli.Run(ctx, cli.NewCode2PdfCommand(cli.DefaultDeps()), os.Args[1:])
	stop()
	os.Exit(code)
}
