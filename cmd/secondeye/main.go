// Command secondeye records a spoken question with a camera frame, sends both
// to the answering backend, and plays the spoken reply.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/secondeye/secondeye/internal/app"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run cancels the command on the first SIGINT or SIGTERM. Once cancelled the
// handlers are released, so a second signal terminates the process outright.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	context.AfterFunc(ctx, stop)

	return app.Execute(ctx, args, stdout, stderr)
}
