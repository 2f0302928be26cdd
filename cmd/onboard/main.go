package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := app.Execute(ctx)
	stop()
	os.Exit(code)
}
