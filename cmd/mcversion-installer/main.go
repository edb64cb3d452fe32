package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/liangyou/mcversion/internal/cli"
)

var appVersion = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := cli.NewApp(os.Stdout, appVersion)
	if err := app.InstallerCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
