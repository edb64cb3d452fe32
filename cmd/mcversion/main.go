package main

import (
	"fmt"
	"os"

	"github.com/liangyou/mcversion/internal/cli"
)

var appVersion = "0.1.0"

func main() {
	app := cli.NewApp(os.Stdout, appVersion)
	if err := app.WatcherCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
