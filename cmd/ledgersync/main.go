package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/yorutsuke/ledgersync/internal/buildinfo"
	"github.com/yorutsuke/ledgersync/internal/cli"
	"github.com/yorutsuke/ledgersync/internal/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	command := ""
	if len(os.Args) > 1 && !strings.HasPrefix(os.Args[1], "-") {
		command = os.Args[1]
	}

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}
	defer app.Close()

	if err := app.Run(ctx, command); err != nil {
		log.Fatalf("%v", err)
	}
}
