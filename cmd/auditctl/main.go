package main

import (
	"context"
	"log"
	"os"

	"github.com/fintrail/audita/internal/app"
	"github.com/fintrail/audita/internal/cli"
	"github.com/fintrail/audita/internal/config"
	"github.com/fintrail/audita/internal/flagx"
)

// configFlags are owned by the config package; everything else belongs to
// the subcommands.
var configFlags = []string{
	"-a", "-d", "-q", "-m", "-s", "-t", "-n", "-l", "-i",
	"-u", "-p", "-b", "-g", "-e", "-c", "-config",
}

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	backend, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	c := cli.NewApp(backend.Queries, backend.Identity, os.Stdout)
	if err := c.Run(ctx, flagx.ExcludeArgs(os.Args[1:], configFlags)); err != nil {
		log.Fatalf("%v", err)
	}
}
