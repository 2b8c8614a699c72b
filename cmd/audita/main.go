package main

import (
	"context"
	"log"
	"os"

	"github.com/fintrail/audita/internal/app"
	"github.com/fintrail/audita/internal/buildinfo"
	"github.com/fintrail/audita/internal/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
