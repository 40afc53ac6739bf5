package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/farmledger/internal/client/cli"
	"github.com/dmitrijs2005/farmledger/internal/client/config"
	"github.com/dmitrijs2005/farmledger/internal/logging"
)

var (
	buildVersion = "N/A"
	buildDate    = "N/A"
)

func main() {
	fmt.Printf("farmledger client %s (%s)\n", buildVersion, buildDate)

	cfg := config.LoadConfig()
	log := logging.NewJSON(os.Stderr)

	ctx := context.Background()

	app, err := cli.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to initialize client", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Error(ctx, "client exited with error", "error", err)
		os.Exit(1)
	}
}
