package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/supportdesk/internal/buildinfo"
	"github.com/dmitrijs2005/supportdesk/internal/logging"
	"github.com/dmitrijs2005/supportdesk/internal/mockapi"
	"github.com/dmitrijs2005/supportdesk/internal/mockapi/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.NewJSON(os.Stdout, cfg.LogLevel)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	srv, err := mockapi.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := srv.Run(ctx); err != nil {
		stop()
		logger.Error(ctx, "mock API stopped", "error", err)
		os.Exit(1)
	}
}
