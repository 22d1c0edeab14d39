package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/tmarland/kindred/internal/server"
	"github.com/tmarland/kindred/pkg/analyzer/similarity"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP compare API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override the listen port",
				EnvVars: []string{"KINDRED_PORT"},
			},
		},
		Action: runServeCmd,
	}
}

func runServeCmd(c *cli.Context) error {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found, using system environment variables")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if port := c.String("port"); port != "" {
		cfg.Server.Port = port
	}

	analyzer, err := similarity.NewAnalyzer(
		similarity.WithConfig(cfg),
		similarity.WithLogger(log.Logger),
	)
	if err != nil {
		return err
	}

	if !c.Bool("verbose") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(server.NewHandler(cfg, analyzer))
	srv := server.StartServer(router, cfg.Server.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	timeout := time.Duration(cfg.Server.ShutdownSeconds) * time.Second
	return server.ShutdownServer(srv, timeout)
}
