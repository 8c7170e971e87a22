package main

import (
	"os"
	"os/signal"
	"syscall"

	"tunelink/internal/config"
	"tunelink/internal/server"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := "./config.toml"

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	configureLogger(logger, &cfg.Logging)

	// Create and configure the relay server
	relayServer, err := server.NewRelayServer(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error creating relay server")
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := relayServer.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	<-c

	logger.Info("Received shutdown signal")
	relayServer.Shutdown()
}

// configureLogger applies the logging section of the configuration.
func configureLogger(logger *logrus.Logger, cfg *config.LoggingConfig) {
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}
