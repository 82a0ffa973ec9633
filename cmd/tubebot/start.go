package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/keepmind9/tubebot/internal/core"
	"github.com/keepmind9/tubebot/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start tubebot",
		Long:  "Start tubebot, connect to the enabled chat platforms and answer messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := core.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := logger.InitLogger(logger.Config{
				Level:        config.Logging.Level,
				File:         config.Logging.File,
				MaxSize:      config.Logging.MaxSize,
				MaxBackups:   config.Logging.MaxBackups,
				MaxAge:       config.Logging.MaxAge,
				Compress:     config.LogCompress(),
				EnableStdout: config.LogEnableStdout(),
			}); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			engine, bots, err := buildEngine(config)
			if err != nil {
				return err
			}

			logger.WithFields(logrus.Fields{
				"config_file":  configFile,
				"log_level":    config.Logging.Level,
				"bots":         bots,
				"home_channel": config.HomeChannel,
				"timezone":     config.Timezone,
				"scheduler":    config.Scheduler.Enabled,
				"announce":     config.AnnounceServer.Enabled,
			}).Info("tubebot-configured")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engineErr := make(chan error, 1)
			go func() {
				engineErr <- engine.Run(ctx)
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutdown-signal-received")
			case err := <-engineErr:
				if err != nil {
					_ = engine.Stop()
					return fmt.Errorf("engine error: %w", err)
				}
			}

			if err := engine.Stop(); err != nil {
				return fmt.Errorf("error during shutdown: %w", err)
			}
			logger.Info("tubebot-stopped")
			return nil
		},
	}
)

func init() {
	startCmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "Configuration file path")
}
