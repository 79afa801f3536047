// Package cmd - tripsniper CLI commands
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wonny/tripsniper/internal/pkg/config"
	"github.com/wonny/tripsniper/internal/pkg/logger"
)

const (
	serviceName    = "tripsniper"
	serviceVersion = "1.0.0"
)

var (
	// 공통 플래그
	cfgFile string
	verbose bool

	cfg *config.Config
)

// rootCmd 루트 커맨드
var rootCmd = &cobra.Command{
	Use:   "tripsniper",
	Short: "TripSniper - travel deal pipeline",
	Long: `TripSniper - travel deal pipeline

Usage:
    go run ./cmd/tripsniper [command]

Commands:
    run         - Fetch, combine, score and store offers once
    schedule    - Run the pipeline on RUN_PIPELINE_CRON
    serve       - Read API (Port 8099)
    weights     - Show the resolved steal score weights
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute 루트 커맨드 실행
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(weightsCmd)
}

// initConfig loads the env file, builds the configuration and sets up logging
func initConfig() error {
	var err error
	if cfgFile != "" {
		if err := godotenv.Load(cfgFile); err != nil {
			return fmt.Errorf("load %s: %w", cfgFile, err)
		}
		cfg, err = config.FromEnv()
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}

	if err := logger.Init(logger.Config{
		Level:          level,
		Format:         cfg.Logging.Format,
		FileEnabled:    cfg.Logging.FileEnabled,
		FilePath:       cfg.Logging.FilePath,
		RotationSize:   cfg.Logging.RotationSize,
		RetentionDays:  cfg.Logging.RetentionDays,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		return err
	}
	return nil
}
