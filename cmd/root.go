package cmd

import (
	"fmt"
	"os"

	"coldcopy/internal/config"
	"coldcopy/internal/db"
	"coldcopy/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg   *config.Config
	log   *zap.Logger
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "coldcopy",
	Short: "Incremental directory backups with per-file compression",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		log, err = logger.New(debug)
		if err != nil {
			return err
		}

		cfg, err = config.Load()
		if err != nil {
			return err
		}

		// status talks to the daemon over HTTP and never opens the db
		if cmd.Name() != "status" {
			if err := db.Init(cfg.DBPath); err != nil {
				return err
			}
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func daemonURL(path string) string {
	return fmt.Sprintf("http://localhost:%d%s", cfg.DaemonPort, path)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode")
}
