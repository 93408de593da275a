package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"coldcopy/internal/autostart"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install [source] [destination]",
	Short: "Register the watch daemon to start at login",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		absSrc, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid src path: %w", err)
		}
		absDst, err := filepath.Abs(args[1])
		if err != nil {
			return fmt.Errorf("invalid dst path: %w", err)
		}

		as := autostart.New()
		if err := as.Install(execPath, absSrc, absDst); err != nil {
			return err
		}

		fmt.Println("coldcopy daemon registered for autostart")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
