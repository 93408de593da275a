package cmd

import (
	"fmt"

	"coldcopy/internal/repository"

	"github.com/spf13/cobra"
)

var historyN int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent backup runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := repository.NewRunRepository()

		records, err := repo.GetRecent(historyN)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("no runs yet")
			return nil
		}

		for _, r := range records {
			status := "✓"
			if r.ErrMsg != "" {
				status = "✗"
			}
			mode := ""
			if r.DryRun {
				mode = " (dry run)"
			}

			fmt.Printf("%s [%s] %s%s: skipped %d, copied %d, archived %d, %s total\n",
				status,
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.RootName,
				mode,
				r.Skipped, r.Copied, r.Archived,
				fmt.Sprintf("%d files", r.TotalFiles),
			)
		}

		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyN, "n", 20, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}
