package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"coldcopy/internal/engine"
	"coldcopy/internal/logger"
	"coldcopy/internal/manifest"
	"coldcopy/internal/model"
	"coldcopy/internal/repository"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	backupDryRun bool
	backupName   string
	backupDeep   bool
)

var backupCmd = &cobra.Command{
	Use:   "backup [source] [destination]",
	Short: "Back up changed files from source into destination",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer func() { _ = log.Sync() }()
		src, dst := args[0], args[1]

		absSrc, err := filepath.Abs(src)
		if err != nil {
			return fmt.Errorf("invalid src path: %w", err)
		}
		absDst, err := filepath.Abs(dst)
		if err != nil {
			return fmt.Errorf("invalid dst path: %w", err)
		}

		name := backupName
		if name == "" {
			name = filepath.Base(absSrc)
		}

		stamp := model.FormatStamp(time.Now())

		// the run log lives next to the manifests, even for dry runs
		metaDir := manifest.MetaDir(absDst)
		if err := os.MkdirAll(metaDir, 0755); err != nil {
			return fmt.Errorf("failed to create meta dir: %w", err)
		}
		logPath := filepath.Join(metaDir,
			fmt.Sprintf("%s.filetree.bkp%s.log", name, stamp))

		runLog, err := logger.New(debug, logPath)
		if err != nil {
			return err
		}
		defer func() { _ = runLog.Sync() }()

		runner := &engine.Runner{
			Src:            absSrc,
			Dst:            absDst,
			Name:           name,
			ShallowCompare: cfg.ShallowCompare && !backupDeep,
			DryRun:         backupDryRun,
			ArchiveNames:   cfg.ArchiveList,
			IgnoreNames:    cfg.IgnoreList,
			RunStamp:       stamp,
			Log:            runLog,
		}

		result, runErr := runner.Run()
		recordRun(name, absSrc, absDst, backupDryRun, result, runErr)

		if result != nil {
			s := result.Stats
			fmt.Printf("skipped %d files, copied %d files, archived %d directories, entered %d directories\n",
				s.Skipped, s.Copied, s.Archived, s.Dirs)
			fmt.Printf("processed %d / %d files (%s) in %s\n",
				s.Processed(), result.TotalFiles, fmtBytes(result.TotalBytes),
				result.Duration.Round(time.Millisecond))
		}

		return runErr
	},
}

func recordRun(name, src, dst string, dryRun bool, result *engine.Result, runErr error) {
	record := &model.RunRecord{
		RootName:  name,
		SrcPath:   src,
		DstPath:   dst,
		DryRun:    dryRun,
		StartedAt: time.Now(),
	}
	if result != nil {
		record.Skipped = result.Stats.Skipped
		record.Copied = result.Stats.Copied
		record.Archived = result.Stats.Archived
		record.Dirs = result.Stats.Dirs
		record.TotalFiles = result.TotalFiles
		record.StartedAt = result.StartedAt
		record.DurationMS = result.Duration.Milliseconds()
	}
	if runErr != nil {
		record.ErrMsg = runErr.Error()
	}

	if err := repository.NewRunRepository().Save(record); err != nil {
		log.Warn("failed to save run history",
			zap.Error(err))
	}
}

// fmtBytes is shared by backup and status output.
func fmtBytes(n int64) string {
	if n < 0 {
		return "?"
	}
	return humanize.Bytes(uint64(n))
}

func init() {
	backupCmd.Flags().BoolVar(&backupDryRun, "dry-run", false, "Log decisions without touching the destination")
	backupCmd.Flags().StringVar(&backupName, "name", "", "Root name override (defaults to the source basename)")
	backupCmd.Flags().BoolVar(&backupDeep, "deep", false, "Request byte-for-byte comparison (not implemented)")
	rootCmd.AddCommand(backupCmd)
}
