package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"coldcopy/internal/manifest"
	"coldcopy/internal/model"
	"coldcopy/internal/scanner"

	"go.uber.org/zap"
)

// ErrDeepCompareUnsupported is returned when content comparison is
// requested. Only shallow metadata comparison (kind+size+mtime) is
// implemented; callers must accept that guarantee or stop.
var ErrDeepCompareUnsupported = errors.New(
	"byte-for-byte comparison is not implemented, only shallow metadata comparison is supported")

// Runner ties one backup run together: scan the source, persist the new
// snapshot, load the previous manifest, diff and transfer, then promote
// the new snapshot as the latest manifest.
type Runner struct {
	Src  string
	Dst  string
	Name string // root name override; defaults to the source basename

	ShallowCompare bool
	DryRun         bool
	ArchiveNames   []string
	IgnoreNames    []string

	// RunStamp names the historical manifest and run log; defaults to
	// the run start time.
	RunStamp string

	Log *zap.Logger
}

type Result struct {
	RootName     string
	Stats        model.RunStats
	TotalFiles   int64
	TotalBytes   int64
	ManifestPath string
	StartedAt    time.Time
	Duration     time.Duration
}

func (r *Runner) Run() (*Result, error) {
	started := time.Now()

	if !r.ShallowCompare {
		return nil, ErrDeepCompareUnsupported
	}

	src, err := filepath.Abs(r.Src)
	if err != nil {
		return nil, fmt.Errorf("invalid src path: %w", err)
	}
	dst, err := filepath.Abs(r.Dst)
	if err != nil {
		return nil, fmt.Errorf("invalid dst path: %w", err)
	}

	if rel, err := filepath.Rel(src, dst); err == nil &&
		rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("destination %s lies inside source %s", dst, src)
	}

	name := r.Name
	if name == "" {
		name = filepath.Base(src)
	}

	stamp := r.RunStamp
	if stamp == "" {
		stamp = model.FormatStamp(started)
	}

	log := r.Log
	log.Info("beginning backup",
		zap.String("src", src),
		zap.String("dst", dst),
		zap.String("root", name),
		zap.Bool("dry_run", r.DryRun))

	log.Info("scanning file tree")
	sc := scanner.New(scanner.Options{
		ArchiveNames: r.ArchiveNames,
		IgnoreNames:  r.IgnoreNames,
	}, log)

	root, err := sc.Scan(src, name)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("source %s does not exist or is not readable", src)
	}

	log.Info("scan complete",
		zap.Int64("files", root.FileCount))

	store := manifest.NewStore(dst, log)

	var histPath string
	if !r.DryRun {
		if histPath, err = store.Save(name, root, stamp); err != nil {
			return nil, err
		}
	}

	// a missing or corrupted old manifest degrades to "back up
	// everything", never to a failed run
	oldRoot, err := store.LoadLatest(name)
	if err != nil {
		return nil, err
	}

	ex := NewExecutor(r.DryRun, log)
	stats, err := ex.RunEntry(src, filepath.Join(dst, name), root, oldRoot)

	result := &Result{
		RootName:     name,
		Stats:        stats,
		TotalFiles:   root.FileCount,
		TotalBytes:   root.Size,
		ManifestPath: histPath,
		StartedAt:    started,
		Duration:     time.Since(started),
	}

	log.Info("backup summary",
		zap.Int64("skipped", stats.Skipped),
		zap.Int64("copied", stats.Copied),
		zap.Int64("archived", stats.Archived),
		zap.Int64("dirs", stats.Dirs),
		zap.Int64("processed", stats.Processed()),
		zap.Int64("total_files", root.FileCount))

	if err != nil {
		return result, err
	}

	if !r.DryRun {
		if err := store.Promote(histPath, name); err != nil {
			return result, err
		}
	}

	result.Duration = time.Since(started)
	log.Info("backup complete",
		zap.Duration("took", result.Duration))
	return result, nil
}
