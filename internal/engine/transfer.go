package engine

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"coldcopy/internal/model"
	"coldcopy/internal/util"

	"go.uber.org/zap"
)

// Executor performs the physical action each diff verdict implies. With
// dryRun set every decision is logged but nothing on disk is touched.
type Executor struct {
	dryRun bool
	log    *zap.Logger
}

func NewExecutor(dryRun bool, log *zap.Logger) *Executor {
	return &Executor{
		dryRun: dryRun,
		log:    log,
	}
}

// Run diffs newTree against oldTree and transfers every changed entry
// from srcDir into dstDir. Per-entry copy failures are logged and
// skipped; only a destination that cannot be trusted (a file occupying a
// directory path) aborts.
func (x *Executor) Run(srcDir, dstDir string, newTree, oldTree map[string]*model.TreeEntry) (model.RunStats, error) {
	var stats model.RunStats

	names := make([]string, 0, len(newTree))
	for name := range newTree {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sub, err := x.runEntry(
			filepath.Join(srcDir, name),
			filepath.Join(dstDir, name),
			newTree[name], oldTree[name])
		stats.Add(sub)
		if err != nil {
			return stats, err
		}
	}

	return stats, nil
}

func (x *Executor) runEntry(srcPath, dstPath string, e, old *model.TreeEntry) (model.RunStats, error) {
	var stats model.RunStats

	switch Decide(e, old) {
	case ActionSkip:
		x.log.Info("skipping unchanged",
			zap.String("kind", string(e.Kind)),
			zap.String("path", srcPath))
		stats.Skipped += e.FileCount

	case ActionCopy:
		dst := BackupName(dstPath, e.MTimeString(), e.Archive)
		x.warnIfExists(dst)

		var err error
		if e.Archive == model.ArchiveGzip {
			err = x.copyGzip(srcPath, dst)
		} else {
			err = x.copyPlain(srcPath, dst)
		}
		if err != nil {
			x.log.Error("failed to copy, skipping",
				zap.String("src", srcPath),
				zap.Error(err))
			break
		}
		stats.Copied += e.FileCount

	case ActionArchive:
		dst := BackupName(dstPath, e.MTimeString(), model.ArchiveTarGz)
		x.warnIfExists(dst)

		if err := x.archiveTarGz(srcPath, dst); err != nil {
			x.log.Error("failed to archive, skipping",
				zap.String("src", srcPath),
				zap.Error(err))
			break
		}
		stats.Archived++

	case ActionDescend:
		if err := x.ensureDir(dstPath); err != nil {
			return stats, err
		}

		var oldChildren map[string]*model.TreeEntry
		if old != nil {
			oldChildren = old.Children
		}

		sub, err := x.Run(srcPath, dstPath, e.Children, oldChildren)
		stats.Add(sub)
		if err != nil {
			return stats, err
		}
		stats.Dirs++
	}

	return stats, nil
}

// RunEntry transfers a single named entry; used for the snapshot root.
func (x *Executor) RunEntry(srcPath, dstPath string, e, old *model.TreeEntry) (model.RunStats, error) {
	return x.runEntry(srcPath, dstPath, e, old)
}

func (x *Executor) warnIfExists(dst string) {
	if _, err := os.Lstat(dst); err == nil {
		// timestamped names should be unique; a collision means a
		// same-instant re-run or clock skew
		x.log.Warn("backup file already exists, will overwrite",
			zap.String("path", dst))
	}
}

func (x *Executor) copyGzip(src, dst string) error {
	x.log.Info("gzipping",
		zap.String("src", src),
		zap.String("dst", dst))
	if x.dryRun {
		return nil
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open src: %w", err)
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	tmp := dst + ".coldcopy.tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create dst: %w", err)
	}

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, f); err != nil {
		_ = gz.Close()
		_ = out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to compress: %w", err)
	}

	if err := gz.Close(); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to flush gzip: %w", err)
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close dst: %w", err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename tmp: %w", err)
	}

	return nil
}

func (x *Executor) copyPlain(src, dst string) error {
	x.log.Info("copying",
		zap.String("src", src),
		zap.String("dst", dst))
	if x.dryRun {
		return nil
	}

	return util.CopyPreserve(src, dst)
}

// archiveTarGz folds the whole subtree at src into one tar.gz, entries
// named under the subtree's base name the way `tar -C parent base`
// would. Unreadable entries inside the subtree are logged and left out.
func (x *Executor) archiveTarGz(src, dst string) error {
	x.log.Info("archiving",
		zap.String("src", src),
		zap.String("dst", dst))
	if x.dryRun {
		return nil
	}

	tmp := dst + ".coldcopy.tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create dst: %w", err)
	}

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	parent := filepath.Dir(src)

	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			x.log.Error("failed to read, leaving out of archive",
				zap.String("path", path),
				zap.Error(err))
			return nil
		}

		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}

		return x.addTarEntry(tw, path, filepath.ToSlash(rel), d)
	})

	if walkErr == nil {
		walkErr = tw.Close()
	} else {
		_ = tw.Close()
	}
	if walkErr == nil {
		walkErr = gz.Close()
	} else {
		_ = gz.Close()
	}
	if walkErr == nil {
		walkErr = out.Close()
	} else {
		_ = out.Close()
	}

	if walkErr != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to build archive: %w", walkErr)
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename tmp: %w", err)
	}

	return nil
}

func (x *Executor) addTarEntry(tw *tar.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		x.log.Error("failed to stat, leaving out of archive",
			zap.String("path", path),
			zap.Error(err))
		return nil
	}

	var link string
	if info.Mode()&os.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			x.log.Error("failed to read link, leaving out of archive",
				zap.String("path", path),
				zap.Error(err))
			return nil
		}
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("failed to build tar header for %s: %w", path, err)
	}
	hdr.Name = name
	if info.IsDir() {
		hdr.Name += "/"
	}

	// open before the header goes out; a header without its body would
	// corrupt the archive
	var f *os.File
	if info.Mode().IsRegular() {
		if f, err = os.Open(path); err != nil {
			x.log.Error("failed to open, leaving out of archive",
				zap.String("path", path),
				zap.Error(err))
			return nil
		}

		defer func(f *os.File) {
			_ = f.Close()
		}(f)
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", path, err)
	}

	if f == nil {
		return nil
	}

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to archive %s: %w", path, err)
	}

	return nil
}

func (x *Executor) ensureDir(dst string) error {
	info, err := os.Lstat(dst)
	if err == nil {
		if info.IsDir() {
			return nil
		}
		// files and directories may not share a name at the same level
		return fmt.Errorf("destination %s exists and is not a directory; "+
			"a file and a directory with the same name are not supported", dst)
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat destination %s: %w", dst, err)
	}

	x.log.Info("creating directory",
		zap.String("path", dst))
	if x.dryRun {
		return nil
	}

	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return nil
}
