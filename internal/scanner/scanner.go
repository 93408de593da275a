package scanner

import (
	"fmt"
	"os"
	"path/filepath"

	"coldcopy/internal/model"

	"go.uber.org/zap"
)

type Options struct {
	ArchiveNames []string
	IgnoreNames  []string
}

// Scanner builds snapshots of a source tree. It is read-only: files are
// opened only to test readability, never to read content.
type Scanner struct {
	archive map[string]struct{}
	ignore  map[string]struct{}
	log     *zap.Logger
}

func New(opts Options, log *zap.Logger) *Scanner {
	s := &Scanner{
		archive: make(map[string]struct{}, len(opts.ArchiveNames)),
		ignore:  make(map[string]struct{}, len(opts.IgnoreNames)),
		log:     log,
	}

	for _, name := range opts.ArchiveNames {
		s.archive[name] = struct{}{}
	}
	for _, name := range opts.IgnoreNames {
		s.ignore[name] = struct{}{}
	}

	return s
}

// Scan snapshots path recursively. name defaults to the path basename.
// A nil entry with a nil error means the path is absent: ignored,
// vanished, or unreadable. Symlinks are snapshotted as leaves and never
// followed.
func (s *Scanner) Scan(path, name string) (*model.TreeEntry, error) {
	path = filepath.Clean(path)
	if name == "" {
		name = filepath.Base(path)
	}

	if _, ok := s.ignore[name]; ok {
		return nil, nil
	}

	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Error("path does not exist, skipping",
				zap.String("path", path))
		} else {
			s.log.Error("failed to stat, skipping",
				zap.String("path", path),
				zap.Error(err))
		}
		return nil, nil
	}

	mode := info.Mode()

	switch {
	case mode&os.ModeSymlink != 0:
		s.log.Warn("will not follow symbolic link",
			zap.String("path", path))
		return &model.TreeEntry{
			Kind:      model.KindLink,
			Size:      info.Size(),
			FileCount: 1,
			MTime:     info.ModTime().UnixMicro(),
			Archive:   model.ArchiveNone,
		}, nil

	case mode.IsRegular():
		// readability test only; content is never read
		f, err := os.Open(path)
		if err != nil {
			s.log.Error("no read access, skipping",
				zap.String("path", path),
				zap.Error(err))
			return nil, nil
		}
		_ = f.Close()

		return &model.TreeEntry{
			Kind:      model.KindFile,
			Size:      info.Size(),
			FileCount: 1,
			MTime:     info.ModTime().UnixMicro(),
			Archive:   model.ArchiveGzip,
		}, nil

	case mode.IsDir():
		if _, ok := s.archive[name]; ok {
			return s.scanArchiveDir(path, info)
		}
		return s.scanDir(path, info)

	default:
		s.log.Warn("unsupported file type, skipping",
			zap.String("path", path),
			zap.String("mode", mode.String()))
		return nil, nil
	}
}

func (s *Scanner) scanDir(path string, info os.FileInfo) (*model.TreeEntry, error) {
	dirents, err := os.ReadDir(path)
	if err != nil {
		s.log.Error("failed to list directory, skipping",
			zap.String("path", path),
			zap.Error(err))
		return nil, nil
	}

	entry := &model.TreeEntry{
		Kind:     model.KindDir,
		Size:     info.Size(),
		MTime:    info.ModTime().UnixMicro(),
		Archive:  model.ArchiveNone,
		Children: make(map[string]*model.TreeEntry, len(dirents)),
	}

	for _, d := range dirents {
		childName := d.Name()
		if _, ok := s.ignore[childName]; ok {
			continue
		}

		child, err := s.Scan(filepath.Join(path, childName), childName)
		if err != nil {
			return nil, err
		}
		if child == nil {
			continue
		}

		entry.Children[childName] = child
		entry.Size += child.Size
		entry.FileCount += child.FileCount
		if child.MTime > entry.MTime {
			entry.MTime = child.MTime
		}
	}

	return entry, nil
}

// scanArchiveDir aggregates size and mtime with a lightweight stat walk
// and keeps no child structure: the subtree will be folded into a single
// archive.
func (s *Scanner) scanArchiveDir(path string, info os.FileInfo) (*model.TreeEntry, error) {
	size, mtime, err := s.statWalk(path)
	if err != nil {
		return nil, fmt.Errorf("failed to scan archive dir %s: %w", path, err)
	}

	entry := &model.TreeEntry{
		Kind:      model.KindDir,
		Size:      size,
		FileCount: 1,
		MTime:     info.ModTime().UnixMicro(),
		Archive:   model.ArchiveTarGz,
	}
	if mtime > entry.MTime {
		entry.MTime = mtime
	}

	return entry, nil
}

func (s *Scanner) statWalk(path string) (int64, int64, error) {
	info, err := os.Lstat(path)
	if err != nil {
		s.log.Error("failed to stat, skipping",
			zap.String("path", path),
			zap.Error(err))
		return 0, 0, nil
	}

	size := info.Size()
	mtime := info.ModTime().UnixMicro()

	if info.IsDir() {
		dirents, err := os.ReadDir(path)
		if err != nil {
			s.log.Error("failed to list directory, skipping",
				zap.String("path", path),
				zap.Error(err))
			return size, mtime, nil
		}

		for _, d := range dirents {
			childSize, childMTime, err := s.statWalk(filepath.Join(path, d.Name()))
			if err != nil {
				return 0, 0, err
			}
			size += childSize
			if childMTime > mtime {
				mtime = childMTime
			}
		}
	}

	return size, mtime, nil
}
