package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"coldcopy/internal/model"
	"coldcopy/internal/util"

	"go.uber.org/zap"
)

// MetaDirName is the reserved subdirectory of the destination root that
// holds manifests and run logs.
const MetaDirName = "_bkp_meta_"

func MetaDir(dstRoot string) string {
	return filepath.Join(dstRoot, MetaDirName)
}

// Store persists snapshots under <dst>/_bkp_meta_. The "latest" manifest
// is the diff baseline for the next run; a timestamped historical
// manifest is written fresh on every run and never read back
// automatically.
type Store struct {
	dir string
	log *zap.Logger
}

func NewStore(dstRoot string, log *zap.Logger) *Store {
	return &Store{
		dir: MetaDir(dstRoot),
		log: log,
	}
}

func (s *Store) LatestPath(rootName string) string {
	return filepath.Join(s.dir, rootName+".filetree.json")
}

func (s *Store) HistoricalPath(rootName, stamp string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.filetree.bkp%s.json", rootName, stamp))
}

// Save writes {rootName: root} as a new historical manifest named with
// stamp. Stamps are unique per run, so an existing file is an error
// rather than something to overwrite.
func (s *Store) Save(rootName string, root *model.TreeEntry, stamp string) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create meta dir: %w", err)
	}

	path := s.HistoricalPath(rootName, stamp)
	if _, err := os.Lstat(path); err == nil {
		return "", fmt.Errorf("manifest %s already exists", path)
	}

	data, err := encodeManifest(rootName, root, stamp)
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := util.AtomicWrite(path, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}

	s.log.Info("wrote manifest",
		zap.String("path", path))
	return path, nil
}

// LoadLatest reads the latest manifest for rootName. A missing file
// (first run) and an unparsable file (corrupted) both return nil with no
// error: the caller backs up everything. The two cases are logged apart.
func (s *Store) LoadLatest(rootName string) (*model.TreeEntry, error) {
	path := s.LatestPath(rootName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Warn("no old filetree found, will back up everything",
				zap.String("path", path))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	root, err := decodeManifest(data, rootName, s.log)
	if err != nil {
		s.log.Error("corrupted old filetree, will back up everything",
			zap.String("path", path),
			zap.Error(err))
		return nil, nil
	}

	s.log.Info("read old filetree",
		zap.String("path", path))
	return root, nil
}

// Promote copies the just-written historical manifest over the latest
// one. Called only after a full successful, non-dry-run transfer pass.
func (s *Store) Promote(historicalPath, rootName string) error {
	f, err := os.Open(historicalPath)
	if err != nil {
		return fmt.Errorf("failed to open manifest: %w", err)
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	if err := util.AtomicWrite(s.LatestPath(rootName), f); err != nil {
		return fmt.Errorf("failed to promote manifest: %w", err)
	}

	s.log.Info("promoted manifest",
		zap.String("from", historicalPath),
		zap.String("to", s.LatestPath(rootName)))
	return nil
}
