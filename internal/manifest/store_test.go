package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"coldcopy/internal/model"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testTree() *model.TreeEntry {
	mtime := time.Date(2024, 6, 1, 10, 0, 0, 500000000, time.UTC).UnixMicro()

	return &model.TreeEntry{
		Kind:      model.KindDir,
		Size:      4096 + 100 + 30 + 7000,
		FileCount: 3,
		MTime:     mtime,
		Archive:   model.ArchiveNone,
		Children: map[string]*model.TreeEntry{
			"a.txt": {
				Kind:      model.KindFile,
				Size:      100,
				FileCount: 1,
				MTime:     mtime - 1000,
				Archive:   model.ArchiveGzip,
			},
			"link": {
				Kind:      model.KindLink,
				Size:      30,
				FileCount: 1,
				MTime:     mtime - 2000,
				Archive:   model.ArchiveNone,
			},
			".git": {
				Kind:      model.KindDir,
				Size:      7000,
				FileCount: 1,
				MTime:     mtime,
				Archive:   model.ArchiveTarGz,
			},
		},
	}
}

func requireEqualTree(t *testing.T, want, got *model.TreeEntry) {
	t.Helper()
	require.NotNil(t, got)
	require.Equal(t, want.Kind, got.Kind)
	require.Equal(t, want.Size, got.Size)
	require.Equal(t, want.FileCount, got.FileCount)
	require.Equal(t, want.MTime, got.MTime)
	require.Equal(t, want.Archive, got.Archive)
	require.Len(t, got.Children, len(want.Children))
	for name, wantChild := range want.Children {
		requireEqualTree(t, wantChild, got.Children[name])
	}
}

func TestStore_RoundTrip(t *testing.T) {
	dst := t.TempDir()
	store := NewStore(dst, zap.NewNop())
	tree := testTree()

	histPath, err := store.Save("root", tree, "20240601100000000000")
	require.NoError(t, err)
	require.FileExists(t, histPath)

	// nothing promoted yet: first run has no latest manifest
	got, err := store.LoadLatest("root")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, store.Promote(histPath, "root"))

	got, err = store.LoadLatest("root")
	require.NoError(t, err)
	requireEqualTree(t, tree, got)
}

func TestStore_SaveNeverOverwrites(t *testing.T) {
	store := NewStore(t.TempDir(), zap.NewNop())
	tree := testTree()

	_, err := store.Save("root", tree, "20240601100000000000")
	require.NoError(t, err)

	_, err = store.Save("root", tree, "20240601100000000000")
	require.Error(t, err)
}

func TestStore_LoadLatest_Corrupt(t *testing.T) {
	dst := t.TempDir()
	store := NewStore(dst, zap.NewNop())

	require.NoError(t, os.MkdirAll(MetaDir(dst), 0755))
	require.NoError(t, os.WriteFile(store.LatestPath("root"), []byte("{not json"), 0644))

	got, err := store.LoadLatest("root")
	require.NoError(t, err, "corrupted manifest must degrade, not fail")
	require.Nil(t, got)
}

func TestStore_LoadLatest_LegacyFormats(t *testing.T) {
	dst := t.TempDir()
	store := NewStore(dst, zap.NewNop())
	require.NoError(t, os.MkdirAll(MetaDir(dst), 0755))

	// oldest known layout: use_gztar flag, mtime_utc as 14-digit string
	// on one entry and as integer microseconds on another
	legacy := `{
	 "root": {
	  "type": "dir",
	  "size": 7100,
	  "mtime_utc": "20200101000000",
	  "sub_files": {
	   "a.txt": {
	    "type": "file",
	    "size": 100,
	    "mtime_utc": 1577836800000000
	   },
	   ".git": {
	    "type": "dir",
	    "size": 7000,
	    "mtime_utc": "20200101000000",
	    "use_gztar": true
	   }
	  }
	 }
	}`
	require.NoError(t, os.WriteFile(store.LatestPath("root"), []byte(legacy), 0644))

	got, err := store.LoadLatest("root")
	require.NoError(t, err)
	require.NotNil(t, got)

	wantMTime := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMicro()
	require.Equal(t, wantMTime, got.MTime)

	a := got.Children["a.txt"]
	require.NotNil(t, a)
	require.Equal(t, model.KindFile, a.Kind)
	require.Equal(t, wantMTime, a.MTime)
	require.EqualValues(t, 1, a.FileCount)

	git := got.Children[".git"]
	require.NotNil(t, git)
	require.Equal(t, model.ArchiveTarGz, git.Archive)
	require.Nil(t, git.Children)
}

func TestStore_LoadLatest_DropsBrokenChildren(t *testing.T) {
	dst := t.TempDir()
	store := NewStore(dst, zap.NewNop())
	require.NoError(t, os.MkdirAll(MetaDir(dst), 0755))

	doc := `{
	 "root": {
	  "type": "dir",
	  "size": 100,
	  "mtime_px6": 1577836800000000,
	  "sub_files": {
	   "ok.txt": {"type": "file", "size": 10, "mtime_px6": 1577836800000000},
	   "broken": {"type": "file", "size": 10}
	  }
	 }
	}`
	require.NoError(t, os.WriteFile(store.LatestPath("root"), []byte(doc), 0644))

	got, err := store.LoadLatest("root")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Contains(t, got.Children, "ok.txt")
	require.NotContains(t, got.Children, "broken",
		"an entry missing its mtime cannot be trusted and must be dropped")
}

func TestStore_LoadLatest_Missing(t *testing.T) {
	store := NewStore(t.TempDir(), zap.NewNop())

	got, err := store.LoadLatest("root")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStore_LoadLatest_FallsBackToOtherRootName(t *testing.T) {
	dst := t.TempDir()
	store := NewStore(dst, zap.NewNop())
	tree := testTree()

	histPath, err := store.Save("oldname", tree, "20240601100000000000")
	require.NoError(t, err)
	require.NoError(t, store.Promote(histPath, "newname"))

	got, err := store.LoadLatest("newname")
	require.NoError(t, err)
	requireEqualTree(t, tree, got)
}

func TestHistoricalPath_Layout(t *testing.T) {
	store := NewStore("/dst", zap.NewNop())

	require.Equal(t,
		filepath.Join("/dst", MetaDirName, "root.filetree.json"),
		store.LatestPath("root"))
	require.Equal(t,
		filepath.Join("/dst", MetaDirName, "root.filetree.bkp20240601100000000000.json"),
		store.HistoricalPath("root", "20240601100000000000"))
}
