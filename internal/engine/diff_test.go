package engine

import (
	"testing"

	"coldcopy/internal/model"
)

func TestDecide(t *testing.T) {
	file := &model.TreeEntry{Kind: model.KindFile, Size: 10, FileCount: 1, MTime: 100, Archive: model.ArchiveGzip}
	link := &model.TreeEntry{Kind: model.KindLink, Size: 5, FileCount: 1, MTime: 100}
	dir := &model.TreeEntry{Kind: model.KindDir, Size: 10, FileCount: 1, MTime: 100}
	gztarDir := &model.TreeEntry{Kind: model.KindDir, Size: 10, FileCount: 1, MTime: 100, Archive: model.ArchiveTarGz}

	tests := []struct {
		name     string
		newEntry *model.TreeEntry
		oldEntry *model.TreeEntry
		want     Action
	}{
		{"no old entry file", file, nil, ActionCopy},
		{"no old entry link", link, nil, ActionCopy},
		{"no old entry dir", dir, nil, ActionDescend},
		{"no old entry archive dir", gztarDir, nil, ActionArchive},
		{"unchanged file", file, &model.TreeEntry{Kind: model.KindFile, Size: 10, MTime: 100}, ActionSkip},
		{"unchanged dir", dir, &model.TreeEntry{Kind: model.KindDir, Size: 10, MTime: 100}, ActionSkip},
		{"unchanged archive dir", gztarDir, &model.TreeEntry{Kind: model.KindDir, Size: 10, MTime: 100}, ActionSkip},
		{"size changed", file, &model.TreeEntry{Kind: model.KindFile, Size: 11, MTime: 100}, ActionCopy},
		{"mtime changed", file, &model.TreeEntry{Kind: model.KindFile, Size: 10, MTime: 101}, ActionCopy},
		{"kind changed file to dir", dir, &model.TreeEntry{Kind: model.KindFile, Size: 10, MTime: 100}, ActionDescend},
		{"kind changed dir to file", file, &model.TreeEntry{Kind: model.KindDir, Size: 10, MTime: 100}, ActionCopy},
		{"changed archive dir", gztarDir, &model.TreeEntry{Kind: model.KindDir, Size: 99, MTime: 100}, ActionArchive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.newEntry, tt.oldEntry); got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBackupName(t *testing.T) {
	stamp := "20240305123045123456"

	tests := []struct {
		mode model.ArchiveMode
		want string
	}{
		{model.ArchiveGzip, "/dst/a.txt.bkp" + stamp + "._bkp_.gz"},
		{model.ArchiveNone, "/dst/a.txt.bkp" + stamp + "._bkp_"},
		{model.ArchiveTarGz, "/dst/a.txt.bkp" + stamp + "._bkp_.tar.gz"},
	}

	for _, tt := range tests {
		if got := BackupName("/dst/a.txt", stamp, tt.mode); got != tt.want {
			t.Errorf("BackupName(%q) = %q, want %q", tt.mode, got, tt.want)
		}
	}
}
