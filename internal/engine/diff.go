package engine

import (
	"coldcopy/internal/model"
)

type Action int

const (
	ActionSkip Action = iota
	ActionCopy
	ActionArchive
	ActionDescend
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionCopy:
		return "copy"
	case ActionArchive:
		return "archive"
	case ActionDescend:
		return "descend"
	default:
		return "unknown"
	}
}

// Decide compares a freshly scanned entry against the previous run's
// manifest entry. The comparison is shallow: kind, size and mtime only,
// never file content. A nil old entry (new file, or one dropped while
// reading a legacy manifest) always backs up again, as does any
// kind mismatch.
func Decide(newEntry, oldEntry *model.TreeEntry) Action {
	unchanged := oldEntry != nil &&
		oldEntry.Kind == newEntry.Kind &&
		oldEntry.Size == newEntry.Size &&
		oldEntry.MTime == newEntry.MTime

	if unchanged {
		return ActionSkip
	}

	switch {
	case newEntry.Kind == model.KindFile || newEntry.Kind == model.KindLink:
		return ActionCopy
	case newEntry.Archive == model.ArchiveTarGz:
		return ActionArchive
	default:
		return ActionDescend
	}
}
