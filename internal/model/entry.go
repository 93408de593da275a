package model

import (
	"fmt"
	"time"
)

type EntryKind string

const (
	KindFile EntryKind = "file"
	KindLink EntryKind = "link"
	KindDir  EntryKind = "dir"
)

// ArchiveMode is resolved once at scan time; the executor never
// re-interprets it.
type ArchiveMode string

const (
	ArchiveNone  ArchiveMode = ""
	ArchiveGzip  ArchiveMode = "gzip"
	ArchiveTarGz ArchiveMode = "gztar"
)

// TreeEntry is one node of a snapshot, keyed by its filename within the
// parent's Children map.
//
// For a directory, Size/FileCount/MTime aggregate the whole subtree at
// scan time and are never mutated afterward. A directory with
// ArchiveTarGz has no Children; its subtree is opaque from that point on.
type TreeEntry struct {
	Kind      EntryKind
	Size      int64
	FileCount int64
	MTime     int64 // microseconds since epoch, UTC
	Archive   ArchiveMode
	Children  map[string]*TreeEntry
}

// MTimeString renders the entry mtime in the semi-human-readable form
// used in backup file names: UTC YYYYMMDDHHMMSS plus six microsecond
// digits.
func (e *TreeEntry) MTimeString() string {
	return FormatStamp(time.UnixMicro(e.MTime))
}

func FormatStamp(t time.Time) string {
	u := t.UTC()
	return u.Format("20060102150405") + fmt.Sprintf("%06d", u.Nanosecond()/1000)
}

// ParseStamp is the inverse of FormatStamp. It also accepts the legacy
// 14-digit form without microseconds.
func ParseStamp(s string) (int64, error) {
	switch len(s) {
	case 14:
		t, err := time.Parse("20060102150405", s)
		if err != nil {
			return 0, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
		}
		return t.UnixMicro(), nil
	case 20:
		t, err := time.Parse("20060102150405", s[:14])
		if err != nil {
			return 0, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
		}
		var micro int64
		if _, err := fmt.Sscanf(s[14:], "%06d", &micro); err != nil {
			return 0, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
		}
		return t.UnixMicro() + micro, nil
	default:
		return 0, fmt.Errorf("failed to parse timestamp %q: unexpected length %d", s, len(s))
	}
}
