package model

import (
	"time"

	"gorm.io/gorm"
)

// RunStats counts what one diff/transfer pass did. Skipped and Copied
// count files, Archived counts archived directories, Dirs counts
// directories entered.
type RunStats struct {
	Skipped  int64 `json:"skipped"`
	Copied   int64 `json:"copied"`
	Archived int64 `json:"archived"`
	Dirs     int64 `json:"dirs"`
}

func (s *RunStats) Add(o RunStats) {
	s.Skipped += o.Skipped
	s.Copied += o.Copied
	s.Archived += o.Archived
	s.Dirs += o.Dirs
}

func (s RunStats) Processed() int64 {
	return s.Skipped + s.Copied + s.Archived + s.Dirs
}

type RunRecord struct {
	gorm.Model
	RootName   string `gorm:"not null"`
	SrcPath    string `gorm:"not null"`
	DstPath    string `gorm:"not null"`
	Skipped    int64
	Copied     int64
	Archived   int64
	Dirs       int64
	TotalFiles int64
	DryRun     bool
	ErrMsg     string
	StartedAt  time.Time `gorm:"not null"`
	DurationMS int64
}
