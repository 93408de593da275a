package engine

import (
	"coldcopy/internal/model"
)

// BackupName computes the destination artifact name for an entry:
// <path>.bkp<mtime>._bkp_ plus the extension its archive mode implies.
// The mtime stamp makes names unique across runs, so old backups are
// never clobbered.
func BackupName(dstPath, mtimeStamp string, mode model.ArchiveMode) string {
	name := dstPath + ".bkp" + mtimeStamp + "._bkp_"

	switch mode {
	case model.ArchiveGzip:
		name += ".gz"
	case model.ArchiveTarGz:
		name += ".tar.gz"
	}

	return name
}
