package manifest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"coldcopy/internal/model"

	"go.uber.org/zap"
)

// On-disk schema. The current format stores mtime twice (integer
// microseconds plus the readable stamp) the way earlier revisions did;
// the reader is liberal and accepts every legacy variant: mtime_utc as a
// 14- or 20-digit string or as integer microseconds, and the old
// use_gztar boolean instead of compr_mth.
const formatVersion = 2

const metaKey = "_meta_"

type manifestMeta struct {
	Version    int    `json:"version"`
	CreatedUTC string `json:"created_utc"`
}

type entryJSON struct {
	Type      string                `json:"type"`
	Size      *int64                `json:"size,omitempty"`
	FileCount int64                 `json:"no_f,omitempty"`
	ComprMth  *string               `json:"compr_mth,omitempty"`
	UseGztar  *bool                 `json:"use_gztar,omitempty"` // legacy
	MTimePx6  *int64                `json:"mtime_px6,omitempty"`
	MTimeUTC  json.RawMessage       `json:"mtime_utc,omitempty"`
	SubFiles  map[string]*entryJSON `json:"sub_files,omitempty"`
}

func encodeManifest(rootName string, root *model.TreeEntry, stamp string) ([]byte, error) {
	doc := map[string]any{
		metaKey: manifestMeta{
			Version:    formatVersion,
			CreatedUTC: stamp,
		},
		rootName: encodeEntry(root),
	}

	return json.MarshalIndent(doc, "", " ")
}

func encodeEntry(e *model.TreeEntry) *entryJSON {
	size := e.Size
	px6 := e.MTime
	compr := string(e.Archive)

	j := &entryJSON{
		Type:      string(e.Kind),
		Size:      &size,
		FileCount: e.FileCount,
		ComprMth:  &compr,
		MTimePx6:  &px6,
		MTimeUTC:  json.RawMessage(strconv.Quote(e.MTimeString())),
	}

	if e.Kind == model.KindDir && e.Archive != model.ArchiveTarGz {
		j.SubFiles = make(map[string]*entryJSON, len(e.Children))
		for name, child := range e.Children {
			j.SubFiles[name] = encodeEntry(child)
		}
	}

	return j
}

func decodeManifest(data []byte, rootName string, log *zap.Logger) (*model.TreeEntry, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	raw, ok := doc[rootName]
	if !ok {
		// older runs may have been made with a different root name;
		// fall back to the single non-meta key
		for key, val := range doc {
			if strings.HasPrefix(key, "_") {
				continue
			}
			raw, ok = val, true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("no filetree for root %q in manifest", rootName)
	}

	var j entryJSON
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, fmt.Errorf("failed to parse filetree: %w", err)
	}

	root, err := decodeEntry(&j, rootName, log)
	if err != nil {
		return nil, err
	}

	return root, nil
}

func decodeEntry(j *entryJSON, name string, log *zap.Logger) (*model.TreeEntry, error) {
	var kind model.EntryKind
	switch j.Type {
	case "file":
		kind = model.KindFile
	case "link":
		kind = model.KindLink
	case "dir":
		kind = model.KindDir
	default:
		return nil, fmt.Errorf("entry %q: unknown type %q", name, j.Type)
	}

	if j.Size == nil {
		return nil, fmt.Errorf("entry %q: missing size", name)
	}

	mtime, err := decodeMTime(j)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", name, err)
	}

	archive := model.ArchiveNone
	switch {
	case j.ComprMth != nil:
		switch *j.ComprMth {
		case "gzip":
			archive = model.ArchiveGzip
		case "gztar":
			archive = model.ArchiveTarGz
		case "":
		default:
			return nil, fmt.Errorf("entry %q: unknown compression method %q", name, *j.ComprMth)
		}
	case j.UseGztar != nil && *j.UseGztar:
		archive = model.ArchiveTarGz
	}

	e := &model.TreeEntry{
		Kind:      kind,
		Size:      *j.Size,
		FileCount: j.FileCount,
		MTime:     mtime,
		Archive:   archive,
	}
	if e.FileCount == 0 && kind != model.KindDir {
		e.FileCount = 1
	}

	if kind == model.KindDir && archive != model.ArchiveTarGz {
		e.Children = make(map[string]*model.TreeEntry, len(j.SubFiles))
		for childName, childJSON := range j.SubFiles {
			if childJSON == nil {
				continue
			}
			child, err := decodeEntry(childJSON, childName, log)
			if err != nil {
				// a broken old entry just means that subtree gets
				// backed up again
				log.Warn("dropping unreadable filetree entry",
					zap.String("name", childName),
					zap.Error(err))
				continue
			}
			e.Children[childName] = child
		}
	}

	return e, nil
}

func decodeMTime(j *entryJSON) (int64, error) {
	if j.MTimePx6 != nil {
		return *j.MTimePx6, nil
	}

	if len(j.MTimeUTC) == 0 {
		return 0, fmt.Errorf("missing mtime")
	}

	var asString string
	if err := json.Unmarshal(j.MTimeUTC, &asString); err == nil {
		return model.ParseStamp(asString)
	}

	var asInt int64
	if err := json.Unmarshal(j.MTimeUTC, &asInt); err == nil {
		return asInt, nil
	}

	return 0, fmt.Errorf("unparsable mtime %s", string(j.MTimeUTC))
}
