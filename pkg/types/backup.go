package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"
)

// BackupVersion is the only backup document version accepted on restore.
const BackupVersion = "1.0"

// backupTimestampLayout matches JavaScript's Date.prototype.toISOString.
const backupTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// BackupDocument is the versioned JSON snapshot of every collection.
type BackupDocument struct {
	Version     string        `json:"version"`
	Timestamp   string        `json:"timestamp"`
	Collections []BackupEntry `json:"collections"`
}

// BackupEntry is one collection inside a backup. ID is informational; it is
// reassigned on restore.
type BackupEntry struct {
	ID          *int64 `json:"id,omitempty"`
	Collana     string `json:"collana"`
	NomeFumetto string `json:"nomeFumetto"`
	Numeri      int    `json:"numeri"`
	Owned       []bool `json:"owned"`
	Copertina   string `json:"copertina"`
}

// Metadata returns the editable fields of the entry.
func (e BackupEntry) Metadata() Metadata {
	return Metadata{
		Collana:     e.Collana,
		NomeFumetto: e.NomeFumetto,
		Numeri:      e.Numeri,
		Copertina:   e.Copertina,
	}
}

// NewBackupDocument snapshots collections at time now.
func NewBackupDocument(collections []Collection, now time.Time) BackupDocument {
	doc := BackupDocument{
		Version:     BackupVersion,
		Timestamp:   now.UTC().Format(backupTimestampLayout),
		Collections: make([]BackupEntry, 0, len(collections)),
	}
	for _, c := range collections {
		id := c.ID
		doc.Collections = append(doc.Collections, BackupEntry{
			ID:          &id,
			Collana:     c.Collana,
			NomeFumetto: c.NomeFumetto,
			Numeri:      c.Numeri,
			Owned:       append([]bool(nil), c.Owned...),
			Copertina:   c.Copertina,
		})
	}
	return doc
}

// Validate checks the document before any destructive step. Errors wrap
// ErrFormat and name the 1-based entry index.
func (d BackupDocument) Validate() error {
	if d.Version != BackupVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrFormat, d.Version)
	}
	if d.Collections == nil {
		return fmt.Errorf("%w: collections must be an array", ErrFormat)
	}
	if len(d.Collections) == 0 {
		return fmt.Errorf("%w: backup contains no collections", ErrFormat)
	}

	seen := make(map[[2]string]int, len(d.Collections))
	for i, e := range d.Collections {
		if e.Owned == nil {
			return fmt.Errorf("%w: invalid field 'owned' in collection %d", ErrFormat, i+1)
		}
		if err := e.Metadata().Validate(); err != nil {
			return fmt.Errorf("%w: collection %d: %v", ErrFormat, i+1, err)
		}
		m := e.Metadata().Normalize()
		key := [2]string{m.Collana, m.NomeFumetto}
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: collection %d duplicates collection %d", ErrFormat, i+1, prev)
		}
		seen[key] = i + 1
	}
	return nil
}

// EncodeBackup writes doc as indented JSON.
func EncodeBackup(w io.Writer, doc BackupDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// requiredEntryFields lists the keys every backup entry must carry.
var requiredEntryFields = []string{"collana", "nomeFumetto", "numeri", "owned"}

// DecodeBackup parses and structurally validates a backup document. Missing
// fields and wrong JSON types are reported here, because they are not
// visible after decoding into BackupDocument. Errors wrap ErrFormat.
func DecodeBackup(r io.Reader) (BackupDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return BackupDocument{}, fmt.Errorf("%w: reading backup: %v", ErrFormat, err)
	}

	var raw struct {
		Version     json.RawMessage `json:"version"`
		Timestamp   json.RawMessage `json:"timestamp"`
		Collections json.RawMessage `json:"collections"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return BackupDocument{}, fmt.Errorf("%w: not valid JSON: %v", ErrFormat, err)
	}

	var doc BackupDocument
	if err := json.Unmarshal(raw.Version, &doc.Version); err != nil || doc.Version != BackupVersion {
		return BackupDocument{}, fmt.Errorf("%w: unsupported version", ErrFormat)
	}
	if len(raw.Timestamp) > 0 {
		// The timestamp is informational; a non-string is ignored.
		_ = json.Unmarshal(raw.Timestamp, &doc.Timestamp)
	}

	trimmed := bytes.TrimSpace(raw.Collections)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return BackupDocument{}, fmt.Errorf("%w: collections must be an array", ErrFormat)
	}
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return BackupDocument{}, fmt.Errorf("%w: collections must be an array of objects", ErrFormat)
	}
	if len(entries) == 0 {
		return BackupDocument{}, fmt.Errorf("%w: backup contains no collections", ErrFormat)
	}

	doc.Collections = make([]BackupEntry, 0, len(entries))
	for i, fields := range entries {
		entry, err := decodeEntry(fields)
		if err != nil {
			return BackupDocument{}, fmt.Errorf("%w in collection %d", err, i+1)
		}
		doc.Collections = append(doc.Collections, entry)
	}

	if err := doc.Validate(); err != nil {
		return BackupDocument{}, err
	}
	return doc, nil
}

func decodeEntry(fields map[string]json.RawMessage) (BackupEntry, error) {
	var e BackupEntry
	for _, name := range requiredEntryFields {
		if _, ok := fields[name]; !ok {
			return e, fmt.Errorf("%w: missing field '%s'", ErrFormat, name)
		}
	}

	if err := json.Unmarshal(fields["collana"], &e.Collana); err != nil {
		return e, fmt.Errorf("%w: invalid field 'collana'", ErrFormat)
	}
	if err := json.Unmarshal(fields["nomeFumetto"], &e.NomeFumetto); err != nil {
		return e, fmt.Errorf("%w: invalid field 'nomeFumetto'", ErrFormat)
	}

	var numeri float64
	if err := json.Unmarshal(fields["numeri"], &numeri); err != nil ||
		numeri < 1 || numeri != math.Trunc(numeri) || numeri > math.MaxInt32 {
		return e, fmt.Errorf("%w: invalid field 'numeri'", ErrFormat)
	}
	e.Numeri = int(numeri)

	owned, err := decodeOwnedField(fields["owned"])
	if err != nil {
		return e, fmt.Errorf("%w: invalid field 'owned'", ErrFormat)
	}
	e.Owned = owned

	if raw, ok := fields["copertina"]; ok {
		var cover *string
		if err := json.Unmarshal(raw, &cover); err != nil {
			return e, fmt.Errorf("%w: invalid field 'copertina'", ErrFormat)
		}
		if cover != nil {
			e.Copertina = *cover
		}
	}

	if raw, ok := fields["id"]; ok {
		var id *int64
		if err := json.Unmarshal(raw, &id); err == nil {
			e.ID = id
		}
	}
	return e, nil
}

// decodeOwnedField decodes an array of booleans. encoding/json leaves a
// null element as false, so elements are decoded through pointers and
// nulls rejected.
func decodeOwnedField(raw json.RawMessage) ([]bool, error) {
	var elems []*bool
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, err
	}
	if elems == nil {
		return nil, errors.New("owned is null")
	}
	owned := make([]bool, len(elems))
	for i, v := range elems {
		if v == nil {
			return nil, fmt.Errorf("owned[%d] is null", i)
		}
		owned[i] = *v
	}
	return owned, nil
}

// BackupFileName returns the export file name for a backup taken at t.
func BackupFileName(t time.Time) string {
	return "fumetti_backup_" + t.UTC().Format("2006-01-02") + ".json"
}

// CheckBackupFileName rejects import files without a .json extension.
func CheckBackupFileName(name string) error {
	if !strings.EqualFold(filepath.Ext(name), ".json") {
		return fmt.Errorf("%w: the file must be a JSON backup (.json)", ErrFormat)
	}
	return nil
}

// RestorePlan describes the effect of restoring a backup. Applying it
// discards every existing collection.
type RestorePlan struct {
	Document BackupDocument
	// Incoming is the number of collections the backup contains.
	Incoming int
	// Discarded is the number of collections currently stored.
	Discarded int
}
