package types

import (
	"fmt"
	"strings"
)

// Collection is one tracked comic series.
// Owned[i] reports whether issue i+1 is owned; len(Owned) == Numeri.
type Collection struct {
	ID          int64  `json:"id"`
	Collana     string `json:"collana"`
	NomeFumetto string `json:"nomeFumetto"`
	Numeri      int    `json:"numeri"`
	Owned       []bool `json:"owned"`
	Copertina   string `json:"copertina"`
}

// Stats returns the completion statistics of the collection.
func (c Collection) Stats() CollectionStats {
	return Stats(c.Owned)
}

// Metadata holds the user-editable fields of a collection. It is the input
// of both creation and metadata updates.
type Metadata struct {
	Collana     string
	NomeFumetto string
	Numeri      int
	Copertina   string
}

// Normalize returns a copy with surrounding whitespace removed from the
// series and title.
func (m Metadata) Normalize() Metadata {
	m.Collana = strings.TrimSpace(m.Collana)
	m.NomeFumetto = strings.TrimSpace(m.NomeFumetto)
	return m
}

// Validate checks the required fields. Errors wrap ErrValidation.
func (m Metadata) Validate() error {
	m = m.Normalize()
	if m.Collana == "" {
		return fmt.Errorf("%w: collana is required", ErrValidation)
	}
	if m.NomeFumetto == "" {
		return fmt.Errorf("%w: nomeFumetto is required", ErrValidation)
	}
	if m.Numeri < 1 {
		return fmt.Errorf("%w: numeri must be at least 1, got %d", ErrValidation, m.Numeri)
	}
	return nil
}

// ReconcileOwned returns a bitmap of length n built from owned: entries are
// kept in order, missing entries are false, entries past n are dropped.
// The input slice is never modified.
func ReconcileOwned(owned []bool, n int) []bool {
	if n < 0 {
		n = 0
	}
	out := make([]bool, n)
	copy(out, owned)
	return out
}

// MetadataPlan describes the effect of a metadata update before it is
// applied. A plan that truncates the bitmap must be applied with explicit
// confirmation.
type MetadataPlan struct {
	ID       int64
	Metadata Metadata

	// CurrentNumeri is the stored bitmap length the plan was computed from.
	CurrentNumeri int
	// Owned is the reconciled bitmap as of planning. Applying rebuilds it
	// from the bitmap stored at that moment.
	Owned []bool
	// Dropped counts trailing issues whose state is discarded.
	Dropped int
	// DroppedOwned counts the dropped issues that were owned.
	DroppedOwned int
}

// Truncates reports whether applying the plan discards issue state.
func (p MetadataPlan) Truncates() bool {
	return p.Dropped > 0
}

// NewMetadataPlan computes the plan for replacing the metadata of a
// collection whose current bitmap is owned.
func NewMetadataPlan(id int64, owned []bool, m Metadata) MetadataPlan {
	m = m.Normalize()
	plan := MetadataPlan{
		ID:            id,
		Metadata:      m,
		CurrentNumeri: len(owned),
		Owned:         ReconcileOwned(owned, m.Numeri),
	}
	if m.Numeri < len(owned) {
		plan.Dropped = len(owned) - m.Numeri
		for _, v := range owned[m.Numeri:] {
			if v {
				plan.DroppedOwned++
			}
		}
	}
	return plan
}
