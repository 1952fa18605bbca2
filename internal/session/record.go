package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinCapacity = 6
	MaxCapacity = 12

	DefaultCapacity = 8
	maxNameRunes    = 64
)

var ErrEmptyName = errors.New("display name is required")
var ErrNameTooLong = errors.New("display name too long")
var ErrCapacityOutOfRange = fmt.Errorf("capacity must be between %d and %d", MinCapacity, MaxCapacity)

// Record is a session as the store reports it. Every field except Verified and
// RevealedValue is fixed at creation.
type Record struct {
	ID            string
	DisplayName   string
	Description   string
	Capacity      int
	Creator       string
	CreatedAt     time.Time
	Verified      bool
	RevealedValue uint64 // meaningful only when Verified
}

// Revealed returns the store-authoritative value and whether one exists.
func (r Record) Revealed() (uint64, bool) {
	if !r.Verified {
		return 0, false
	}
	return r.RevealedValue, true
}

// Form is the creation input.
type Form struct {
	DisplayName string
	Capacity    int
}

func NewForm() Form {
	return Form{Capacity: DefaultCapacity}
}

func (f Form) Validate() error {
	name := strings.TrimSpace(f.DisplayName)
	if name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		return ErrNameTooLong
	}
	if f.Capacity < MinCapacity || f.Capacity > MaxCapacity {
		return ErrCapacityOutOfRange
	}
	return nil
}

// Reveals remembers every verified record observed, keyed by ID, with the
// first revealed value seen. It outlives any single read, so a record that
// drops out of one refresh and comes back lagging is still verified.
type Reveals map[string]uint64

// Pin returns a copy of list with every remembered record verified, and
// remembers the verified records list reports for the first time.
func (m Reveals) Pin(list []Record) []Record {
	out := make([]Record, len(list))
	for i, r := range list {
		if v, ok := m[r.ID]; ok {
			r.Verified = true
			r.RevealedValue = v
		} else if r.Verified {
			m[r.ID] = r.RevealedValue
		}
		out[i] = r
	}
	return out
}

// Upsert returns a copy of list with r replacing the entry with the same ID.
// Unknown IDs are appended.
func Upsert(list []Record, r Record) []Record {
	out := make([]Record, len(list))
	copy(out, list)
	for i, old := range out {
		if old.ID == r.ID {
			out[i] = r
			return out
		}
	}
	return append(out, r)
}

// SortNewestFirst orders records by creation time, newest first, breaking
// ties by ID so refreshes render in a stable order.
func SortNewestFirst(list []Record) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

func Find(list []Record, id string) (Record, bool) {
	for _, r := range list {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}
