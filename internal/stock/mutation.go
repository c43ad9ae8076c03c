package stock

import (
	"errors"
	"fmt"

	"pantry-planner/internal/ingredient"
)

var (
	// ErrEntryNotFound is returned when a mutation targets a missing entry.
	ErrEntryNotFound = errors.New("stock entry not found")
	// ErrDuplicateEntry is returned when a create mutation reuses an ID.
	ErrDuplicateEntry = errors.New("stock entry already exists")
	// ErrConflict is returned when a batch could not get the write lock
	// before the busy timeout ran out.
	ErrConflict = errors.New("stock is locked by another writer")
)

// MutationKind tags a Mutation.
type MutationKind string

const (
	KindIncrement MutationKind = "increment"
	KindDecrement MutationKind = "decrement"
	KindCreate    MutationKind = "create"
	KindDelete    MutationKind = "delete"
)

// Mutation is one intended change to the Stock Store. Increment and
// decrement carry EntryID and Delta, create carries Entry, delete carries
// EntryID.
type Mutation struct {
	Kind    MutationKind      `json:"kind"`
	EntryID string            `json:"entry_id,omitempty"`
	Delta   ingredient.Amount `json:"delta"`
	Entry   *Entry            `json:"entry,omitempty"`
}

func Increment(entryID string, delta ingredient.Amount) Mutation {
	return Mutation{Kind: KindIncrement, EntryID: entryID, Delta: delta}
}

// Decrement lowers an entry by delta; the result is floored at zero.
func Decrement(entryID string, delta ingredient.Amount) Mutation {
	return Mutation{Kind: KindDecrement, EntryID: entryID, Delta: delta}
}

func Create(e Entry) Mutation {
	return Mutation{Kind: KindCreate, EntryID: e.ID, Entry: &e}
}

func Delete(entryID string) Mutation {
	return Mutation{Kind: KindDelete, EntryID: entryID}
}

func (m Mutation) String() string {
	switch m.Kind {
	case KindCreate:
		if m.Entry != nil {
			return fmt.Sprintf("create %s (%s %s)", m.Entry.Name, m.Entry.Quantity, m.Entry.Unit)
		}
	case KindDelete:
		return fmt.Sprintf("delete %s", m.EntryID)
	}
	return fmt.Sprintf("%s %s by %s", m.Kind, m.EntryID, m.Delta)
}

// Apply returns the entries that result from applying mutations in order to
// a snapshot. The input slice is not modified. Deleting a missing entry is a
// no-op, so a scheduled removal can be replayed safely.
func Apply(entries []Entry, mutations []Mutation) ([]Entry, error) {
	out := make([]Entry, len(entries))
	copy(out, entries)

	indexOf := func(id string) int {
		for i, e := range out {
			if e.ID == id {
				return i
			}
		}
		return -1
	}

	for _, m := range mutations {
		switch m.Kind {
		case KindIncrement, KindDecrement:
			i := indexOf(m.EntryID)
			if i < 0 {
				return nil, fmt.Errorf("failed to %s: %w: %s", m.Kind, ErrEntryNotFound, m.EntryID)
			}
			out[i].Quantity = next(out[i].Quantity, m)
		case KindCreate:
			if m.Entry == nil {
				return nil, fmt.Errorf("failed to create: mutation has no entry")
			}
			if indexOf(m.Entry.ID) >= 0 {
				return nil, fmt.Errorf("failed to create: %w: %s", ErrDuplicateEntry, m.Entry.ID)
			}
			out = append(out, *m.Entry)
		case KindDelete:
			if i := indexOf(m.EntryID); i >= 0 {
				out = append(out[:i], out[i+1:]...)
			}
		default:
			return nil, fmt.Errorf("unknown mutation kind %q", m.Kind)
		}
	}
	return out, nil
}

// next computes the quantity after an increment or decrement.
func next(current ingredient.Amount, m Mutation) ingredient.Amount {
	if m.Kind == KindIncrement {
		return current.Add(m.Delta)
	}
	return current.Sub(m.Delta)
}
