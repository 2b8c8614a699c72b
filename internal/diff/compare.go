package diff

import "github.com/fintrail/audita/internal/fieldval"

// ChangeKind classifies a single field transition between two snapshots.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeRemoved ChangeKind = "removed"
	ChangeChanged ChangeKind = "changed"
)

// FieldChange describes one field's transition between two snapshots.
type FieldChange struct {
	Field string         `json:"field"`
	Old   fieldval.Value `json:"oldValue"`
	New   fieldval.Value `json:"newValue"`
	Kind  ChangeKind     `json:"changeKind"`
}

// Compare lists the per-field transitions between two snapshots, ordered by
// lexical field name. Fields equal after normalization are omitted.
func Compare(a, b fieldval.Snapshot) []FieldChange {
	changes := make([]FieldChange, 0)
	for _, k := range fieldval.UnionKeys(a, b) {
		oldV := normalized(a, k)
		newV := normalized(b, k)
		if oldV.Equal(newV) {
			continue
		}
		kind := ChangeChanged
		switch {
		case oldV.IsNull():
			kind = ChangeAdded
		case newV.IsNull():
			kind = ChangeRemoved
		}
		changes = append(changes, FieldChange{Field: k, Old: oldV, New: newV, Kind: kind})
	}
	return changes
}
