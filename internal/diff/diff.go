// Package diff computes field-level deltas between record snapshots. All
// functions are pure and total: malformed or absent input maps to a defined
// result, never an error.
package diff

import (
	"encoding/json"
	"sort"

	"github.com/fintrail/audita/internal/fieldval"
)

// Operation classifies a mutation of a subject record.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// allFieldsSentinel marks a change set covering the whole record
// (Create/Delete) in serialized form.
const allFieldsSentinel = "*"

// ChangeSet is the set of field names touched by a mutation, or the
// "all fields" sentinel used for Create and Delete.
type ChangeSet struct {
	all    bool
	fields []string
}

// AllFields returns the sentinel change set covering every field.
func AllFields() ChangeSet { return ChangeSet{all: true} }

// Fields builds a change set from explicit field names, sorted and
// de-duplicated.
func Fields(names ...string) ChangeSet {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return ChangeSet{fields: out}
}

func (c ChangeSet) All() bool   { return c.all }
func (c ChangeSet) Empty() bool { return !c.all && len(c.fields) == 0 }

// Names returns the explicit field names, nil for the all-fields sentinel.
func (c ChangeSet) Names() []string {
	if c.all {
		return nil
	}
	out := make([]string, len(c.fields))
	copy(out, c.fields)
	return out
}

// Contains reports whether the set covers the given field.
func (c ChangeSet) Contains(field string) bool {
	if c.all {
		return true
	}
	i := sort.SearchStrings(c.fields, field)
	return i < len(c.fields) && c.fields[i] == field
}

// Intersects reports whether the set shares at least one field with names.
func (c ChangeSet) Intersects(names []string) bool {
	if len(names) == 0 {
		return false
	}
	if c.all {
		return true
	}
	for _, n := range names {
		if c.Contains(n) {
			return true
		}
	}
	return false
}

// Intersect keeps only the fields also present in names. The all-fields
// sentinel is preserved as-is.
func (c ChangeSet) Intersect(names []string) ChangeSet {
	if c.all {
		return c
	}
	keep := make(map[string]struct{}, len(names))
	for _, n := range names {
		keep[n] = struct{}{}
	}
	out := make([]string, 0, len(c.fields))
	for _, f := range c.fields {
		if _, ok := keep[f]; ok {
			out = append(out, f)
		}
	}
	return ChangeSet{fields: out}
}

func (c ChangeSet) MarshalJSON() ([]byte, error) {
	if c.all {
		return json.Marshal([]string{allFieldsSentinel})
	}
	if c.fields == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(c.fields)
}

func (c *ChangeSet) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	if len(names) == 1 && names[0] == allFieldsSentinel {
		*c = AllFields()
		return nil
	}
	*c = Fields(names...)
	return nil
}

// Diff computes the changed-field set and operation kind between two
// snapshots. A nil previous means Create, a nil next means Delete; both carry
// the all-fields sentinel. An update with no differing fields still reports
// Update with an empty set — suppressing no-op entries is the caller's call.
func Diff(previous, next fieldval.Snapshot) (ChangeSet, Operation) {
	if previous == nil {
		return AllFields(), OperationCreate
	}
	if next == nil {
		return AllFields(), OperationDelete
	}

	changed := make([]string, 0)
	for _, k := range fieldval.UnionKeys(previous, next) {
		if !normalized(previous, k).Equal(normalized(next, k)) {
			changed = append(changed, k)
		}
	}
	return Fields(changed...), OperationUpdate
}

// normalized treats a missing key and an explicit null as the same value.
func normalized(s fieldval.Snapshot, key string) fieldval.Value {
	v, ok := s[key]
	if !ok {
		return fieldval.Null()
	}
	return v
}
