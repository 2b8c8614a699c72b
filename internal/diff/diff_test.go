package diff

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrail/audita/internal/fieldval"
)

func snap(m map[string]any) fieldval.Snapshot {
	return fieldval.SnapshotFromAny(m)
}

func TestDiff_CreateAndDelete(t *testing.T) {
	cs, op := Diff(nil, snap(map[string]any{"nome": "Ana"}))
	assert.Equal(t, OperationCreate, op)
	assert.True(t, cs.All())

	cs, op = Diff(snap(map[string]any{"nome": "Ana"}), nil)
	assert.Equal(t, OperationDelete, op)
	assert.True(t, cs.All())
}

func TestDiff_Update(t *testing.T) {
	tests := []struct {
		name    string
		prev    map[string]any
		next    map[string]any
		changed []string
	}{
		{
			name:    "single field changed",
			prev:    map[string]any{"nome": "Ana"},
			next:    map[string]any{"nome": "Ana Silva"},
			changed: []string{"nome"},
		},
		{
			name:    "null equals missing",
			prev:    map[string]any{"nome": "Ana", "obs": nil},
			next:    map[string]any{"nome": "Ana"},
			changed: []string{},
		},
		{
			name:    "numbers compare numerically",
			prev:    map[string]any{"limite": 1500},
			next:    map[string]any{"limite": 1500.0},
			changed: []string{},
		},
		{
			name:    "added and removed fields",
			prev:    map[string]any{"a": 1, "b": 2},
			next:    map[string]any{"b": 2, "c": 3},
			changed: []string{"a", "c"},
		},
		{
			name:    "no differences still an update",
			prev:    map[string]any{"nome": "Ana"},
			next:    map[string]any{"nome": "Ana"},
			changed: []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cs, op := Diff(snap(tc.prev), snap(tc.next))
			assert.Equal(t, OperationUpdate, op)
			assert.False(t, cs.All())
			assert.Equal(t, tc.changed, cs.Names())
		})
	}
}

func TestDiff_DirectionSymmetry(t *testing.T) {
	a := snap(map[string]any{"nome": "Ana", "cidade": "SP"})
	b := snap(map[string]any{"nome": "Beto", "uf": "RJ"})

	ab, _ := Diff(a, b)
	ba, _ := Diff(b, a)
	assert.Equal(t, ab.Names(), ba.Names(), "both directions must identify the same changed fields")
}

func TestChangeSet_JSON(t *testing.T) {
	b, err := json.Marshal(AllFields())
	require.NoError(t, err)
	assert.JSONEq(t, `["*"]`, string(b))

	var cs ChangeSet
	require.NoError(t, json.Unmarshal(b, &cs))
	assert.True(t, cs.All())

	b, err = json.Marshal(Fields("b", "a", "a"))
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(b))

	require.NoError(t, json.Unmarshal([]byte(`[]`), &cs))
	assert.True(t, cs.Empty())
}

func TestChangeSet_ContainsIntersects(t *testing.T) {
	cs := Fields("nome", "email")
	assert.True(t, cs.Contains("nome"))
	assert.False(t, cs.Contains("cpf"))
	assert.True(t, cs.Intersects([]string{"cpf", "email"}))
	assert.False(t, cs.Intersects([]string{"cpf"}))
	assert.False(t, cs.Intersects(nil))

	assert.True(t, AllFields().Contains("anything"))
	assert.True(t, AllFields().Intersects([]string{"x"}))
}

func TestChangeSet_Intersect(t *testing.T) {
	cs := Fields("nome", "email", "cpf").Intersect([]string{"cpf", "telefone"})
	assert.Equal(t, []string{"cpf"}, cs.Names())

	all := AllFields().Intersect([]string{"cpf"})
	assert.True(t, all.All(), "sentinel survives intersection")
}

func TestCompare(t *testing.T) {
	a := snap(map[string]any{"nome": "Ana", "obs": "x", "limite": 100})
	b := snap(map[string]any{"nome": "Ana Silva", "limite": 100, "email": "ana@ex.com"})

	changes := Compare(a, b)
	require.Len(t, changes, 3)

	// Ordered by lexical field name.
	assert.Equal(t, "email", changes[0].Field)
	assert.Equal(t, ChangeAdded, changes[0].Kind)
	assert.Equal(t, "nome", changes[1].Field)
	assert.Equal(t, ChangeChanged, changes[1].Kind)
	assert.Equal(t, "obs", changes[2].Field)
	assert.Equal(t, ChangeRemoved, changes[2].Kind)
}

func TestCompare_ScenarioNome(t *testing.T) {
	v1 := snap(map[string]any{"nome": "Ana"})
	v2 := snap(map[string]any{"nome": "Ana Silva"})

	changes := Compare(v1, v2)
	require.Len(t, changes, 1)
	assert.Equal(t, "nome", changes[0].Field)
	assert.Equal(t, "Ana", changes[0].Old.String())
	assert.Equal(t, "Ana Silva", changes[0].New.String())
	assert.Equal(t, ChangeChanged, changes[0].Kind)
}
