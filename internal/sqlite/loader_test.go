package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/staffdir/pkg/types"
)

func TestLoadPeopleJSONL(t *testing.T) {
	tests := []struct {
		name     string
		jsonl    string
		wantKeys []string
	}{
		{
			name: "well-formed lines load",
			jsonl: `{"person_key":"p1","display_name":"Ada Lovelace","contact_info":"ada@example.com"}
{"person_key":"p2","display_name":"Alan Turing"}
`,
			wantKeys: []string{"p1", "p2"},
		},
		{
			name: "unknown fields are ignored",
			jsonl: `{"person_key":"p1","display_name":"Ada","department":"R&D","future":true}
`,
			wantKeys: []string{"p1"},
		},
		{
			name: "malformed and incomplete lines are skipped",
			jsonl: `{"person_key":"p1","display_name":"Ada"}
{broken
{"person_key":"","display_name":"No key"}
{"person_key":"p3","display_name":""}
{"person_key":"p4","display_name":"Grace"}
`,
			wantKeys: []string{"p1", "p4"},
		},
		{
			name: "later duplicate wins",
			jsonl: `{"person_key":"p1","display_name":"Old"}
{"person_key":"p1","display_name":"New"}
`,
			wantKeys: []string{"p1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, peopleJSONL), []byte(tt.jsonl), 0o644))

			b := NewBackend(nil)
			require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
			defer b.Detach()

			ctx := context.Background()
			var keys []string
			for _, p := range b.SearchPeople(ctx, "") {
				keys = append(keys, p.Key)
			}
			assert.ElementsMatch(t, tt.wantKeys, keys)
		})
	}
}

func TestLoadPeopleJSONLDuplicateKeepsLast(t *testing.T) {
	dir := t.TempDir()
	jsonl := `{"person_key":"p1","display_name":"Old"}
{"person_key":"p1","display_name":"New"}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, peopleJSONL), []byte(jsonl), 0o644))

	b := NewBackend(nil)
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	defer b.Detach()

	p, err := b.GetPerson(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "New", p.DisplayName)
}

func TestReattachDropsPeopleRemovedFromJSONL(t *testing.T) {
	dir := t.TempDir()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir}
	ctx := context.Background()

	b := NewBackend(nil)
	require.NoError(t, b.Attach(config))
	p := addPerson(t, b, "Temp Worker")
	require.NoError(t, b.Detach())

	require.NoError(t, os.WriteFile(filepath.Join(dir, peopleJSONL), nil, 0o644))

	require.NoError(t, b.Attach(config))
	defer b.Detach()
	_, err := b.GetPerson(ctx, p.Key)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
