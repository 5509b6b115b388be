package seed

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/datastore"
)

func run(settings *conf.Settings, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := Command(settings)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeedUsersThenTableItems(t *testing.T) {
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = t.TempDir() + "/seed.db"

	out, err := run(settings, "users")
	require.NoError(t, err)
	assert.Equal(t, 10, strings.Count(out, "✅ Created"))

	out, err = run(settings, "users")
	require.NoError(t, err)
	assert.Equal(t, 10, strings.Count(out, "already exists"))

	out, err = run(settings, "items", "--table")
	require.NoError(t, err)
	assert.Equal(t, 10, strings.Count(out, "✅ Added"))

	store := datastore.New(settings)
	require.NoError(t, store.Open())
	defer store.Close()
	items, err := store.ListItems(context.Background(), datastore.Scope{Superuser: true})
	require.NoError(t, err)
	assert.Len(t, items, 10)
}

func TestSeedSheetItems(t *testing.T) {
	settings := &conf.Settings{}

	_, err := run(settings, "items")
	require.ErrorIs(t, err, errSheetsDisabled)

	settings.Sheets.Enabled = true
	settings.Sheets.Backend = conf.SheetsBackendMemory
	out, err := run(settings, "items")
	require.NoError(t, err)
	assert.Contains(t, out, "✅ Email column header added/verified")
	assert.Contains(t, out, "✅ Added: ID 1 | Laptop Dell XPS | user1@example.com")
}
