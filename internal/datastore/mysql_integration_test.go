//go:build integration

package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/errors"
)

// startMySQL runs a MySQL container and returns a store connected to it.
func startMySQL(t *testing.T) *MySQLStore {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := tcmysql.Run(ctx, "mysql:8.4",
		tcmysql.WithDatabase("itemstore"),
		tcmysql.WithUsername("itemstore"),
		tcmysql.WithPassword("itemstore"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	settings := &conf.Settings{}
	settings.Output.MySQL = conf.MySQLSettings{
		Enabled:  true,
		Username: "itemstore",
		Password: "itemstore",
		Database: "itemstore",
		Host:     host,
		Port:     port.Port(),
	}

	store, ok := New(settings).(*MySQLStore)
	require.True(t, ok)
	require.NoError(t, store.Open())
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func TestMySQLStoreOwnerScopeAndConflicts(t *testing.T) {
	store := startMySQL(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	alice := createUser(t, store, "alice", false)
	bob := createUser(t, store, "bob", false)
	item := createItem(t, store, alice, "Laptop")

	_, err := store.GetItem(ctx, Scope{UserID: bob.ID}, item.ID)
	assert.True(t, errors.IsNotFound(err))

	err = store.CreateUser(ctx, &User{Username: "alice", PasswordHash: "x", IsActive: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateUser)

	require.NoError(t, store.DB.Delete(&User{}, alice.ID).Error)
	items, err := store.ListItems(ctx, Scope{Superuser: true})
	require.NoError(t, err)
	assert.Empty(t, items)
}
