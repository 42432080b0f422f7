// Package dbtest opens throwaway in-memory databases for package tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/db"
)

func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	dsn := fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)

	gdb, err := db.Open(context.Background(), dsn)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background(), gdb))

	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}
