package db

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"roomchat/internal/app/store"
	"roomchat/internal/app/store/storetest"
	"roomchat/internal/pkg/logx"
)

func TestMain(m *testing.M) {
	logx.Silence(io.Discard)
	os.Exit(m.Run())
}

// openTestStore connects to TEST_DATABASE_URL and empties every table.
func openTestStore(t *testing.T) store.Store {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Skipf("Skipping test: database not available: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.pool.Exec(ctx, `TRUNCATE messages, room_members, rooms, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, openTestStore)
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetRoom(ctx, "not-a-uuid")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetUserByID(ctx, "42")
	require.ErrorIs(t, err, store.ErrNotFound)
}
