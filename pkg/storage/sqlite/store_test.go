package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/blotter/pkg/domain/store"
	"github.com/felixgeelhaar/blotter/pkg/storage/sqlite"
	"github.com/felixgeelhaar/blotter/pkg/storage/storetest"
)

func tempDB(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "blotter.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Repository { return tempDB(t) })
}

func TestStore_InMemory(t *testing.T) {
	s, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	cases, err := s.ListCases(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cases) != 0 {
		t.Errorf("expected empty store, got %d cases", len(cases))
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "blotter.db")
	s, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	_ = s.Close()

	s, err = sqlite.Open(path)
	if err != nil {
		t.Fatalf("reopen with existing schema: %v", err)
	}
	_ = s.Close()
}
