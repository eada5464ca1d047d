package tokenstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	sqliteMemory, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore(:memory:) error: %v", err)
	}
	sqliteFile, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tokens.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore(file) error: %v", err)
	}
	mr := miniredis.RunT(t)
	redisStore, err := NewRedisStore("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore error: %v", err)
	}

	stores := map[string]Store{
		"memory":        NewMemoryStore(),
		"sqlite memory": sqliteMemory,
		"sqlite file":   sqliteFile,
		"redis":         redisStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStores_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get(ctx, "token"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound for a missing key, got %v", err)
			}

			if err := store.Set(ctx, "token", "abc"); err != nil {
				t.Fatalf("Set error: %v", err)
			}
			if err := store.Set(ctx, "token", "def"); err != nil {
				t.Fatalf("overwriting Set error: %v", err)
			}
			got, err := store.Get(ctx, "token")
			if err != nil {
				t.Fatalf("Get error: %v", err)
			}
			if got != "def" {
				t.Errorf("Get = %q, want %q", got, "def")
			}

			if err := store.Delete(ctx, "token"); err != nil {
				t.Fatalf("Delete error: %v", err)
			}
			if _, err := store.Get(ctx, "token"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound after Delete, got %v", err)
			}
			if err := store.Delete(ctx, "token"); err != nil {
				t.Errorf("deleting a missing key should succeed, got %v", err)
			}
		})
	}
}

func TestRedisStore_WritesToServer(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore error: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Set(context.Background(), "token", "secret"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	got, err := mr.Get("token")
	if err != nil {
		t.Fatalf("miniredis Get error: %v", err)
	}
	if got != "secret" {
		t.Errorf("server holds %q, want %q", got, "secret")
	}
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name             string
		storeType        string
		connectionString string
		wantErr          bool
	}{
		{name: "default is memory", storeType: ""},
		{name: "memory", storeType: TypeMemory},
		{name: "sqlite", storeType: TypeSQLite, connectionString: ":memory:"},
		{name: "redis", storeType: TypeRedis, connectionString: "redis://" + mr.Addr()},
		{name: "bad redis url", storeType: TypeRedis, connectionString: "not a url", wantErr: true},
		{name: "unsupported", storeType: "etcd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(tt.storeType, tt.connectionString)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New error: %v", err)
			}
			_ = store.Close()
		})
	}
}
