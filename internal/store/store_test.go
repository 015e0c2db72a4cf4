package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wt-go/internal/config"
	"wt-go/internal/wt"
)

// backends returns every local backend, built the way the app builds them,
// plus the S3 backend over an in-memory bucket.
func backends(t *testing.T) map[string]wt.ObjectStore {
	t.Helper()
	dir := t.TempDir()
	cfgs := map[string]config.StoreConfig{
		"memory":     {Type: "memory"},
		"filesystem": {Type: "filesystem", FSRoot: filepath.Join(dir, "objects")},
		"sqlite":     {Type: "sqlite", SQLitePath: filepath.Join(dir, "wt.db")},
	}

	stores := make(map[string]wt.ObjectStore)
	for name, cfg := range cfgs {
		s, err := NewStoreFromConfig(context.Background(), cfg)
		if err != nil {
			t.Fatalf("NewStoreFromConfig(%s) error = %v", name, err)
		}
		if c, ok := s.(interface{ Close() error }); ok {
			t.Cleanup(func() { c.Close() })
		}
		stores[name] = s
	}
	stores["s3"] = newS3Store("s3", "wt-test", newFakeS3("wt-test"))
	return stores
}

func putString(ctx context.Context, s wt.ObjectStore, key, body string) error {
	return s.Put(ctx, key, strings.NewReader(body), int64(len(body)), "application/json")
}

func TestObjectStore_Contract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := s.ValidateSetup(ctx); err != nil {
				t.Fatalf("ValidateSetup() error = %v", err)
			}

			keys, err := s.List(ctx, "data/")
			if err != nil {
				t.Fatalf("List() on empty store error = %v", err)
			}
			if len(keys) != 0 {
				t.Errorf("List() on empty store = %v, want none", keys)
			}

			for _, k := range []string{"data/1.json", "data/2.json", "data/notes.txt", "other/3.json"} {
				if err := putString(ctx, s, k, `{"key":"`+k+`"}`); err != nil {
					t.Fatalf("Put(%s) error = %v", k, err)
				}
			}
			if err := putString(ctx, s, "data/1.json", `{"v":2}`); err != nil {
				t.Fatalf("overwrite error = %v", err)
			}

			var buf bytes.Buffer
			if err := s.Get(ctx, "data/1.json", &buf); err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if buf.String() != `{"v":2}` {
				t.Errorf("Get() = %q, want overwritten value", buf.String())
			}

			keys, err = s.List(ctx, "data/")
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			want := "data/1.json,data/2.json,data/notes.txt"
			if got := strings.Join(keys, ","); got != want {
				t.Errorf("List() = %s, want %s", got, want)
			}

			if err := s.Delete(ctx, "data/2.json"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := s.Delete(ctx, "data/2.json"); err != nil {
				t.Errorf("second Delete() error = %v, want nil", err)
			}
			err = s.Get(ctx, "data/2.json", &bytes.Buffer{})
			if !errors.Is(err, wt.ErrObjectNotFound) {
				t.Errorf("Get() after delete error = %v, want ErrObjectNotFound", err)
			}

			if err := s.Put(ctx, "data/bad.json", strings.NewReader("abc"), 99, ""); err == nil {
				t.Error("Put() with size mismatch expected error, got nil")
			}
		})
	}
}

func TestFileSystemStore_RejectsEscapingKeys(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileSystemStore("test", filepath.Join(root, "objects"))
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	ctx := context.Background()
	if err := putString(ctx, s, "../escape.json", "{}"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "escape.json")); err == nil {
		t.Error("key with .. escaped the store root")
	}

	for _, key := range []string{"", "data/"} {
		if err := putString(ctx, s, key, "{}"); err == nil {
			t.Errorf("Put(%q) expected error, got nil", key)
		}
	}
}

func TestFileSystemStore_ListSkipsTempFiles(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileSystemStore("test", root)
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "data"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "data", ".tmp-123"), []byte("partial"), 0644); err != nil {
		t.Fatal(err)
	}

	keys, err := s.List(context.Background(), "data/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("List() = %v, want temp file skipped", keys)
	}
}

func TestMemoryStore_RecordsContentType(t *testing.T) {
	s := NewMemoryStore("test")
	if err := putString(context.Background(), s, "data/1.json", "{}"); err != nil {
		t.Fatal(err)
	}
	if got := s.ContentType("data/1.json"); got != "application/json" {
		t.Errorf("ContentType() = %q, want application/json", got)
	}
}

func TestNewStoreFromConfig(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.StoreConfig
		wantConfig bool
	}{
		{name: "s3 without bucket", cfg: config.StoreConfig{Type: "s3"}, wantConfig: true},
		{name: "filesystem without root", cfg: config.StoreConfig{Type: "filesystem"}, wantConfig: true},
		{name: "sqlite without path", cfg: config.StoreConfig{Type: "sqlite"}, wantConfig: true},
		{name: "unknown type", cfg: config.StoreConfig{Type: "ftp"}, wantConfig: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewStoreFromConfig(context.Background(), tt.cfg)
			if got != nil {
				t.Errorf("NewStoreFromConfig() = %v, want nil", got)
			}
			if errors.Is(err, wt.ErrConfiguration) != tt.wantConfig {
				t.Errorf("NewStoreFromConfig() error = %v, want ErrConfiguration %v", err, tt.wantConfig)
			}
		})
	}
}
