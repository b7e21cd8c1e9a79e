package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"asrama/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{DataBackend: "rest", APIBaseURL: "http://api", APITimeout: time.Second}
	bc, err := FromAppConfig(cfg)
	if err != nil || bc.Type != RestBackend || bc.APIBaseURL != "http://api" {
		t.Fatalf("unexpected: %+v %v", bc, err)
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "memory", config: Config{Type: MemoryBackend, AdminEmail: "a@b.c", AdminPassword: "rahasia123"}},
		{name: "rest", config: Config{Type: RestBackend, APIBaseURL: "http://localhost:5000", APITimeout: time.Second}},
		{name: "sqlite", config: Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "a.db"), AdminEmail: "a@b.c", AdminPassword: "rahasia123"}},
		{name: "rest without url", config: Config{Type: RestBackend, APITimeout: time.Second}, wantErr: true},
		{name: "unknown", config: Config{Type: "sheets"}, wantErr: true},
		{name: "memory with short admin password", config: Config{Type: MemoryBackend, AdminEmail: "a@b.c", AdminPassword: "x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateBackend(ctx, tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateBackend() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if res.Backend == nil {
				t.Fatal("nil backend")
			}
			if res.Cleanup != nil {
				if err := res.Cleanup(); err != nil {
					t.Fatalf("cleanup: %v", err)
				}
			}
		})
	}
}

func TestSQLiteAdminCanLogin(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{
		Type:          SQLiteBackend,
		SQLiteDBPath:  filepath.Join(t.TempDir(), "a.db"),
		AdminEmail:    "admin@asrama.id",
		AdminPassword: "rahasia123",
	})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()

	u, _, err := res.Backend.Login(ctx, "admin@asrama.id", "rahasia123")
	if err != nil || !u.IsAdmin() {
		t.Fatalf("login: %+v %v", u, err)
	}
}
