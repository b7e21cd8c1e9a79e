package backend

import (
	"context"
	"fmt"

	"asrama/internal/core"
	applog "asrama/internal/log"
	"asrama/internal/restapi"
	"asrama/internal/storage"
	"asrama/internal/store/memory"
)

type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case RestBackend:
		return f.createRestBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createRestBackend(config Config) (*BackendResult, error) {
	cli, err := restapi.New(config.APIBaseURL, config.APITimeout, restapi.WithLogger(f.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize REST client: %w", err)
	}
	if config.AdminEmail != "" {
		f.logger.Warn("ADMIN_EMAIL is ignored by the rest backend; accounts live in the remote API")
	}

	f.logger.Info("Initialized REST backend",
		"base_url", config.APIBaseURL,
		"timeout", config.APITimeout.String())

	return &BackendResult{Backend: cli}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	if config.AdminEmail != "" {
		if err := repo.EnsureAdmin(ctx, config.AdminEmail, "Admin", config.AdminPassword); err != nil {
			repo.Close()
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{Backend: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	st, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}
	if config.AdminEmail != "" {
		admin := core.User{Name: "Admin", Email: config.AdminEmail, Role: core.RoleAdmin}
		if err := st.AddUser(admin, config.AdminPassword); err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)

	return &BackendResult{Backend: st}, nil
}
