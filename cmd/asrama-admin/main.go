// Command asrama-admin manages accounts and the schema of the sqlite backend.
//
//	asrama-admin migrate
//	asrama-admin ensure-admin -email pengurus@asrama.id -name "Pengurus"
//	asrama-admin hash-password
//
// Passwords are read from ADMIN_PASSWORD or, when unset, from stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"asrama/internal/cli"
	"asrama/internal/config"
	applog "asrama/internal/log"
	"asrama/internal/storage"
	"asrama/internal/store"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentStorage)

	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, logger); err != nil {
		logger.Error("Command failed", applog.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, logger *applog.Logger) error {
	if len(args) == 0 {
		return errors.New("usage: asrama-admin <migrate|ensure-admin|hash-password> [flags]")
	}
	cfg := config.Load()

	switch args[0] {
	case "migrate":
		fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
		dbPath := fs.String("db", cfg.SQLiteDBPath, "sqlite database path")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if err := storage.RunMigrations(*dbPath); err != nil {
			return err
		}
		logger.Info("Migrations applied", "db_path", *dbPath)
		return nil

	case "ensure-admin":
		fs := flag.NewFlagSet("ensure-admin", flag.ContinueOnError)
		dbPath := fs.String("db", cfg.SQLiteDBPath, "sqlite database path")
		email := fs.String("email", cfg.AdminEmail, "admin email")
		name := fs.String("name", "Admin", "display name")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if strings.TrimSpace(*email) == "" {
			return errors.New("-email is required")
		}
		password, err := readPassword(cfg, stdin)
		if err != nil {
			return err
		}
		repo, err := storage.NewSQLiteRepository(*dbPath, logger)
		if err != nil {
			return err
		}
		defer repo.Close()

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return repo.EnsureAdmin(ctx, *email, *name, password)

	case "hash-password":
		password, err := readPassword(cfg, stdin)
		if err != nil {
			return err
		}
		hash, err := store.HashPassword(password)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, hash)
		return err

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func readPassword(cfg *config.Config, stdin io.Reader) (string, error) {
	if cfg.AdminPassword != "" {
		return cfg.AdminPassword, nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password")
	}
	return password, nil
}
