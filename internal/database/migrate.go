package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/Shivanand-hulikatti/seat-reservation/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies all pending schema migrations to cfg.URL. Opening the
// database is retried on the same budget as NewPool, so a server that is
// still starting does not abort the process.
func Migrate(ctx context.Context, cfg config.DatabaseConfig) error {
	dbURL, err := migrateURL(cfg.URL)
	if err != nil {
		return err
	}

	var m *migrate.Migrate
	err = withRetry(ctx, cfg, "migrate connect", func(context.Context) error {
		src, err := iofs.New(migrations, "migrations")
		if err != nil {
			return fmt.Errorf("open embedded migrations: %w", err)
		}
		m, err = migrate.NewWithSourceInstance("iofs", src, dbURL)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// migrateURL rewrites a postgres:// URL to the scheme the pgx/v5 migrate
// driver registers.
func migrateURL(url string) (string, error) {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(url, scheme); ok {
			return "pgx5://" + rest, nil
		}
	}
	if strings.HasPrefix(url, "pgx5://") {
		return url, nil
	}
	return "", fmt.Errorf("migrations need a postgres:// URL, got %q", redact(url))
}

func redact(url string) string {
	if i := strings.Index(url, "@"); i >= 0 {
		if j := strings.Index(url, "://"); j >= 0 && j < i {
			return url[:j+3] + "***" + url[i:]
		}
	}
	if len(url) > 16 {
		return url[:16] + "..."
	}
	return url
}
