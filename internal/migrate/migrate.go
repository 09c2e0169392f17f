// Package migrate applies embedded SQL migrations on startup.
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/and161185/keepsake/migrations"
)

func init() {
	goose.SetBaseFS(migrations.FS)
}

// Up opens dsn through the pgx stdlib driver and runs all pending migrations.
func Up(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return UpDB(ctx, db)
}

// UpDB runs all pending migrations on an already opened database.
func UpDB(ctx context.Context, db *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Latest returns the highest migration version shipped with the binary.
func Latest() (int64, error) {
	ms, err := goose.CollectMigrations(".", 0, goose.MaxVersion)
	if err != nil {
		return 0, err
	}
	last, err := ms.Last()
	if err != nil {
		return 0, err
	}
	return last.Version, nil
}
