package postgres

import (
	"database/sql"
	"embed"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	apperrors "computor-backend/pkg/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded schema migrations. goose runs over
// database/sql, so a short-lived stdlib connection is opened beside the
// pgx pool.
func Migrate(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return apperrors.NewStoreUnavailable("open migration connection", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return apperrors.NewInternal("set migration dialect", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return apperrors.NewStoreUnavailable("apply migrations", err)
	}
	return nil
}
