package migrations

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed *.sql
var embedded embed.FS

// Up applies all pending migrations against the postgres database. The
// sqlite and memory backends create their own schema and never call this.
func Up(connectionString string, logger *logrus.Logger) error {
	db, err := sql.Open("pgx", connectionString)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(embedded)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(db, "."); err != nil {
		return err
	}

	logger.Info("database migrations applied")
	return nil
}
