// Package migrations embeds the SQL schema for the relational stores and
// applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// Dialects understood by Up. The value doubles as the embedded directory name.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

var gooseDialects = map[string]string{
	SQLite:   "sqlite3",
	Postgres: "pgx",
}

// goose keeps its base FS and dialect in package globals.
var mu sync.Mutex

// Up applies every pending migration for dialect to db.
func Up(ctx context.Context, db *sql.DB, dialect string, logger *slog.Logger) error {
	gd, ok := gooseDialects[dialect]
	if !ok {
		return fmt.Errorf("migrations: unknown dialect %q", dialect)
	}

	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(FS)
	goose.SetLogger(gooseLogger{logger})
	if err := goose.SetDialect(gd); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	if err := goose.UpContext(ctx, db, dialect); err != nil {
		return fmt.Errorf("migrations: applying %s schema: %w", dialect, err)
	}
	return nil
}

// gooseLogger routes goose output through slog at debug level.
type gooseLogger struct {
	l *slog.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.l.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.l.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
	os.Exit(1)
}
