package business

import (
	"context"
	"fmt"

	"github.com/XSAM/otelsql"
	"github.com/pressly/goose/v3"
	"github.com/samber/oops"

	// Register pgx driver
	_ "github.com/jackc/pgx/v5/stdlib"

	slogctx "github.com/veqryn/slog-context"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"github.com/openkcm/session-client/internal/config"
	migrations "github.com/openkcm/session-client/sql"
)

// MigrateMain brings the credential store schema, the credential_slots
// table used by the postgres storage, up to the latest version. Running it
// on an up to date database changes nothing.
func MigrateMain(ctx context.Context, cfg *config.Config) error {
	const dialect = "pgx"
	dbSystemName := semconv.DBSystemNamePostgreSQL

	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return fmt.Errorf("making credential store dsn from config: %w", err)
	}

	ctx = slogctx.With(ctx, "database", cfg.Database.Name)

	db, err := otelsql.Open(dialect, connStr, otelsql.WithAttributes(dbSystemName))
	if err != nil {
		return oops.In("main").Wrapf(err, "opening credential store DB connection")
	}
	defer db.Close()

	reg, err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(dbSystemName))
	if err != nil {
		return fmt.Errorf("registering credential store db stats metrics: %w", err)
	}

	defer func() {
		err := reg.Unregister()
		if err != nil {
			slogctx.Error(ctx, "failed to unregister credential store db stats metrics", "error", err)
		}
	}()

	goose.SetBaseFS(migrations.FS)

	err = goose.SetDialect(dialect)
	if err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	before, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("reading credential schema version: %w", err)
	}

	err = goose.UpContext(ctx, db, ".")
	if err != nil {
		return fmt.Errorf("applying credential schema migrations: %w", err)
	}

	after, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("reading credential schema version: %w", err)
	}

	if after == before {
		slogctx.Info(ctx, "Credential schema already up to date", "version", after)
	} else {
		slogctx.Info(ctx, "Migrated credential schema", "from", before, "to", after)
	}

	return nil
}
