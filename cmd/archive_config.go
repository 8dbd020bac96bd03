package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Errors raised before any per-date work begins.
var (
	ErrConfigNotFound = errors.New("no archival configuration found for source table")
	ErrConfigInactive = errors.New("archival configuration is inactive")
	ErrRunInProgress  = errors.New("another archival run holds the configuration lock")
)

// ArchiveConfig is one row of the archival configuration table: the
// (source, archive, staging) triple plus the per-pair switches. The
// orchestrator only ever reads it; operators maintain it out of band.
type ArchiveConfig struct {
	ID               int64
	SourceTable      Ref
	ArchiveTable     Ref
	StageTable       Ref
	Active           bool
	ValidateExchange bool
	GatherStats      bool
	CompressEnabled  bool
	CompressType     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func archiveConfigSQL(table Ref) string {
	return fmt.Sprintf(`
SELECT id, source_table, archive_table, stage_table, active, validate_exchange,
	gather_stats, compress_enabled, NVL(compress_type, 'NONE'), created_at, updated_at
FROM %s
WHERE source_table = :1
`, table.Quoted())
}

// loadArchiveConfig fetches the configuration row for sourceTable. A missing
// row and an inactive row are distinct fatal errors; anything structural
// about the names it carries fails here too, before any partition work.
func loadArchiveConfig(ctx context.Context, db *sql.DB, configTable Ref, sourceTable Ref) (*ArchiveConfig, error) {
	var (
		cfg                               ArchiveConfig
		source, archive, stage            string
		active, validate, stats, compress string
	)

	row := db.QueryRowContext(ctx, archiveConfigSQL(configTable), sourceTable.Name())
	err := row.Scan(&cfg.ID, &source, &archive, &stage, &active, &validate,
		&stats, &compress, &cfg.CompressType, &cfg.CreatedAt, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, sourceTable)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load archival configuration: %w", err)
	}

	if cfg.SourceTable, err = NewRef(source); err != nil {
		return nil, fmt.Errorf("configuration source table: %w", err)
	}
	if cfg.ArchiveTable, err = NewRef(archive); err != nil {
		return nil, fmt.Errorf("configuration archive table: %w", err)
	}
	if cfg.StageTable, err = NewRef(stage); err != nil {
		return nil, fmt.Errorf("configuration staging table: %w", err)
	}

	cfg.Active = flagSet(active)
	cfg.ValidateExchange = flagSet(validate)
	cfg.GatherStats = flagSet(stats)
	cfg.CompressEnabled = flagSet(compress)

	// A compress_type left behind after compression was switched off must
	// not leak into execution records.
	if !cfg.CompressEnabled {
		cfg.CompressType = "NONE"
	}

	if !cfg.Active {
		return nil, fmt.Errorf("%w: %s", ErrConfigInactive, sourceTable)
	}

	return &cfg, nil
}

// flagSet interprets the Y/N flag columns.
func flagSet(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "Y")
}

// runLock serializes runs on one configuration pair. It pins a session from
// the pool and locks the configuration row on it for the whole run — the
// per-date transactions commit independently on other sessions, so the row
// lock outlives them.
type runLock struct {
	conn *sql.Conn
	tx   *sql.Tx
}

// acquireRunLock takes the configuration row lock without waiting. A second
// concurrent run gets ErrRunInProgress immediately rather than queueing
// behind a run that may take hours.
func acquireRunLock(ctx context.Context, db *sql.DB, configTable Ref, configID int64) (*runLock, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to pin lock session: %w", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open lock transaction: %w", err)
	}

	stmt := fmt.Sprintf("SELECT id FROM %s WHERE id = :1 FOR UPDATE NOWAIT", configTable.Quoted())
	var id int64
	if err := tx.QueryRowContext(ctx, stmt, configID).Scan(&id); err != nil {
		_ = tx.Rollback()
		conn.Close()
		if isRowLockedError(err) {
			return nil, ErrRunInProgress
		}
		return nil, fmt.Errorf("failed to lock configuration row: %w", err)
	}

	return &runLock{conn: conn, tx: tx}, nil
}

// release drops the row lock and returns the session to the pool.
func (l *runLock) release() {
	_ = l.tx.Rollback()
	_ = l.conn.Close()
}

// isRowLockedError matches ORA-00054 ("resource busy and acquire with
// NOWAIT"), which is what FOR UPDATE NOWAIT raises when another run holds
// the row.
func isRowLockedError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "ORA-00054")
}
