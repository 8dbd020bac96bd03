package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func archiveConfigRow(active, validate, stats, compress string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "source_table", "archive_table", "stage_table", "active", "validate_exchange",
		"gather_stats", "compress_enabled", "compress_type", "created_at", "updated_at",
	}).AddRow(int64(7), "ORDERS", "ORDERS_ARCH", "ORDERS_STAGE", active, validate, stats, compress, "QUERY HIGH", now, now)
}

func TestLoadArchiveConfig(t *testing.T) {
	configTable := Ref{name: "PART_ARCHIVE_CONFIG"}
	source := Ref{name: "ORDERS"}

	t.Run("ActiveRowLoads", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`FROM "PART_ARCHIVE_CONFIG"`).WithArgs("ORDERS").
			WillReturnRows(archiveConfigRow("Y", "Y", "N", "Y"))

		cfg, err := loadArchiveConfig(context.Background(), db, configTable, source)
		if err != nil {
			t.Fatalf("loadArchiveConfig: %v", err)
		}
		if cfg.ID != 7 {
			t.Errorf("ID = %d, want 7", cfg.ID)
		}
		if cfg.ArchiveTable.Name() != "ORDERS_ARCH" || cfg.StageTable.Name() != "ORDERS_STAGE" {
			t.Errorf("triple = %s/%s/%s", cfg.SourceTable, cfg.ArchiveTable, cfg.StageTable)
		}
		if !cfg.ValidateExchange || cfg.GatherStats || !cfg.CompressEnabled {
			t.Errorf("flags = validate=%v stats=%v compress=%v", cfg.ValidateExchange, cfg.GatherStats, cfg.CompressEnabled)
		}
		if cfg.CompressType != "QUERY HIGH" {
			t.Errorf("CompressType = %q", cfg.CompressType)
		}
	})

	t.Run("MissingRow", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`FROM "PART_ARCHIVE_CONFIG"`).WithArgs("ORDERS").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err = loadArchiveConfig(context.Background(), db, configTable, source)
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("err = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("InactiveRow", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`FROM "PART_ARCHIVE_CONFIG"`).WithArgs("ORDERS").
			WillReturnRows(archiveConfigRow("N", "Y", "Y", "N"))

		_, err = loadArchiveConfig(context.Background(), db, configTable, source)
		if !errors.Is(err, ErrConfigInactive) {
			t.Fatalf("err = %v, want ErrConfigInactive", err)
		}
	})

	t.Run("LowercaseFlagsAccepted", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`FROM "PART_ARCHIVE_CONFIG"`).WithArgs("ORDERS").
			WillReturnRows(archiveConfigRow("y", "n", "y", "n"))

		cfg, err := loadArchiveConfig(context.Background(), db, configTable, source)
		if err != nil {
			t.Fatalf("loadArchiveConfig: %v", err)
		}
		if cfg.ValidateExchange || !cfg.GatherStats || cfg.CompressEnabled {
			t.Errorf("flags = validate=%v stats=%v compress=%v", cfg.ValidateExchange, cfg.GatherStats, cfg.CompressEnabled)
		}
	})

	t.Run("DisabledCompressionOverridesType", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		// compress_enabled = N with a stale compress_type left in the row.
		mock.ExpectQuery(`FROM "PART_ARCHIVE_CONFIG"`).WithArgs("ORDERS").
			WillReturnRows(archiveConfigRow("Y", "Y", "N", "N"))

		cfg, err := loadArchiveConfig(context.Background(), db, configTable, source)
		if err != nil {
			t.Fatalf("loadArchiveConfig: %v", err)
		}
		if cfg.CompressEnabled {
			t.Error("CompressEnabled = true, want false")
		}
		if cfg.CompressType != "NONE" {
			t.Errorf("CompressType = %q, want NONE", cfg.CompressType)
		}
	})

	t.Run("InvalidTableNameRejected", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		now := time.Now()
		rows := sqlmock.NewRows([]string{
			"id", "source_table", "archive_table", "stage_table", "active", "validate_exchange",
			"gather_stats", "compress_enabled", "compress_type", "created_at", "updated_at",
		}).AddRow(int64(7), "ORDERS", "ORDERS ARCH; DROP", "ORDERS_STAGE", "Y", "Y", "Y", "N", "NONE", now, now)
		mock.ExpectQuery(`FROM "PART_ARCHIVE_CONFIG"`).WithArgs("ORDERS").WillReturnRows(rows)

		_, err = loadArchiveConfig(context.Background(), db, configTable, source)
		if !errors.Is(err, ErrInvalidIdentifier) {
			t.Fatalf("err = %v, want ErrInvalidIdentifier", err)
		}
	})
}

func TestIsRowLockedError(t *testing.T) {
	if !isRowLockedError(errors.New("ORA-00054: resource busy and acquire with NOWAIT specified")) {
		t.Error("ORA-00054 not recognized as row-locked")
	}
	if isRowLockedError(errors.New("ORA-00942: table or view does not exist")) {
		t.Error("unrelated error recognized as row-locked")
	}
	if isRowLockedError(nil) {
		t.Error("nil error recognized as row-locked")
	}
}

func TestAcquireRunLock(t *testing.T) {
	t.Run("LockedRowReturnsRunInProgress", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE NOWAIT").WithArgs(int64(7)).
			WillReturnError(errors.New("ORA-00054: resource busy and acquire with NOWAIT specified"))
		mock.ExpectRollback()

		_, err = acquireRunLock(context.Background(), db, Ref{name: "PART_ARCHIVE_CONFIG"}, 7)
		if !errors.Is(err, ErrRunInProgress) {
			t.Fatalf("err = %v, want ErrRunInProgress", err)
		}
	})

	t.Run("AcquiredLockHeldUntilRelease", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE NOWAIT").WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
		mock.ExpectRollback()

		lock, err := acquireRunLock(context.Background(), db, Ref{name: "PART_ARCHIVE_CONFIG"}, 7)
		if err != nil {
			t.Fatalf("acquireRunLock: %v", err)
		}
		lock.release()
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	})
}
