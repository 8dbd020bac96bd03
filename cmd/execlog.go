package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Run / record statuses
const (
	StatusSuccess = "SUCCESS"
	StatusWarning = "WARNING"
	StatusError   = "ERROR"
)

// ExecutionRecord is the durable audit row produced for every processed
// partition-date. It is inserted inside the per-date transaction, after the
// conservation check and before the emptied source partition is dropped; the
// commit that ends the date makes it durable. Only the statistics-duration
// backfill may touch it afterwards.
type ExecutionRecord struct {
	SourceTable      string
	SourcePartition  string
	ArchiveTable     string
	ArchivePartition string
	BusinessDate     time.Time
	RecordsArchived  int64
	PartitionBytes   int64

	SourceRowsBefore  int64
	SourceRowsAfter   int64
	ArchiveRowsBefore int64
	ArchiveRowsAfter  int64

	SourceIndexesBefore     int64
	SourceIndexBytesBefore  int64
	SourceIndexesAfter      int64
	SourceIndexBytesAfter   int64
	ArchiveIndexesBefore    int64
	ArchiveIndexBytesBefore int64
	ArchiveIndexesAfter     int64
	ArchiveIndexBytesAfter  int64
	InvalidIndexesBefore    int
	InvalidIndexesAfter     int

	CountMatch   bool
	Compressed   bool
	CompressType string

	ExchangeSecs float64
	StatsSecs    float64
	TotalSecs    float64

	Status       string
	ErrorCode    string
	ErrorMessage string
}

// execer is the Exec slice of *sql.DB / *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertExecutionRecordSQL(table Ref) string {
	return fmt.Sprintf(`
INSERT INTO %s (
	run_id, logged_at, source_table, source_partition, archive_table, archive_partition,
	business_date, records_archived, partition_bytes,
	source_rows_before, source_rows_after, archive_rows_before, archive_rows_after,
	source_indexes_before, source_index_bytes_before, source_indexes_after, source_index_bytes_after,
	archive_indexes_before, archive_index_bytes_before, archive_indexes_after, archive_index_bytes_after,
	invalid_indexes_before, invalid_indexes_after,
	count_match, compressed, compress_type,
	exchange_secs, stats_secs, total_secs,
	status, error_code, error_message
) VALUES (
	:1, :2, :3, :4, :5, :6,
	:7, :8, :9,
	:10, :11, :12, :13,
	:14, :15, :16, :17,
	:18, :19, :20, :21,
	:22, :23,
	:24, :25, :26,
	:27, :28, :29,
	:30, :31, :32
)`, table.Quoted())
}

// insertExecutionRecord writes the audit row through the caller's
// transaction, so it commits or rolls back with the date it describes.
func insertExecutionRecord(ctx context.Context, tx execer, table Ref, run *RunContext, r *ExecutionRecord) error {
	_, err := tx.ExecContext(ctx, insertExecutionRecordSQL(table),
		run.RunID, time.Now(), r.SourceTable, r.SourcePartition, r.ArchiveTable, r.ArchivePartition,
		r.BusinessDate, r.RecordsArchived, r.PartitionBytes,
		r.SourceRowsBefore, r.SourceRowsAfter, r.ArchiveRowsBefore, r.ArchiveRowsAfter,
		r.SourceIndexesBefore, r.SourceIndexBytesBefore, r.SourceIndexesAfter, r.SourceIndexBytesAfter,
		r.ArchiveIndexesBefore, r.ArchiveIndexBytesBefore, r.ArchiveIndexesAfter, r.ArchiveIndexBytesAfter,
		r.InvalidIndexesBefore, r.InvalidIndexesAfter,
		yesNo(r.CountMatch), yesNo(r.Compressed), r.CompressType,
		r.ExchangeSecs, r.StatsSecs, r.TotalSecs,
		r.Status, r.ErrorCode, r.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to insert execution record: %w", err)
	}
	return nil
}

func backfillStatsSQL(table Ref) string {
	// The statistics refresh runs after the last date commit, so its duration
	// lands on the most recent record for the source table. This is the one
	// in-place update the log table permits.
	return fmt.Sprintf(`
UPDATE %s SET stats_secs = :1
WHERE id = (
	SELECT MAX(id) FROM %s WHERE source_table = :2 AND run_id = :3
)`, table.Quoted(), table.Quoted())
}

// backfillStatsDuration records the statistics-refresh duration on the run's
// latest execution record for sourceTable.
func backfillStatsDuration(ctx context.Context, db execer, table Ref, run *RunContext, sourceTable Ref, d time.Duration) error {
	_, err := db.ExecContext(ctx, backfillStatsSQL(table), d.Seconds(), sourceTable.Name(), run.RunID)
	if err != nil {
		return fmt.Errorf("failed to backfill statistics duration: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}
