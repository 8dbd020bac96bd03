package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestYesNo(t *testing.T) {
	if yesNo(true) != "Y" {
		t.Error(`yesNo(true) != "Y"`)
	}
	if yesNo(false) != "N" {
		t.Error(`yesNo(false) != "N"`)
	}
}

func TestInsertExecutionRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	run := NewRunContext()
	record := &ExecutionRecord{
		SourceTable:      "ORDERS",
		SourcePartition:  "P_20240115",
		ArchiveTable:     "ORDERS_ARCH",
		ArchivePartition: "P_20240115",
		BusinessDate:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		RecordsArchived:  4200,
		PartitionBytes:   8388608,

		SourceRowsBefore:  10000,
		SourceRowsAfter:   5800,
		ArchiveRowsBefore: 90000,
		ArchiveRowsAfter:  94200,

		CountMatch:   true,
		Compressed:   true,
		CompressType: "QUERY HIGH",

		ExchangeSecs: 1.25,
		TotalSecs:    3.5,
		Status:       StatusSuccess,
	}

	mock.ExpectExec(`INSERT INTO "PART_ARCHIVE_LOG"`).
		WithArgs(
			run.RunID, sqlmock.AnyArg(), "ORDERS", "P_20240115", "ORDERS_ARCH", "P_20240115",
			record.BusinessDate, int64(4200), int64(8388608),
			int64(10000), int64(5800), int64(90000), int64(94200),
			int64(0), int64(0), int64(0), int64(0),
			int64(0), int64(0), int64(0), int64(0),
			0, 0,
			"Y", "Y", "QUERY HIGH",
			1.25, float64(0), 3.5,
			StatusSuccess, "", "",
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = insertExecutionRecord(context.Background(), db, Ref{name: "PART_ARCHIVE_LOG"}, run, record)
	if err != nil {
		t.Fatalf("insertExecutionRecord: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBackfillStatsDuration(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	run := NewRunContext()
	mock.ExpectExec(`UPDATE "PART_ARCHIVE_LOG" SET stats_secs`).
		WithArgs(2.5, "ORDERS", run.RunID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = backfillStatsDuration(context.Background(), db,
		Ref{name: "PART_ARCHIVE_LOG"}, run, Ref{name: "ORDERS"}, 2500*time.Millisecond)
	if err != nil {
		t.Fatalf("backfillStatsDuration: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
