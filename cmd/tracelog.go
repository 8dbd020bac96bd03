package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"
)

// Trace severities
const (
	SeverityInfo  = "INFO"
	SeverityError = "ERROR"
)

// Step codes recorded with each trace event. These are the resume points an
// operator greps for when a run stops partway.
const (
	StepRunStart        = "RUN_START"
	StepRunEnd          = "RUN_END"
	StepConfigLoad      = "CONFIG_LOAD"
	StepLockAcquire     = "LOCK_ACQUIRE"
	StepStructureCheck  = "STRUCTURE_CHECK"
	StepHealthCheck     = "HEALTH_CHECK"
	StepStageTruncate   = "STAGE_TRUNCATE"
	StepLocate          = "LOCATE"
	StepCount           = "COUNT"
	StepDropEmpty       = "DROP_EMPTY"
	StepExchangeToStage = "EXCHANGE_TO_STAGE"
	StepSeedPartition   = "SEED_PARTITION"
	StepExchangeToArch  = "EXCHANGE_TO_ARCHIVE"
	StepPostMetrics     = "POST_METRICS"
	StepValidateCounts  = "VALIDATE_COUNTS"
	StepDropSource      = "DROP_SOURCE"
	StepRecordInsert    = "RECORD_INSERT"
	StepGatherStats     = "GATHER_STATS"
)

// TraceLogger appends trace events through a connection pool dedicated to
// tracing. Every insert commits on its own, so the trail survives a rollback
// of the date being processed — the side-channel write the forensics depend
// on. Append failures are reported to the process log and otherwise
// swallowed: tracing must never take down the run it is narrating.
type TraceLogger struct {
	db     *sql.DB
	table  Ref
	logger *slog.Logger
}

// NewTraceLogger wires a trace logger onto its dedicated pool.
func NewTraceLogger(db *sql.DB, table Ref, logger *slog.Logger) *TraceLogger {
	return &TraceLogger{db: db, table: table, logger: logger}
}

// Info appends an info-severity trace event.
func (t *TraceLogger) Info(ctx context.Context, run *RunContext, stepCode, format string, args ...any) {
	t.append(ctx, run, SeverityInfo, stepCode, fmt.Sprintf(format, args...))
}

// Error appends an error-severity trace event.
func (t *TraceLogger) Error(ctx context.Context, run *RunContext, stepCode, format string, args ...any) {
	t.append(ctx, run, SeverityError, stepCode, fmt.Sprintf(format, args...))
}

func (t *TraceLogger) append(ctx context.Context, run *RunContext, severity, stepCode, message string) {
	if len(message) > 4000 {
		// Back the cut up to a rune boundary so a multi-byte character
		// straddling the limit is dropped whole, not split.
		cut := 4000
		for cut > 0 && !utf8.RuneStart(message[cut]) {
			cut--
		}
		message = message[:cut]
	}

	stmt := fmt.Sprintf(
		"INSERT INTO %s (run_id, step_no, severity, step_code, message, logged_at) VALUES (:1, :2, :3, :4, :5, :6)",
		t.table.Quoted())
	_, err := t.db.ExecContext(ctx, stmt, run.RunID, run.NextStep(), severity, stepCode, message, time.Now())
	if err != nil {
		t.logger.Warn(fmt.Sprintf("trace write failed at %s: %v", stepCode, err))
	}

	// Mirror to the process log so interactive runs see the same trail.
	if severity == SeverityError {
		t.logger.Error(fmt.Sprintf("[%s] %s", stepCode, message))
	} else {
		t.logger.Debug(fmt.Sprintf("[%s] %s", stepCode, message))
	}
}
