package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	go_ora "github.com/sijms/go-ora/v2"
)

// Precondition errors raised before the date loop starts.
var (
	ErrSourceNotPartitioned = errors.New("source table is not partitioned")
	ErrSeedPartitionMissing = errors.New("archive partition still missing after seed insert")
)

// Exchanger is the partition archival orchestrator. It relocates whole
// time-bounded partitions from a live table to its archive table through a
// two-hop atomic exchange (source → staging → archive), collecting metrics
// and writing audit records as it goes.
type Exchanger struct {
	config *Config
	logger *slog.Logger

	db      *sql.DB // main pool: exchanges, metrics, audit records
	traceDB *sql.DB // dedicated pool: trace events commit independently
	trace   *TraceLogger

	logTable Ref
	ctx      context.Context
}

// DateResult is the outcome of one partition-date.
type DateResult struct {
	Date            time.Time
	SourcePartition string
	Records         int64
	Skipped         bool
	SkipReason      string
	DroppedEmpty    bool
	CountMatch      bool
	Status          string
	Error           error
	Duration        time.Duration
}

// RunSummary aggregates a whole run. The caller always gets one, even when
// dates were skipped or failed; the forensic detail lives in the trace and
// execution log tables.
type RunSummary struct {
	PartitionsArchived int
	RowsArchived       int64
	Skipped            int
	Failed             int
	Warnings           int
	Status             string
}

func NewExchanger(config *Config, logger *slog.Logger) *Exchanger {
	return &Exchanger{
		config: config,
		logger: logger,
	}
}

// connect opens the main and trace pools. The trace pool is separate on
// purpose: its writes autocommit on their own sessions and therefore survive
// a rollback of the date being processed.
func (e *Exchanger) connect(ctx context.Context) error {
	connStr := go_ora.BuildUrl(
		e.config.Database.Host,
		e.config.Database.Port,
		e.config.Database.Service,
		e.config.Database.User,
		e.config.Database.Password,
		nil,
	)

	db, err := sql.Open("oracle", connStr)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}

	traceDB, err := sql.Open("oracle", connStr)
	if err != nil {
		db.Close()
		return err
	}
	if err := traceDB.PingContext(ctx); err != nil {
		db.Close()
		traceDB.Close()
		return err
	}

	e.db = db
	e.traceDB = traceDB
	return nil
}

func (e *Exchanger) closeDB() {
	if e.db != nil {
		e.db.Close()
		e.db = nil
	}
	if e.traceDB != nil {
		e.traceDB.Close()
		e.traceDB = nil
	}
}

// Run drives a full archival run: PID bookkeeping, the progress TUI (or the
// plain log path in debug mode), and the orchestration itself.
func (e *Exchanger) Run(ctx context.Context) error {
	e.ctx = ctx

	if err := WritePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer func() {
		_ = RemovePIDFile()
	}()

	taskInfo := &TaskInfo{
		PID:         os.Getpid(),
		StartTime:   time.Now(),
		Table:       e.config.Table,
		StartDate:   e.config.StartDate,
		EndDate:     e.config.EndDate,
		CurrentTask: "Starting archival run",
	}
	_ = WriteTaskInfo(taskInfo)
	defer func() {
		_ = RemoveTaskFile()
	}()

	dates, err := e.config.Dates()
	if err != nil {
		return err
	}

	if e.config.Debug {
		e.logger.Info("Running in debug mode - TUI disabled for better log visibility")
		summary, err := e.runProcess(ctx, nil, dates)
		if err != nil {
			return err
		}
		e.printSummary(summary)
		return nil
	}

	errChan := make(chan error, 1)
	summaryChan := make(chan RunSummary, 1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newProgressModel(cancel, e.config, dates)
	program := tea.NewProgram(model, tea.WithoutSignalHandler())

	go func() {
		summary, err := e.runProcess(ctx, program, dates)
		if err != nil {
			errChan <- err
			program.Send(runFailedMsg{err: err})
			return
		}
		summaryChan <- summary
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("error running progress display: %w", err)
	}

	select {
	case err := <-errChan:
		if err != nil {
			return err
		}
	default:
	}

	select {
	case summary := <-summaryChan:
		e.printSummary(summary)
	default:
		// Quit before completion; nothing to summarize.
	}

	return nil
}

// runProcess performs the orchestration. program is nil in debug mode.
func (e *Exchanger) runProcess(ctx context.Context, program *tea.Program, dates []time.Time) (RunSummary, error) {
	e.ctx = ctx
	defer e.closeDB()

	if e.db == nil {
		e.send(program, phaseChangeMsg{phase: PhaseConnecting})
		if err := e.connect(ctx); err != nil {
			return RunSummary{}, fmt.Errorf("failed to connect to database: %w", err)
		}
	}

	configTable, logTable, traceTable, err := e.config.controlTables()
	if err != nil {
		return RunSummary{}, err
	}
	e.logTable = logTable
	e.trace = NewTraceLogger(e.traceDB, traceTable, e.logger)

	sourceTable, err := NewRef(e.config.Table)
	if err != nil {
		return RunSummary{}, err
	}

	run := NewRunContext()

	e.send(program, phaseChangeMsg{phase: PhaseValidating})
	cfg, err := loadArchiveConfig(ctx, e.db, configTable, sourceTable)
	if err != nil {
		return RunSummary{}, err
	}
	e.trace.Info(ctx, run, StepConfigLoad, "configuration %d loaded: %s -> %s via %s",
		cfg.ID, cfg.SourceTable, cfg.ArchiveTable, cfg.StageTable)

	partitioned, err := tableIsPartitioned(ctx, e.db, cfg.SourceTable)
	if err != nil {
		return RunSummary{}, err
	}
	if !partitioned {
		return RunSummary{}, fmt.Errorf("%w: %s", ErrSourceNotPartitioned, cfg.SourceTable)
	}

	lock, err := acquireRunLock(ctx, e.db, configTable, cfg.ID)
	if err != nil {
		return RunSummary{}, err
	}
	defer lock.release()
	e.trace.Info(ctx, run, StepLockAcquire, "run %s holds configuration %d", run.RunID, cfg.ID)

	if cfg.ValidateExchange {
		if err := validateStructure(ctx, e.db, cfg.SourceTable, cfg.ArchiveTable, cfg.StageTable); err != nil {
			e.trace.Error(ctx, run, StepStructureCheck, "%v", err)
			return RunSummary{}, err
		}
		e.trace.Info(ctx, run, StepStructureCheck, "source, archive and staging are exchange-compatible")
	}

	// Start from a clean index baseline on both sides. Dry runs still
	// report unusable indexes but must not rebuild them.
	for _, t := range []Ref{cfg.SourceTable, cfg.ArchiveTable} {
		report, err := checkIndexHealth(ctx, e.db, t, !e.config.DryRun)
		if err != nil {
			return RunSummary{}, err
		}
		if len(report.Repaired) > 0 {
			e.trace.Info(ctx, run, StepHealthCheck, "rebuilt %d unusable indexes on %s: %s",
				len(report.Repaired), t, strings.Join(report.Repaired, ", "))
		} else if report.InvalidCount > 0 {
			e.trace.Info(ctx, run, StepHealthCheck, "%d unusable indexes on %s left as-is", report.InvalidCount, t)
		}
	}

	// A residue in staging from an earlier failed attempt would be swapped
	// into the archive; clear it before the first date.
	if !e.config.DryRun {
		if err := e.clearStaging(ctx, run, cfg.StageTable); err != nil {
			return RunSummary{}, err
		}
	}

	e.trace.Info(ctx, run, StepRunStart, "archiving %s: %d date(s) requested", cfg.SourceTable, len(dates))
	e.send(program, phaseChangeMsg{phase: PhaseProcessing})

	summary := RunSummary{Status: StatusSuccess}
	for i, date := range dates {
		// Cancellation is honored at date boundaries only; mid-date the
		// exchange steps must run to their commit or rollback.
		select {
		case <-ctx.Done():
			e.trace.Info(ctx, run, StepRunEnd, "run cancelled after %d of %d dates", i, len(dates))
			return summary, ctx.Err()
		default:
		}

		e.updateTask(date, i, len(dates))
		e.send(program, dateStartMsg{index: i, date: date})

		result := e.processDate(ctx, run, cfg, date)
		e.tally(&summary, result)
		e.send(program, dateCompleteMsg{index: i, result: result})
	}

	// Post-run drift check: report, never repair. Unusable indexes appearing
	// here may be exchange-induced and deserve investigation.
	for _, t := range []Ref{cfg.SourceTable, cfg.ArchiveTable} {
		report, err := checkIndexHealth(ctx, e.db, t, false)
		if err != nil {
			return summary, err
		}
		if report.InvalidCount > 0 {
			summary.Warnings++
			if summary.Status == StatusSuccess {
				summary.Status = StatusWarning
			}
			e.trace.Error(ctx, run, StepHealthCheck, "%d unusable indexes remain on %s after run", report.InvalidCount, t)
		}
	}

	if cfg.GatherStats && summary.PartitionsArchived > 0 {
		e.send(program, phaseChangeMsg{phase: PhaseStatistics})
		var total time.Duration
		for _, t := range []Ref{cfg.SourceTable, cfg.ArchiveTable} {
			d, err := gatherTableStats(ctx, e.db, t)
			if err != nil {
				e.trace.Error(ctx, run, StepGatherStats, "statistics refresh on %s failed: %v", t, err)
				summary.Warnings++
				continue
			}
			total += d
		}
		if total > 0 {
			if err := backfillStatsDuration(ctx, e.db, e.logTable, run, cfg.SourceTable, total); err != nil {
				e.trace.Error(ctx, run, StepGatherStats, "duration backfill failed: %v", err)
			} else {
				e.trace.Info(ctx, run, StepGatherStats, "statistics refreshed in %.1fs", total.Seconds())
			}
		}
	}

	e.trace.Info(ctx, run, StepRunEnd, "run complete: %d archived, %d rows, %d skipped, %d failed",
		summary.PartitionsArchived, summary.RowsArchived, summary.Skipped, summary.Failed)
	e.send(program, runCompleteMsg{summary: summary})

	return summary, nil
}

// processDate walks one business date through the state machine. Any failure
// rolls back this date only; the caller's loop continues.
func (e *Exchanger) processDate(ctx context.Context, run *RunContext, cfg *ArchiveConfig, date time.Time) DateResult {
	started := time.Now()
	result := DateResult{Date: date, Status: StatusSuccess}
	day := date.Format("2006-01-02")

	srcPartition, found, err := locatePartition(ctx, e.db, cfg.SourceTable, date)
	if err != nil {
		return e.failDate(ctx, run, cfg, StepLocate, date, started, err)
	}
	if !found {
		e.trace.Info(ctx, run, StepLocate, "%s: no partition on %s, skipping", day, cfg.SourceTable)
		result.Skipped = true
		result.SkipReason = "no source partition holds this date"
		result.Duration = time.Since(started)
		return result
	}
	srcPart := PartitionRef{Table: cfg.SourceTable, Partition: srcPartition.Name}
	result.SourcePartition = srcPartition.Name.Name()
	e.trace.Info(ctx, run, StepLocate, "%s: located %s", day, srcPart.Partition)

	partRows, err := countPartitionRows(ctx, e.db, srcPart)
	if err != nil {
		return e.failDate(ctx, run, cfg, StepCount, date, started, err)
	}
	e.trace.Info(ctx, run, StepCount, "%s: %d rows in %s", day, partRows, srcPart.Partition)

	// Dry runs stop at the report: no exchange, no record, no drop.
	if e.config.DryRun {
		e.trace.Info(ctx, run, StepCount, "%s: dry run, %s left untouched", day, srcPart.Partition)
		result.Skipped = true
		if partRows == 0 {
			result.SkipReason = "dry run: would drop empty partition"
		} else {
			result.SkipReason = fmt.Sprintf("dry run: would archive %d rows", partRows)
		}
		result.Duration = time.Since(started)
		return result
	}

	if partRows == 0 {
		// Archival of zero rows is a no-op: drop the empty partition, no
		// staging, no archive touch, no execution record.
		if _, err := e.db.ExecContext(ctx, dropPartitionStmt(srcPart)); err != nil {
			return e.failDate(ctx, run, cfg, StepDropEmpty, date, started, err)
		}
		e.trace.Info(ctx, run, StepDropEmpty, "%s: dropped empty partition %s", day, srcPart.Partition)
		result.DroppedEmpty = true
		result.Duration = time.Since(started)
		return result
	}

	record := &ExecutionRecord{
		SourceTable:     cfg.SourceTable.Name(),
		SourcePartition: srcPart.Partition.Name(),
		ArchiveTable:    cfg.ArchiveTable.Name(),
		BusinessDate:    date,
		RecordsArchived: partRows,
		CompressType:    cfg.CompressType,
	}

	srcBefore, err := snapshotTable(ctx, e.db, cfg.SourceTable)
	if err != nil {
		return e.failDate(ctx, run, cfg, StepCount, date, started, err)
	}
	archBefore, err := snapshotTable(ctx, e.db, cfg.ArchiveTable)
	if err != nil {
		return e.failDate(ctx, run, cfg, StepCount, date, started, err)
	}
	record.SourceRowsBefore = srcBefore.Rows
	record.SourceIndexesBefore = srcBefore.IndexCount
	record.SourceIndexBytesBefore = srcBefore.IndexBytes
	record.ArchiveRowsBefore = archBefore.Rows
	record.ArchiveIndexesBefore = archBefore.IndexCount
	record.ArchiveIndexBytesBefore = archBefore.IndexBytes

	if record.PartitionBytes, err = partitionSize(ctx, e.db, srcPart); err != nil {
		return e.failDate(ctx, run, cfg, StepCount, date, started, err)
	}
	if record.Compressed, _, err = partitionCompression(ctx, e.db, srcPart); err != nil {
		return e.failDate(ctx, run, cfg, StepCount, date, started, err)
	}
	if invalid, err := listUnusableIndexes(ctx, e.db, cfg.SourceTable); err == nil {
		record.InvalidIndexesBefore = len(invalid)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return e.failDate(ctx, run, cfg, StepExchangeToStage, date, started, err)
	}

	// First hop: park the partition's data (and its index segments) in the
	// staging table. Staging is the one-way valve that keeps the archive
	// partition's old contents from flowing back into source.
	exchangeStart := time.Now()
	if _, err := tx.ExecContext(ctx, exchangeStmt(srcPart, cfg.StageTable)); err != nil {
		return e.failDateTx(ctx, run, cfg, tx, StepExchangeToStage, date, started, err)
	}
	e.trace.Info(ctx, run, StepExchangeToStage, "%s: %s exchanged into %s", day, srcPart.Partition, cfg.StageTable)

	archPartition, err := e.resolveArchivePartition(ctx, run, tx, cfg, date)
	if err != nil {
		return e.failDateTx(ctx, run, cfg, tx, StepSeedPartition, date, started, err)
	}
	archPart := PartitionRef{Table: cfg.ArchiveTable, Partition: archPartition.Name}
	record.ArchivePartition = archPart.Partition.Name()

	// Second hop: swap the parked data into the archive partition.
	if _, err := tx.ExecContext(ctx, exchangeStmt(archPart, cfg.StageTable)); err != nil {
		return e.failDateTx(ctx, run, cfg, tx, StepExchangeToArch, date, started, err)
	}
	record.ExchangeSecs = time.Since(exchangeStart).Seconds()
	e.trace.Info(ctx, run, StepExchangeToArch, "%s: %s exchanged into %s", day, cfg.StageTable, archPart.Partition)

	srcAfter, err := snapshotTable(ctx, tx, cfg.SourceTable)
	if err != nil {
		return e.failDateTx(ctx, run, cfg, tx, StepPostMetrics, date, started, err)
	}
	archAfter, err := snapshotTable(ctx, tx, cfg.ArchiveTable)
	if err != nil {
		return e.failDateTx(ctx, run, cfg, tx, StepPostMetrics, date, started, err)
	}
	record.SourceRowsAfter = srcAfter.Rows
	record.SourceIndexesAfter = srcAfter.IndexCount
	record.SourceIndexBytesAfter = srcAfter.IndexBytes
	record.ArchiveRowsAfter = archAfter.Rows
	record.ArchiveIndexesAfter = archAfter.IndexCount
	record.ArchiveIndexBytesAfter = archAfter.IndexBytes
	if invalid, err := listUnusableIndexes(ctx, tx, cfg.SourceTable); err == nil {
		record.InvalidIndexesAfter = len(invalid)
	}

	// Conservation check: what left source must equal what was counted and
	// what arrived in archive. A mismatch downgrades, never aborts.
	record.CountMatch = srcBefore.Rows-srcAfter.Rows == partRows &&
		archAfter.Rows-archBefore.Rows == partRows
	if record.CountMatch {
		record.Status = StatusSuccess
		e.trace.Info(ctx, run, StepValidateCounts, "%s: %d rows conserved across exchange", day, partRows)
	} else {
		record.Status = StatusWarning
		e.trace.Error(ctx, run, StepValidateCounts,
			"%s: count mismatch: counted=%d source %d->%d archive %d->%d",
			day, partRows, srcBefore.Rows, srcAfter.Rows, archBefore.Rows, archAfter.Rows)
	}

	// Record first, then drop: the audit row must describe the partition
	// before the irreversible step, and both commit together.
	record.TotalSecs = time.Since(started).Seconds()
	if err := insertExecutionRecord(ctx, tx, e.logTable, run, record); err != nil {
		return e.failDateTx(ctx, run, cfg, tx, StepRecordInsert, date, started, err)
	}

	if _, err := tx.ExecContext(ctx, dropPartitionStmt(srcPart)); err != nil {
		return e.failDateTx(ctx, run, cfg, tx, StepDropSource, date, started, err)
	}
	e.trace.Info(ctx, run, StepDropSource, "%s: dropped emptied partition %s", day, srcPart.Partition)

	if err := tx.Commit(); err != nil {
		return e.failDate(ctx, run, cfg, StepDropSource, date, started, err)
	}

	result.Records = partRows
	result.CountMatch = record.CountMatch
	result.Status = record.Status
	result.Duration = time.Since(started)
	return result
}

// resolveArchivePartition finds the archive partition for date, materializing
// it first when it does not exist yet. Materialization inserts one seed row
// copied from staging — where the real data is parked — and deletes it from
// the newly created partition. The seed is never inserted into source.
func (e *Exchanger) resolveArchivePartition(ctx context.Context, run *RunContext, tx *sql.Tx, cfg *ArchiveConfig, date time.Time) (Partition, error) {
	p, found, err := locatePartition(ctx, tx, cfg.ArchiveTable, date)
	if err != nil {
		return Partition{}, err
	}
	if found {
		return p, nil
	}

	if _, err := tx.ExecContext(ctx, seedInsertStmt(cfg.ArchiveTable, cfg.StageTable)); err != nil {
		return Partition{}, fmt.Errorf("seed insert into %s failed: %w", cfg.ArchiveTable, err)
	}

	p, found, err = locatePartition(ctx, tx, cfg.ArchiveTable, date)
	if err != nil {
		return Partition{}, err
	}
	if !found {
		return Partition{}, fmt.Errorf("%w: %s on %s", ErrSeedPartitionMissing, cfg.ArchiveTable, date.Format("2006-01-02"))
	}

	seedPart := PartitionRef{Table: cfg.ArchiveTable, Partition: p.Name}
	if _, err := tx.ExecContext(ctx, seedDeleteStmt(seedPart)); err != nil {
		return Partition{}, fmt.Errorf("seed delete from %s failed: %w", p.Name, err)
	}

	e.trace.Info(ctx, run, StepSeedPartition, "materialized archive partition %s via seed row", p.Name)
	return p, nil
}

// failDateTx rolls back the date's transaction, then handles the failure.
func (e *Exchanger) failDateTx(ctx context.Context, run *RunContext, cfg *ArchiveConfig, tx *sql.Tx, step string, date time.Time, started time.Time, err error) DateResult {
	_ = tx.Rollback()
	return e.failDate(ctx, run, cfg, step, date, started, err)
}

// failDate absorbs a per-date failure: an error trace event with enough
// context to resume manually, a staging truncate so a residue cannot
// poison the next date, and an error result. The run continues.
func (e *Exchanger) failDate(ctx context.Context, run *RunContext, cfg *ArchiveConfig, step string, date time.Time, started time.Time, err error) DateResult {
	e.trace.Error(ctx, run, step, "%s: %v", date.Format("2006-01-02"), err)

	if !e.config.DryRun {
		if clearErr := e.clearStaging(ctx, run, cfg.StageTable); clearErr != nil {
			e.trace.Error(ctx, run, StepStageTruncate, "staging cleanup after failure: %v", clearErr)
		}
	}

	return DateResult{
		Date:     date,
		Status:   StatusError,
		Error:    err,
		Duration: time.Since(started),
	}
}

func (e *Exchanger) clearStaging(ctx context.Context, run *RunContext, stage Ref) error {
	var rows int64
	if err := e.db.QueryRowContext(ctx, countStmt(stage)).Scan(&rows); err != nil {
		return fmt.Errorf("failed to inspect staging table %s: %w", stage, err)
	}
	if rows == 0 {
		return nil
	}

	if _, err := e.db.ExecContext(ctx, truncateStmt(stage)); err != nil {
		return fmt.Errorf("failed to truncate staging table %s: %w", stage, err)
	}
	e.trace.Info(ctx, run, StepStageTruncate, "cleared %d residual rows from %s", rows, stage)
	return nil
}

func (e *Exchanger) tally(summary *RunSummary, r DateResult) {
	switch {
	case r.Error != nil:
		summary.Failed++
		if summary.Status != StatusError {
			summary.Status = StatusWarning
		}
	case r.Skipped, r.DroppedEmpty:
		summary.Skipped++
	default:
		summary.PartitionsArchived++
		summary.RowsArchived += r.Records
		if r.Status == StatusWarning {
			summary.Warnings++
			if summary.Status == StatusSuccess {
				summary.Status = StatusWarning
			}
		}
	}
}

func (e *Exchanger) send(program *tea.Program, msg tea.Msg) {
	if program != nil {
		program.Send(msg)
	}
}

func (e *Exchanger) updateTask(date time.Time, index, total int) {
	if taskInfo, err := ReadTaskInfo(); err == nil {
		taskInfo.CurrentTask = "Archiving " + date.Format("2006-01-02")
		taskInfo.CurrentDate = date.Format("2006-01-02")
		taskInfo.CompletedItems = index
		taskInfo.TotalItems = total
		if total > 0 {
			taskInfo.Progress = float64(index) / float64(total)
		}
		_ = WriteTaskInfo(taskInfo)
	}
}

func (e *Exchanger) printSummary(summary RunSummary) {
	e.logger.Info("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	e.logger.Info("📈 Run Summary")
	e.logger.Info(fmt.Sprintf("✅ Partitions archived: %d", summary.PartitionsArchived))
	e.logger.Info(fmt.Sprintf("📦 Rows archived: %d", summary.RowsArchived))
	e.logger.Info(fmt.Sprintf("⏭️  Skipped: %d", summary.Skipped))
	if summary.Warnings > 0 {
		e.logger.Warn(fmt.Sprintf("⚠️  Warnings: %d", summary.Warnings))
	}
	if summary.Failed > 0 {
		e.logger.Error(fmt.Sprintf("❌ Failed: %d", summary.Failed))
	}
	e.logger.Info(fmt.Sprintf("Status: %s", summary.Status))
}

// ValidatePreconditions runs the precondition suite only: configuration,
// source partitioning, structural compatibility, and a detect-only index
// health pass. Used by the validate command for deployment checks.
func (e *Exchanger) ValidatePreconditions(ctx context.Context) error {
	e.ctx = ctx
	defer e.closeDB()

	if e.db == nil {
		if err := e.connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
	}

	configTable, _, _, err := e.config.controlTables()
	if err != nil {
		return err
	}
	sourceTable, err := NewRef(e.config.Table)
	if err != nil {
		return err
	}

	cfg, err := loadArchiveConfig(ctx, e.db, configTable, sourceTable)
	if err != nil {
		return err
	}
	e.logger.Info(fmt.Sprintf("✅ Configuration %d: %s -> %s via %s", cfg.ID, cfg.SourceTable, cfg.ArchiveTable, cfg.StageTable))
	if cfg.CompressEnabled {
		e.logger.Info(fmt.Sprintf("✅ Archive compression: %s", cfg.CompressType))
	} else {
		e.logger.Info("✅ Archive compression: disabled")
	}

	partitioned, err := tableIsPartitioned(ctx, e.db, cfg.SourceTable)
	if err != nil {
		return err
	}
	if !partitioned {
		return fmt.Errorf("%w: %s", ErrSourceNotPartitioned, cfg.SourceTable)
	}
	e.logger.Info(fmt.Sprintf("✅ %s is partitioned", cfg.SourceTable))

	if err := validateStructure(ctx, e.db, cfg.SourceTable, cfg.ArchiveTable, cfg.StageTable); err != nil {
		return err
	}
	e.logger.Info("✅ Source, archive and staging are exchange-compatible")

	for _, t := range []Ref{cfg.SourceTable, cfg.ArchiveTable} {
		report, err := checkIndexHealth(ctx, e.db, t, false)
		if err != nil {
			return err
		}
		if report.InvalidCount > 0 {
			e.logger.Warn(fmt.Sprintf("⚠️  %d unusable indexes on %s", report.InvalidCount, t))
		} else {
			e.logger.Info(fmt.Sprintf("✅ All indexes usable on %s", t))
		}
	}

	return nil
}
