package cmd

import (
	"context"
	"fmt"
)

// StructuralErrorKind enumerates the ways the (source, archive, staging)
// triple can be incompatible with an exchange. The checks run in this order
// and fail fast on the first violation.
type StructuralErrorKind int

const (
	KindMissingRelation StructuralErrorKind = iota + 1
	KindArchiveNotPartitioned
	KindStagePartitioned
	KindColumnCountMismatch
	KindArchiveColumnMismatch
	KindStageColumnMismatch
	KindPartitionKeyMismatch
)

func (k StructuralErrorKind) String() string {
	switch k {
	case KindMissingRelation:
		return "relation does not exist"
	case KindArchiveNotPartitioned:
		return "archive table is not partitioned"
	case KindStagePartitioned:
		return "staging table must not be partitioned"
	case KindColumnCountMismatch:
		return "column counts differ"
	case KindArchiveColumnMismatch:
		return "source and archive columns differ"
	case KindStageColumnMismatch:
		return "source and staging columns differ"
	case KindPartitionKeyMismatch:
		return "partition key columns differ"
	default:
		return "unknown structural error"
	}
}

// StructuralError reports one exchange-compatibility violation. Without the
// pre-check the engine either rejects the exchange with an opaque low-level
// error or silently accepts a mismatched staging table; this converts both
// into something attributable.
type StructuralError struct {
	Kind   StructuralErrorKind
	Detail string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural check failed: %s (%s)", e.Kind, e.Detail)
}

// Column is the comparable subset of a column definition: anything the
// exchange primitive itself is sensitive to.
type Column struct {
	Name      string
	DataType  string
	Length    int
	Precision int
	Scale     int
	Nullable  string
}

func (c Column) equal(o Column) bool {
	return c == o
}

func tableExists(ctx context.Context, db queryer, table Ref) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, tableExistsSQL, table.Name()).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check existence of %s: %w", table, err)
	}
	return n > 0, nil
}

func tableIsPartitioned(ctx context.Context, db queryer, table Ref) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, tableIsPartitionedSQL, table.Name()).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check partitioning of %s: %w", table, err)
	}
	return n > 0, nil
}

func tableColumns(ctx context.Context, db queryer, table Ref) ([]Column, error) {
	rows, err := db.QueryContext(ctx, tableColumnsSQL, table.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.Length, &c.Precision, &c.Scale, &c.Nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns of %s: %w", table, err)
	}
	return cols, nil
}

func partitionKeyColumns(ctx context.Context, db queryer, table Ref) ([]string, error) {
	rows, err := db.QueryContext(ctx, partitionKeyColumnsSQL, table.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read partition keys of %s: %w", table, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan partition key of %s: %w", table, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating partition keys of %s: %w", table, err)
	}
	return keys, nil
}

// validateStructure confirms source, archive, and staging are
// exchange-compatible. It must run before any exchange is attempted.
func validateStructure(ctx context.Context, db queryer, source, archive, stage Ref) error {
	for _, t := range []Ref{source, archive, stage} {
		exists, err := tableExists(ctx, db, t)
		if err != nil {
			return err
		}
		if !exists {
			return &StructuralError{Kind: KindMissingRelation, Detail: t.Name()}
		}
	}

	archivePartitioned, err := tableIsPartitioned(ctx, db, archive)
	if err != nil {
		return err
	}
	if !archivePartitioned {
		return &StructuralError{Kind: KindArchiveNotPartitioned, Detail: archive.Name()}
	}

	stagePartitioned, err := tableIsPartitioned(ctx, db, stage)
	if err != nil {
		return err
	}
	if stagePartitioned {
		return &StructuralError{Kind: KindStagePartitioned, Detail: stage.Name()}
	}

	srcCols, err := tableColumns(ctx, db, source)
	if err != nil {
		return err
	}
	archCols, err := tableColumns(ctx, db, archive)
	if err != nil {
		return err
	}
	stageCols, err := tableColumns(ctx, db, stage)
	if err != nil {
		return err
	}

	if len(srcCols) != len(archCols) || len(srcCols) != len(stageCols) {
		return &StructuralError{
			Kind:   KindColumnCountMismatch,
			Detail: fmt.Sprintf("source=%d archive=%d staging=%d", len(srcCols), len(archCols), len(stageCols)),
		}
	}

	for i := range srcCols {
		if !srcCols[i].equal(archCols[i]) {
			return &StructuralError{
				Kind:   KindArchiveColumnMismatch,
				Detail: fmt.Sprintf("column %s vs %s", srcCols[i].Name, archCols[i].Name),
			}
		}
	}
	for i := range srcCols {
		if !srcCols[i].equal(stageCols[i]) {
			return &StructuralError{
				Kind:   KindStageColumnMismatch,
				Detail: fmt.Sprintf("column %s vs %s", srcCols[i].Name, stageCols[i].Name),
			}
		}
	}

	srcKeys, err := partitionKeyColumns(ctx, db, source)
	if err != nil {
		return err
	}
	archKeys, err := partitionKeyColumns(ctx, db, archive)
	if err != nil {
		return err
	}
	if len(srcKeys) != len(archKeys) {
		return &StructuralError{
			Kind:   KindPartitionKeyMismatch,
			Detail: fmt.Sprintf("source=%v archive=%v", srcKeys, archKeys),
		}
	}
	for i := range srcKeys {
		if srcKeys[i] != archKeys[i] {
			return &StructuralError{
				Kind:   KindPartitionKeyMismatch,
				Detail: fmt.Sprintf("position %d: %s vs %s", i+1, srcKeys[i], archKeys[i]),
			}
		}
	}

	return nil
}
