package cmd

import (
	"context"
	"fmt"
)

// TableSnapshot captures the observable state of a relation at one moment:
// row count plus secondary-index count and segment bytes. Snapshots are taken
// before and after each exchange so the conservation check has both sides.
type TableSnapshot struct {
	Rows       int64
	IndexCount int64
	IndexBytes int64
}

// snapshotTable reads a table's row count and index footprint. Purely
// observational.
func snapshotTable(ctx context.Context, db queryer, table Ref) (TableSnapshot, error) {
	var s TableSnapshot

	if err := db.QueryRowContext(ctx, countStmt(table)).Scan(&s.Rows); err != nil {
		return s, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	if err := db.QueryRowContext(ctx, indexSegmentsSQL, table.Name()).Scan(&s.IndexCount, &s.IndexBytes); err != nil {
		return s, fmt.Errorf("failed to read index segments of %s: %w", table, err)
	}
	return s, nil
}

// countPartitionRows counts the rows currently held by one partition.
func countPartitionRows(ctx context.Context, db queryer, p PartitionRef) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, countPartitionStmt(p)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows of partition %s.%s: %w", p.Table, p.Partition, err)
	}
	return n, nil
}

// partitionSize reads the segment bytes behind one partition.
func partitionSize(ctx context.Context, db queryer, p PartitionRef) (int64, error) {
	var bytes int64
	if err := db.QueryRowContext(ctx, partitionSegmentSizeSQL, p.Table.Name(), p.Partition.Name()).Scan(&bytes); err != nil {
		return 0, fmt.Errorf("failed to read segment size of partition %s.%s: %w", p.Table, p.Partition, err)
	}
	return bytes, nil
}

// partitionCompression reports whether a partition is compressed and with
// which mode.
func partitionCompression(ctx context.Context, db queryer, p PartitionRef) (bool, string, error) {
	var compression, compressFor string
	err := db.QueryRowContext(ctx, partitionCompressionSQL, p.Table.Name(), p.Partition.Name()).
		Scan(&compression, &compressFor)
	if err != nil {
		return false, "", fmt.Errorf("failed to read compression of partition %s.%s: %w", p.Table, p.Partition, err)
	}
	return compression == "ENABLED", compressFor, nil
}
