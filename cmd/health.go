package cmd

import (
	"context"
	"database/sql"
	"fmt"
)

// IndexStatus models the dictionary's index usability states.
type IndexStatus int

const (
	IndexUsable IndexStatus = iota
	IndexUnusable
)

func parseIndexStatus(status string) IndexStatus {
	// VALID for regular indexes, USABLE for index partitions, N/A for the
	// parent entry of a partitioned index.
	switch status {
	case "UNUSABLE":
		return IndexUnusable
	default:
		return IndexUsable
	}
}

// unusableIndex identifies one rebuild target: a whole index, or one
// partition of a partitioned index.
type unusableIndex struct {
	Index     Ref
	Partition Ref // zero value when the whole index is the target
}

func (u unusableIndex) partitioned() bool { return u.Partition.Name() != "" }

func (u unusableIndex) String() string {
	if u.partitioned() {
		return u.Index.Name() + "." + u.Partition.Name()
	}
	return u.Index.Name()
}

// HealthReport is the result of one index-health pass over a table.
type HealthReport struct {
	InvalidCount int
	Repaired     []string
}

// listUnusableIndexes enumerates every secondary index (or index partition)
// of table whose status is not usable.
func listUnusableIndexes(ctx context.Context, db queryer, table Ref) ([]unusableIndex, error) {
	var targets []unusableIndex

	rows, err := db.QueryContext(ctx, tableIndexesSQL, table.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes of %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, status, partitioned string
		if err := rows.Scan(&name, &status, &partitioned); err != nil {
			return nil, fmt.Errorf("failed to scan index of %s: %w", table, err)
		}
		if parseIndexStatus(status) != IndexUnusable {
			continue
		}
		ref, err := NewRef(name)
		if err != nil {
			return nil, fmt.Errorf("index name from dictionary: %w", err)
		}
		targets = append(targets, unusableIndex{Index: ref})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating indexes of %s: %w", table, err)
	}

	prows, err := db.QueryContext(ctx, indexPartitionsSQL, table.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to list index partitions of %s: %w", table, err)
	}
	defer prows.Close()

	for prows.Next() {
		var index, partition, status string
		if err := prows.Scan(&index, &partition, &status); err != nil {
			return nil, fmt.Errorf("failed to scan index partition of %s: %w", table, err)
		}
		if parseIndexStatus(status) != IndexUnusable {
			continue
		}
		iref, err := NewRef(index)
		if err != nil {
			return nil, fmt.Errorf("index name from dictionary: %w", err)
		}
		pref, err := NewRef(partition)
		if err != nil {
			return nil, fmt.Errorf("index partition name from dictionary: %w", err)
		}
		targets = append(targets, unusableIndex{Index: iref, Partition: pref})
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index partitions of %s: %w", table, err)
	}

	return targets, nil
}

// checkIndexHealth counts unusable indexes on table and, when repair is set,
// rebuilds them in place. The post-run pass calls this with repair=false:
// drift detected after an exchange is reported for investigation, not
// papered over.
func checkIndexHealth(ctx context.Context, db *sql.DB, table Ref, repair bool) (HealthReport, error) {
	targets, err := listUnusableIndexes(ctx, db, table)
	if err != nil {
		return HealthReport{}, err
	}

	report := HealthReport{InvalidCount: len(targets)}
	if !repair {
		return report, nil
	}

	for _, t := range targets {
		var stmt string
		if t.partitioned() {
			stmt = rebuildIndexPartitionStmt(t.Index, t.Partition)
		} else {
			stmt = rebuildIndexStmt(t.Index)
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return report, fmt.Errorf("failed to rebuild index %s: %w", t, err)
		}
		report.Repaired = append(report.Repaired, t.String())
	}

	return report, nil
}
