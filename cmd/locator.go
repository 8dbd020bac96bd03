package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Partition is an ephemeral handle to one range partition: its name and the
// exclusive upper bound of the range it covers. OpenEnded marks the MAXVALUE
// sentinel partition, which behaves as an infinite upper bound.
type Partition struct {
	Name      Ref
	UpperThan time.Time
	OpenEnded bool
	Position  int
}

// Holds reports whether date falls inside this partition's range. Upper
// bounds are exclusive: a date equal to the bound belongs to the next
// partition.
func (p Partition) Holds(date time.Time) bool {
	return p.OpenEnded || date.Before(p.UpperThan)
}

// highValueDate extracts the date literal out of a HIGH_VALUE expression.
// The dictionary stores bounds as e.g.
//
//	TO_DATE(' 2024-01-16 00:00:00', 'SYYYY-MM-DD HH24:MI:SS', 'NLS_CALENDAR=GREGORIAN')
var highValueDate = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}( \d{2}:\d{2}:\d{2})?)`)

// parseHighValue turns a HIGH_VALUE expression into an upper bound.
// Returns openEnded=true for the MAXVALUE sentinel.
func parseHighValue(highValue string) (time.Time, bool, error) {
	hv := strings.TrimSpace(highValue)
	if strings.EqualFold(hv, "MAXVALUE") {
		return time.Time{}, true, nil
	}

	m := highValueDate.FindString(hv)
	if m == "" {
		return time.Time{}, false, fmt.Errorf("unrecognized partition bound %q", highValue)
	}

	layout := "2006-01-02"
	if len(m) > len(layout) {
		layout = "2006-01-02 15:04:05"
	}
	t, err := time.Parse(layout, m)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("unparseable partition bound %q: %w", highValue, err)
	}
	return t, false, nil
}

// listPartitions reads a table's partitions in ascending boundary order.
func listPartitions(ctx context.Context, db queryer, table Ref) ([]Partition, error) {
	rows, err := db.QueryContext(ctx, tablePartitionsSQL, table.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions of %s: %w", table, err)
	}
	defer rows.Close()

	var parts []Partition
	for rows.Next() {
		var (
			name      string
			highValue string
			position  int
		)
		if err := rows.Scan(&name, &highValue, &position); err != nil {
			return nil, fmt.Errorf("failed to scan partition row: %w", err)
		}

		ref, err := NewRef(name)
		if err != nil {
			return nil, fmt.Errorf("partition name from dictionary: %w", err)
		}

		upper, openEnded, err := parseHighValue(highValue)
		if err != nil {
			return nil, fmt.Errorf("partition %s of %s: %w", name, table, err)
		}

		parts = append(parts, Partition{Name: ref, UpperThan: upper, OpenEnded: openEnded, Position: position})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating partition rows: %w", err)
	}

	return parts, nil
}

// locatePartition finds the partition of table that holds date: the first
// one, in boundary order, whose exclusive upper bound exceeds the date. A
// miss returns found=false and is a skip for callers, not a fault.
func locatePartition(ctx context.Context, db queryer, table Ref, date time.Time) (Partition, bool, error) {
	parts, err := listPartitions(ctx, db, table)
	if err != nil {
		return Partition{}, false, err
	}

	for _, p := range parts {
		if p.Holds(date) {
			return p, true, nil
		}
	}
	return Partition{}, false, nil
}

// queryer is the slice of *sql.DB / *sql.Tx the read-only components need.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
