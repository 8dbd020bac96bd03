package cmd

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier is returned when a relation or partition name does not
// satisfy the identifier allow-list.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// validOracleIdentifier is the allow-list every name must pass before it is
// composed into generated DDL. Names come from configuration rows and from the
// data dictionary; neither source is trusted blindly.
var validOracleIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_$#]*$`)

// Ref is a typed reference to a relation. It can only be constructed through
// NewRef, so any Ref held by a caller has already passed identifier
// validation and is safe to splice into a statement.
type Ref struct {
	name string
}

// NewRef validates name against the identifier allow-list and returns a
// relation reference. Names are normalized to upper case, matching the
// dictionary's storage of unquoted identifiers.
func NewRef(name string) (Ref, error) {
	if name == "" || len(name) > 128 || !validOracleIdentifier.MatchString(name) {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return Ref{name: strings.ToUpper(name)}, nil
}

// Name returns the dictionary form of the name (upper case, unquoted), used
// for bind parameters against USER_* views.
func (r Ref) Name() string { return r.name }

// Quoted returns the name double-quoted for use in generated DDL.
func (r Ref) Quoted() string { return `"` + r.name + `"` }

func (r Ref) String() string { return r.name }

// PartitionRef pairs a relation with one of its partitions.
type PartitionRef struct {
	Table     Ref
	Partition Ref
}

// NewPartitionRef validates the partition name against the same allow-list
// used for relation names.
func NewPartitionRef(table Ref, partition string) (PartitionRef, error) {
	p, err := NewRef(partition)
	if err != nil {
		return PartitionRef{}, err
	}
	return PartitionRef{Table: table, Partition: p}, nil
}

// Statement builders. All composed names have passed NewRef; the builders
// never interpolate raw strings.

func exchangeStmt(source PartitionRef, stage Ref) string {
	return fmt.Sprintf("ALTER TABLE %s EXCHANGE PARTITION %s WITH TABLE %s INCLUDING INDEXES WITHOUT VALIDATION",
		source.Table.Quoted(), source.Partition.Quoted(), stage.Quoted())
}

func dropPartitionStmt(p PartitionRef) string {
	return fmt.Sprintf("ALTER TABLE %s DROP PARTITION %s UPDATE GLOBAL INDEXES",
		p.Table.Quoted(), p.Partition.Quoted())
}

func truncateStmt(table Ref) string {
	return fmt.Sprintf("TRUNCATE TABLE %s", table.Quoted())
}

func countStmt(table Ref) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", table.Quoted())
}

func countPartitionStmt(p PartitionRef) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s PARTITION (%s)", p.Table.Quoted(), p.Partition.Quoted())
}

func seedInsertStmt(archive, stage Ref) string {
	return fmt.Sprintf("INSERT INTO %s SELECT * FROM %s WHERE ROWNUM = 1", archive.Quoted(), stage.Quoted())
}

func seedDeleteStmt(p PartitionRef) string {
	return fmt.Sprintf("DELETE FROM %s PARTITION (%s)", p.Table.Quoted(), p.Partition.Quoted())
}

func rebuildIndexStmt(index Ref) string {
	return fmt.Sprintf("ALTER INDEX %s REBUILD", index.Quoted())
}

func rebuildIndexPartitionStmt(index, partition Ref) string {
	return fmt.Sprintf("ALTER INDEX %s REBUILD PARTITION %s", index.Quoted(), partition.Quoted())
}
