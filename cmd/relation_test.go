package cmd

import (
	"errors"
	"testing"
)

func TestNewRef(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expectOk bool
		expected string
	}{
		{
			name:     "simple name",
			input:    "orders",
			expectOk: true,
			expected: "ORDERS",
		},
		{
			name:     "already upper case",
			input:    "ORDERS_ARCH",
			expectOk: true,
			expected: "ORDERS_ARCH",
		},
		{
			name:     "dollar and hash allowed",
			input:    "ORDERS$AUD#1",
			expectOk: true,
			expected: "ORDERS$AUD#1",
		},
		{
			name:     "leading underscore",
			input:    "_staging",
			expectOk: true,
			expected: "_STAGING",
		},
		{
			name:     "empty",
			input:    "",
			expectOk: false,
		},
		{
			name:     "leading digit",
			input:    "1orders",
			expectOk: false,
		},
		{
			name:     "embedded space",
			input:    "orders arch",
			expectOk: false,
		},
		{
			name:     "quote injection",
			input:    `orders"; DROP TABLE t --`,
			expectOk: false,
		},
		{
			name:     "semicolon injection",
			input:    "orders;delete",
			expectOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := NewRef(tt.input)
			if tt.expectOk {
				if err != nil {
					t.Fatalf("NewRef(%q) returned error: %v", tt.input, err)
				}
				if ref.Name() != tt.expected {
					t.Fatalf("NewRef(%q).Name() = %q, want %q", tt.input, ref.Name(), tt.expected)
				}
				return
			}
			if err == nil {
				t.Fatalf("NewRef(%q) should have failed", tt.input)
			}
			if !errors.Is(err, ErrInvalidIdentifier) {
				t.Fatalf("NewRef(%q) error = %v, want ErrInvalidIdentifier", tt.input, err)
			}
		})
	}
}

func TestNewRefLengthLimit(t *testing.T) {
	long := make([]byte, 129)
	for i := range long {
		long[i] = 'A'
	}
	if _, err := NewRef(string(long)); err == nil {
		t.Fatal("129-character identifier should be rejected")
	}
	if _, err := NewRef(string(long[:128])); err != nil {
		t.Fatalf("128-character identifier should be accepted: %v", err)
	}
}

func mustRef(t *testing.T, name string) Ref {
	t.Helper()
	ref, err := NewRef(name)
	if err != nil {
		t.Fatalf("NewRef(%q): %v", name, err)
	}
	return ref
}

func TestStatementBuilders(t *testing.T) {
	source := mustRef(t, "orders")
	archive := mustRef(t, "orders_arch")
	stage := mustRef(t, "orders_stage")
	part := PartitionRef{Table: source, Partition: mustRef(t, "p_20240115")}
	archPart := PartitionRef{Table: archive, Partition: mustRef(t, "sys_p481")}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "exchange into staging",
			got:      exchangeStmt(part, stage),
			expected: `ALTER TABLE "ORDERS" EXCHANGE PARTITION "P_20240115" WITH TABLE "ORDERS_STAGE" INCLUDING INDEXES WITHOUT VALIDATION`,
		},
		{
			name:     "exchange into archive",
			got:      exchangeStmt(archPart, stage),
			expected: `ALTER TABLE "ORDERS_ARCH" EXCHANGE PARTITION "SYS_P481" WITH TABLE "ORDERS_STAGE" INCLUDING INDEXES WITHOUT VALIDATION`,
		},
		{
			name:     "drop partition",
			got:      dropPartitionStmt(part),
			expected: `ALTER TABLE "ORDERS" DROP PARTITION "P_20240115" UPDATE GLOBAL INDEXES`,
		},
		{
			name:     "truncate",
			got:      truncateStmt(stage),
			expected: `TRUNCATE TABLE "ORDERS_STAGE"`,
		},
		{
			name:     "count",
			got:      countStmt(source),
			expected: `SELECT COUNT(*) FROM "ORDERS"`,
		},
		{
			name:     "count partition",
			got:      countPartitionStmt(part),
			expected: `SELECT COUNT(*) FROM "ORDERS" PARTITION ("P_20240115")`,
		},
		{
			name:     "seed insert",
			got:      seedInsertStmt(archive, stage),
			expected: `INSERT INTO "ORDERS_ARCH" SELECT * FROM "ORDERS_STAGE" WHERE ROWNUM = 1`,
		},
		{
			name:     "seed delete",
			got:      seedDeleteStmt(archPart),
			expected: `DELETE FROM "ORDERS_ARCH" PARTITION ("SYS_P481")`,
		},
		{
			name:     "rebuild index",
			got:      rebuildIndexStmt(mustRef(t, "orders_pk")),
			expected: `ALTER INDEX "ORDERS_PK" REBUILD`,
		},
		{
			name:     "rebuild index partition",
			got:      rebuildIndexPartitionStmt(mustRef(t, "orders_ix1"), mustRef(t, "p_20240115")),
			expected: `ALTER INDEX "ORDERS_IX1" REBUILD PARTITION "P_20240115"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Fatalf("got  %s\nwant %s", tt.got, tt.expected)
			}
		})
	}
}

func TestNewPartitionRef(t *testing.T) {
	table := mustRef(t, "orders")

	if _, err := NewPartitionRef(table, "p_20240115"); err != nil {
		t.Fatalf("valid partition name rejected: %v", err)
	}
	if _, err := NewPartitionRef(table, `p"; drop`); err == nil {
		t.Fatal("invalid partition name should be rejected")
	}
}
