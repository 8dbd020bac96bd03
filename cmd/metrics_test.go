package cmd

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSnapshotTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "ORDERS"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(123456))
	mock.ExpectQuery("user_segments").WithArgs("ORDERS").
		WillReturnRows(sqlmock.NewRows([]string{"count", "bytes"}).AddRow(3, 52428800))

	s, err := snapshotTable(context.Background(), db, Ref{name: "ORDERS"})
	if err != nil {
		t.Fatalf("snapshotTable: %v", err)
	}
	if s.Rows != 123456 {
		t.Errorf("Rows = %d, want 123456", s.Rows)
	}
	if s.IndexCount != 3 {
		t.Errorf("IndexCount = %d, want 3", s.IndexCount)
	}
	if s.IndexBytes != 52428800 {
		t.Errorf("IndexBytes = %d, want 52428800", s.IndexBytes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCountPartitionRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM "ORDERS" PARTITION \("P_20240115"\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4200))

	p := PartitionRef{Table: Ref{name: "ORDERS"}, Partition: Ref{name: "P_20240115"}}
	n, err := countPartitionRows(context.Background(), db, p)
	if err != nil {
		t.Fatalf("countPartitionRows: %v", err)
	}
	if n != 4200 {
		t.Errorf("rows = %d, want 4200", n)
	}
}

func TestPartitionCompression(t *testing.T) {
	tests := []struct {
		name        string
		compression string
		compressFor string
		wantOn      bool
		wantMode    string
	}{
		{"Enabled", "ENABLED", "QUERY HIGH", true, "QUERY HIGH"},
		{"Disabled", "DISABLED", "NONE", false, "NONE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock: %v", err)
			}
			defer db.Close()

			mock.ExpectQuery("compress_for").WithArgs("ORDERS_ARCH", "P_20240115").
				WillReturnRows(sqlmock.NewRows([]string{"compression", "compress_for"}).
					AddRow(tt.compression, tt.compressFor))

			p := PartitionRef{Table: Ref{name: "ORDERS_ARCH"}, Partition: Ref{name: "P_20240115"}}
			on, mode, err := partitionCompression(context.Background(), db, p)
			if err != nil {
				t.Fatalf("partitionCompression: %v", err)
			}
			if on != tt.wantOn || mode != tt.wantMode {
				t.Errorf("got (%v, %q), want (%v, %q)", on, mode, tt.wantOn, tt.wantMode)
			}
		})
	}
}
