package sqldb

import (
	"context"
	"testing"
	"time"
)

func TestParseDriver(t *testing.T) {
	tests := []struct {
		in      string
		want    Driver
		wantErr bool
	}{
		{"postgres", Postgres, false},
		{"PostgreSQL", Postgres, false},
		{"sqlite", SQLite, false},
		{"sqlite3", SQLite, false},
		{"mysql", "", true},
	}
	for _, tc := range tests {
		got, err := ParseDriver(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseDriver(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDriver(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: Postgres}
	got := pg.Rebind("SELECT * FROM t WHERE a = ? AND b = '?' AND c = ?")
	want := "SELECT * FROM t WHERE a = $1 AND b = '?' AND c = $2"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	lite := &DB{driver: SQLite}
	q := "SELECT ? + ?"
	if got := lite.Rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}

func TestOpen_Validation(t *testing.T) {
	if _, err := Open(SQLite, ""); err == nil {
		t.Error("expected error for empty dsn")
	}
	if _, err := Open(Driver("mysql"), "x"); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestOpen_SQLiteMemory(t *testing.T) {
	d, err := Open(SQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	if err := d.WaitForReady(context.Background(), time.Second); err != nil {
		t.Fatalf("wait: %v", err)
	}

	ctx := context.Background()
	if _, err := d.ExecContext(ctx, "CREATE TABLE t (v INTEGER)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := d.ExecContext(ctx, d.Rebind("INSERT INTO t (v) VALUES (?)"), 7); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var v int
	if err := d.QueryRowContext(ctx, "SELECT v FROM t").Scan(&v); err != nil {
		t.Fatalf("select: %v", err)
	}
	if v != 7 {
		t.Errorf("expected 7, got %d", v)
	}
	if d.Driver() != SQLite {
		t.Errorf("unexpected driver %q", d.Driver())
	}
}
