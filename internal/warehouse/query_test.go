package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "warehouse.db"), DefaultConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	stmts := []string{
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, customer TEXT, total REAL, note TEXT)`,
		`INSERT INTO orders (customer, total, note) VALUES ('alice', 12.50, 'gift wrap')`,
		`INSERT INTO orders (customer, total, note) VALUES ('bob', 99.99, NULL)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return db
}

func TestExecuteQueryReturnsRows(t *testing.T) {
	exec := NewExecutor(openTestDB(t), time.Second, 100)

	rs, err := exec.ExecuteQuery(context.Background(), "SELECT customer, total, note FROM orders ORDER BY id")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(rs.Columns) != 3 {
		t.Fatalf("columns: got %v", rs.Columns)
	}
	if len(rs.Rows) != 2 {
		t.Fatalf("rows: got %d, want 2", len(rs.Rows))
	}
	if rs.Rows[0][0] != "alice" {
		t.Errorf("row 0 customer: got %q", rs.Rows[0][0])
	}
	// NULL renders as empty string.
	if rs.Rows[1][2] != "" {
		t.Errorf("NULL column must render empty, got %q", rs.Rows[1][2])
	}
}

func TestExecuteQueryRejectsWrites(t *testing.T) {
	exec := NewExecutor(openTestDB(t), time.Second, 100)

	for _, q := range []string{
		"DELETE FROM orders",
		"UPDATE orders SET total = 0",
		"INSERT INTO orders (customer) VALUES ('mallory')",
		"DROP TABLE orders",
	} {
		_, err := exec.ExecuteQuery(context.Background(), q)
		if !errors.Is(err, ErrForbiddenQuery) {
			t.Errorf("query %q: got %v, want ErrForbiddenQuery", q, err)
		}
	}
}

func TestCheckReadOnlySeparatorOnlyInput(t *testing.T) {
	// Inputs made entirely of separator runes must be rejected, not panic.
	for _, q := range []string{"(((", "( ( (", "\t(\n"} {
		if err := CheckReadOnly(q); !errors.Is(err, ErrForbiddenQuery) {
			t.Errorf("query %q: got %v, want ErrForbiddenQuery", q, err)
		}
	}
}

func TestExecuteQueryRejectsEmpty(t *testing.T) {
	exec := NewExecutor(openTestDB(t), time.Second, 100)
	if _, err := exec.ExecuteQuery(context.Background(), "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("got %v, want ErrEmptyQuery", err)
	}
}

func TestExecuteQueryAllowsCTE(t *testing.T) {
	exec := NewExecutor(openTestDB(t), time.Second, 100)
	rs, err := exec.ExecuteQuery(context.Background(), "WITH t AS (SELECT customer FROM orders) SELECT * FROM t")
	if err != nil {
		t.Fatalf("CTE query rejected: %v", err)
	}
	if len(rs.Rows) != 2 {
		t.Errorf("rows: got %d", len(rs.Rows))
	}
}

func TestExecuteQueryRowLimit(t *testing.T) {
	exec := NewExecutor(openTestDB(t), time.Second, 1)
	if _, err := exec.ExecuteQuery(context.Background(), "SELECT * FROM orders"); !errors.Is(err, ErrTooManyRows) {
		t.Errorf("got %v, want ErrTooManyRows", err)
	}
}

func TestWriteCSV(t *testing.T) {
	rs := &ResultSet{
		Columns: []string{"customer", "note"},
		Rows: [][]string{
			{"alice", "gift wrap"},
			{"bob", `say "hi"`},
		},
	}
	data, err := rs.CSVBytes()
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	out := string(data)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), out)
	}
	if lines[0] != "customer,note" {
		t.Errorf("header: got %q", lines[0])
	}
	if !strings.Contains(lines[2], `"say ""hi"""`) {
		t.Errorf("quotes must be escaped, got %q", lines[2])
	}
}

func TestWriteCSVEmptyResult(t *testing.T) {
	rs := &ResultSet{Columns: []string{"a", "b"}}
	data, err := rs.CSVBytes()
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if strings.TrimSpace(string(data)) != "a,b" {
		t.Errorf("empty result must still yield header, got %q", string(data))
	}
}
