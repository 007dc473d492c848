package quackdb

import (
	"context"
	"database/sql"
	"testing"
	"time"
)

// openTestDB opens a database/sql handle over the driver. The pool is
// capped at one connection because every pooled connection would otherwise
// get its own in-memory database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	requireDB(t)

	db, err := sql.Open("quackdb", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDriverPing(t *testing.T) {
	db := openTestDB(t)

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}
}

func TestDriverQueryScan(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec("CREATE TABLE users (id INTEGER, name VARCHAR, height DOUBLE, joined TIMESTAMP)")
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	joined := time.Date(2023, 3, 1, 8, 0, 0, 0, time.UTC)
	_, err = db.Exec("INSERT INTO users VALUES (?, ?, ?, ?)", int32(1), "Alice", 1.72, joined)
	if err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	var (
		id     int64
		name   string
		height float64
		when   time.Time
	)
	err = db.QueryRow("SELECT id, name, height, joined FROM users").Scan(&id, &name, &height, &when)
	if err != nil {
		t.Fatalf("Failed to scan row: %v", err)
	}

	if id != 1 {
		t.Errorf("Expected id 1, got %d", id)
	}
	if name != "Alice" {
		t.Errorf("Expected name Alice, got %s", name)
	}
	if height != 1.72 {
		t.Errorf("Expected height 1.72, got %v", height)
	}
	if !when.Equal(joined) {
		t.Errorf("Expected joined %v, got %v", joined, when)
	}
}

func TestDriverNullScan(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec("CREATE TABLE maybe (id INTEGER, note VARCHAR)")
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	_, err = db.Exec("INSERT INTO maybe VALUES (1, NULL), (2, 'set')")
	if err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	rows, err := db.Query("SELECT id, note FROM maybe ORDER BY id")
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	defer rows.Close()

	var got []sql.NullString
	for rows.Next() {
		var id int64
		var note sql.NullString
		if err := rows.Scan(&id, &note); err != nil {
			t.Fatalf("Failed to scan: %v", err)
		}
		got = append(got, note)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("Error during iteration: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(got))
	}
	if got[0].Valid {
		t.Error("Expected first note to be NULL")
	}
	if !got[1].Valid || got[1].String != "set" {
		t.Errorf("Expected second note to be 'set', got %+v", got[1])
	}
}

func TestDriverPreparedStatement(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec("CREATE TABLE kv (k VARCHAR, v INTEGER)")
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	stmt, err := db.Prepare("INSERT INTO kv VALUES (?, ?)")
	if err != nil {
		t.Fatalf("Failed to prepare statement: %v", err)
	}
	defer stmt.Close()

	for i, k := range []string{"a", "b", "c"} {
		if _, err := stmt.Exec(k, i); err != nil {
			t.Fatalf("Failed to insert %q: %v", k, err)
		}
	}

	var v int64
	err = db.QueryRow("SELECT v FROM kv WHERE k = ?", "b").Scan(&v)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if v != 1 {
		t.Errorf("Expected 1, got %d", v)
	}
}

func TestDriverRowsAffected(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec("CREATE TABLE ra (id INTEGER); INSERT INTO ra VALUES (1), (2), (3)")
	if err != nil {
		t.Fatalf("Failed to set up: %v", err)
	}

	res, err := db.Exec("UPDATE ra SET id = id + 10 WHERE id >= ?", 2)
	if err != nil {
		t.Fatalf("Failed to update: %v", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		t.Fatalf("Failed to get rows affected: %v", err)
	}
	if affected != 2 {
		t.Errorf("Expected 2 rows affected, got %d", affected)
	}
}

func TestDriverTransactions(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec("CREATE TABLE accounts (id INTEGER, balance INTEGER)")
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	_, err = db.Exec("INSERT INTO accounts VALUES (1, 100), (2, 100)")
	if err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	// Committed transfer.
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	if _, err := tx.Exec("UPDATE accounts SET balance = balance - 30 WHERE id = 1"); err != nil {
		t.Fatalf("Failed to debit: %v", err)
	}
	if _, err := tx.Exec("UPDATE accounts SET balance = balance + 30 WHERE id = 2"); err != nil {
		t.Fatalf("Failed to credit: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	var balance int64
	if err := db.QueryRow("SELECT balance FROM accounts WHERE id = 2").Scan(&balance); err != nil {
		t.Fatalf("Failed to query balance: %v", err)
	}
	if balance != 130 {
		t.Errorf("Expected balance 130 after commit, got %d", balance)
	}

	// Rolled back transfer.
	tx, err = db.Begin()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	if _, err := tx.Exec("UPDATE accounts SET balance = 0"); err != nil {
		t.Fatalf("Failed to update in transaction: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Failed to rollback: %v", err)
	}

	if err := db.QueryRow("SELECT balance FROM accounts WHERE id = 2").Scan(&balance); err != nil {
		t.Fatalf("Failed to query balance: %v", err)
	}
	if balance != 130 {
		t.Errorf("Expected balance 130 after rollback, got %d", balance)
	}
}

func TestDriverNamedParameters(t *testing.T) {
	db := openTestDB(t)

	var sum int64
	err := db.QueryRow("SELECT $lo + $hi", sql.Named("lo", 2), sql.Named("hi", 40)).Scan(&sum)
	if err != nil {
		t.Fatalf("Failed to query with named parameters: %v", err)
	}
	if sum != 42 {
		t.Errorf("Expected 42, got %d", sum)
	}
}

func TestDriverColumnTypes(t *testing.T) {
	db := openTestDB(t)

	rows, err := db.Query("SELECT 1::INTEGER AS n, 'x' AS s, 1.5::DOUBLE AS f")
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		t.Fatalf("Failed to get column types: %v", err)
	}

	want := []string{"INTEGER", "VARCHAR", "DOUBLE"}
	for i, w := range want {
		if got := types[i].DatabaseTypeName(); got != w {
			t.Errorf("Expected type %q at column %d, got %q", w, i, got)
		}
		if nullable, ok := types[i].Nullable(); !nullable || !ok {
			t.Errorf("Expected column %d to report nullable", i)
		}
	}
}

func TestDriverBlobRoundTrip(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec("CREATE TABLE blobs (data BLOB)")
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	payload := []byte{0x00, 0x01, 0xFE, 0xFF}
	if _, err := db.Exec("INSERT INTO blobs VALUES (?)", payload); err != nil {
		t.Fatalf("Failed to insert blob: %v", err)
	}

	var got []byte
	if err := db.QueryRow("SELECT data FROM blobs").Scan(&got); err != nil {
		t.Fatalf("Failed to scan blob: %v", err)
	}
	if len(got) != len(payload) {
		t.Fatalf("Expected %d bytes, got %d", len(payload), len(got))
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Errorf("Expected byte %#x at %d, got %#x", payload[i], i, got[i])
		}
	}
}

func TestDriverLastInsertId(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec("CREATE TABLE li (id INTEGER)")
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	res, err := db.Exec("INSERT INTO li VALUES (1)")
	if err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	// The engine has no rowid notion; the driver reports zero rather
	// than an error so generic callers keep working.
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("Expected LastInsertId to be tolerated, got %v", err)
	}
	if id != 0 {
		t.Errorf("Expected 0, got %d", id)
	}
}

func TestDriverConnector(t *testing.T) {
	requireDB(t)

	db := sql.OpenDB(NewConnector(":memory:", WithThreads(2)))
	db.SetMaxOpenConns(1)
	defer db.Close()

	var threads int64
	if err := db.QueryRow("SELECT current_setting('threads')").Scan(&threads); err != nil {
		t.Fatalf("Failed to query settings: %v", err)
	}
	if threads != 2 {
		t.Errorf("Expected 2 threads, got %d", threads)
	}
}

func TestDriverDSNOptions(t *testing.T) {
	requireDB(t)

	db, err := sql.Open("quackdb", ":memory:?threads=2")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()

	var threads int64
	if err := db.QueryRow("SELECT current_setting('threads')").Scan(&threads); err != nil {
		t.Fatalf("Failed to query settings: %v", err)
	}
	if threads != 2 {
		t.Errorf("Expected 2 threads, got %d", threads)
	}
}

func TestParseDSN(t *testing.T) {
	cases := []struct {
		dsn      string
		wantPath string
		wantCfg  map[string]string
	}{
		{"", ":memory:", nil},
		{":memory:", ":memory:", nil},
		{"/tmp/data.db", "/tmp/data.db", nil},
		{":memory:?threads=4", ":memory:", map[string]string{"threads": "4"}},
		{"/tmp/data.db?threads=4&max_memory=1GB", "/tmp/data.db", map[string]string{"threads": "4", "max_memory": "1GB"}},
	}

	for _, c := range cases {
		path, options, err := parseDSN(c.dsn)
		if err != nil {
			t.Fatalf("Failed to parse %q: %v", c.dsn, err)
		}
		if path != c.wantPath {
			t.Errorf("Expected path %q for %q, got %q", c.wantPath, c.dsn, path)
		}

		settings := &connectionSettings{config: make(map[string]string)}
		for _, opt := range options {
			opt(settings)
		}
		if len(settings.config) != len(c.wantCfg) {
			t.Errorf("Expected %d options for %q, got %d", len(c.wantCfg), c.dsn, len(settings.config))
		}
		for k, w := range c.wantCfg {
			if settings.config[k] != w {
				t.Errorf("Expected option %s=%s for %q, got %s", k, w, c.dsn, settings.config[k])
			}
		}
	}
}

func TestParseDSNInvalid(t *testing.T) {
	_, _, err := parseDSN(":memory:?bad=%zz")
	if err == nil {
		t.Fatal("Expected error for a malformed query string, got nil")
	}
	if !IsError(err, ErrConnection) {
		t.Errorf("Expected ErrConnection, got %v", err)
	}
}

func TestDriverUnsupportedIsolation(t *testing.T) {
	db := openTestDB(t)

	_, err := db.BeginTx(context.Background(), &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err == nil {
		t.Fatal("Expected error for a non-default isolation level, got nil")
	}
}
