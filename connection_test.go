package quackdb

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestConnectionOpenClose(t *testing.T) {
	requireDB(t)

	conn, err := NewConnection(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Failed to close connection: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("Expected second close to be a no-op, got %v", err)
	}
}

func TestConnectionOptions(t *testing.T) {
	requireDB(t)

	conn, err := NewConnection(":memory:", WithThreads(2), WithMaxMemory("512MB"))
	if err != nil {
		t.Fatalf("Failed to open database with options: %v", err)
	}
	defer conn.Close()

	res, err := conn.Query("SELECT current_setting('threads')")
	if err != nil {
		t.Fatalf("Failed to query settings: %v", err)
	}
	defer res.Close()

	chunk, err := res.FetchChunk()
	if err != nil {
		t.Fatalf("Failed to fetch chunk: %v", err)
	}
	defer chunk.Close()

	vec, _ := chunk.Vector(0)
	rd, err := NewVectorReader[int64](vec)
	if err != nil {
		t.Fatalf("Failed to build reader: %v", err)
	}
	if v, _ := rd.Get(0); v != 2 {
		t.Errorf("Expected 2 threads, got %d", v)
	}
}

func TestConnectionInvalidOption(t *testing.T) {
	requireDB(t)

	_, err := NewConnection(":memory:", WithConfig("no_such_option", "1"))
	if err == nil {
		t.Fatal("Expected open to fail with an unknown option, got nil")
	}
	if !IsError(err, ErrConnection) {
		t.Errorf("Expected ErrConnection, got %v", err)
	}
}

func TestClosedConnectionOperations(t *testing.T) {
	requireDB(t)

	conn, err := NewConnection(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	conn.Close()

	if _, err := conn.Prepare("SELECT 1"); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Expected ErrConnectionClosed from Prepare, got %v", err)
	}
	if _, err := conn.Query("SELECT 1"); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Expected ErrConnectionClosed from Query, got %v", err)
	}
	if _, err := conn.Exec("SELECT 1"); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Expected ErrConnectionClosed from Exec, got %v", err)
	}
}

func TestConnectionExec(t *testing.T) {
	conn := openTestConnection(t)

	mustExec(t, conn, "CREATE TABLE exec_test (id INTEGER)")

	changed, err := conn.Exec("INSERT INTO exec_test VALUES (1), (2), (3)")
	if err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if changed != 3 {
		t.Errorf("Expected 3 changed rows, got %d", changed)
	}

	changed, err = conn.Exec("UPDATE exec_test SET id = id + 10 WHERE id >= 2")
	if err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	if changed != 2 {
		t.Errorf("Expected 2 changed rows, got %d", changed)
	}
}

func TestConnectionExecMultiStatement(t *testing.T) {
	conn := openTestConnection(t)

	_, err := conn.Exec(`
		CREATE TABLE multi (id INTEGER, name VARCHAR);
		INSERT INTO multi VALUES (1, 'one');
		INSERT INTO multi VALUES (2, 'two');
	`)
	if err != nil {
		t.Fatalf("Failed to run multi-statement SQL: %v", err)
	}

	res, err := conn.Query("SELECT COUNT(*) FROM multi")
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	defer res.Close()

	chunk, err := res.FetchChunk()
	if err != nil {
		t.Fatalf("Failed to fetch chunk: %v", err)
	}
	defer chunk.Close()

	vec, _ := chunk.Vector(0)
	rd, err := NewVectorReader[int64](vec)
	if err != nil {
		t.Fatalf("Failed to build reader: %v", err)
	}
	if v, _ := rd.Get(0); v != 2 {
		t.Errorf("Expected 2 rows, got %d", v)
	}
}

func TestConnectionQueryError(t *testing.T) {
	conn := openTestConnection(t)

	_, err := conn.Query("SELECT * FROM no_such_table")
	if err == nil {
		t.Fatal("Expected query against a missing table to fail, got nil")
	}
	if !IsError(err, ErrQuery) {
		t.Errorf("Expected ErrQuery, got %v", err)
	}
}

func TestFileDatabasePersistence(t *testing.T) {
	requireDB(t)

	path := filepath.Join(t.TempDir(), "persist.db")

	conn, err := NewConnection(path)
	if err != nil {
		t.Fatalf("Failed to create file database: %v", err)
	}
	if _, err := conn.Exec("CREATE TABLE saved (id INTEGER); INSERT INTO saved VALUES (7)"); err != nil {
		conn.Close()
		t.Fatalf("Failed to write: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	conn, err = NewConnection(path)
	if err != nil {
		t.Fatalf("Failed to reopen file database: %v", err)
	}
	defer conn.Close()

	res, err := conn.Query("SELECT id FROM saved")
	if err != nil {
		t.Fatalf("Failed to read back: %v", err)
	}
	defer res.Close()

	chunk, err := res.FetchChunk()
	if err != nil {
		t.Fatalf("Failed to fetch chunk: %v", err)
	}
	defer chunk.Close()

	vec, _ := chunk.Vector(0)
	rd, err := NewVectorReader[int32](vec)
	if err != nil {
		t.Fatalf("Failed to build reader: %v", err)
	}
	if v, _ := rd.Get(0); v != 7 {
		t.Errorf("Expected 7, got %d", v)
	}
}

func TestReadOnlyConnection(t *testing.T) {
	requireDB(t)

	path := filepath.Join(t.TempDir(), "readonly.db")

	conn, err := NewConnection(path)
	if err != nil {
		t.Fatalf("Failed to create file database: %v", err)
	}
	if _, err := conn.Exec("CREATE TABLE locked (id INTEGER)"); err != nil {
		conn.Close()
		t.Fatalf("Failed to create table: %v", err)
	}
	conn.Close()

	ro, err := NewConnection(path, WithReadOnly())
	if err != nil {
		t.Fatalf("Failed to open read-only: %v", err)
	}
	defer ro.Close()

	if _, err := ro.Query("SELECT * FROM locked"); err != nil {
		t.Errorf("Expected reads to work in read-only mode: %v", err)
	}

	if _, err := ro.Exec("INSERT INTO locked VALUES (1)"); err == nil {
		t.Error("Expected writes to fail in read-only mode")
	}
}

func TestEngineVersion(t *testing.T) {
	requireDB(t)

	v, err := EngineVersion()
	if err != nil {
		t.Fatalf("Failed to get engine version: %v", err)
	}
	if v.String() == "" {
		t.Error("Expected a non-empty version string")
	}
	if !v.AtLeast(0, 9, 0) {
		t.Errorf("Expected a modern engine, got %s", v)
	}
	t.Logf("Engine version: %s", v)
}

func TestVersionAtLeast(t *testing.T) {
	v := Version{Major: 1, Minor: 2, Patch: 3}

	cases := []struct {
		major, minor, patch int
		want                bool
	}{
		{1, 2, 3, true},
		{1, 2, 2, true},
		{1, 1, 9, true},
		{0, 9, 9, true},
		{1, 2, 4, false},
		{1, 3, 0, false},
		{2, 0, 0, false},
	}

	for _, c := range cases {
		if got := v.AtLeast(c.major, c.minor, c.patch); got != c.want {
			t.Errorf("Expected AtLeast(%d, %d, %d) = %v, got %v", c.major, c.minor, c.patch, c.want, got)
		}
	}
}

func TestVersionString(t *testing.T) {
	withStr := Version{Major: 1, Minor: 2, Patch: 3, VersionStr: "v1.2.3"}
	if withStr.String() != "v1.2.3" {
		t.Errorf("Expected %q, got %q", "v1.2.3", withStr.String())
	}

	parsed := Version{Major: 1, Minor: 2, Patch: 3}
	if parsed.String() != "1.2.3" {
		t.Errorf("Expected %q, got %q", "1.2.3", parsed.String())
	}
}
