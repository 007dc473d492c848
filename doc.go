/*
Package quackdb is a pure-Go (no cgo) client for DuckDB, binding the engine's
C API at runtime through purego.

# Overview

The package loads the DuckDB shared library with dlopen/LoadLibrary and talks
to it directly, so cross-compilation and CGO_ENABLED=0 builds keep working.
It offers two API levels:

 1. A standard database/sql driver registered as "quackdb"
 2. A direct API exposing prepared statements, result chunks and typed
    column readers

The direct API is the interesting one for analytical work: results arrive as
columnar data chunks, and VectorReader gives type-checked, null-aware access
to each column vector without per-row interface boxing.

# Standard SQL API

	package main

	import (
		"database/sql"
		"fmt"
		"log"

		_ "github.com/semihalev/quackdb"
	)

	func main() {
		db, err := sql.Open("quackdb", ":memory:")
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		_, err = db.Exec(`CREATE TABLE users (id INTEGER, name VARCHAR, age INTEGER)`)
		if err != nil {
			log.Fatalf("failed to create table: %v", err)
		}

		_, err = db.Exec(`INSERT INTO users VALUES (1, 'Alice', 30), (2, 'Bob', 25)`)
		if err != nil {
			log.Fatalf("failed to insert data: %v", err)
		}

		rows, err := db.Query(`SELECT id, name, age FROM users WHERE age > ?`, 20)
		if err != nil {
			log.Fatalf("failed to query data: %v", err)
		}
		defer rows.Close()

		for rows.Next() {
			var id, age int64
			var name string
			if err := rows.Scan(&id, &name, &age); err != nil {
				log.Fatalf("failed to scan row: %v", err)
			}
			fmt.Printf("User: %d, %s, %d\n", id, name, age)
		}
	}

# Direct API

	conn, err := quackdb.NewConnection(":memory:")
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	stmt, err := conn.Prepare(`SELECT id, name FROM users WHERE age > ?`)
	if err != nil {
		log.Fatalf("failed to prepare: %v", err)
	}
	defer stmt.Close()

	if err := stmt.BindAll(int32(20)); err != nil {
		log.Fatalf("failed to bind: %v", err)
	}

	res, err := stmt.Execute()
	if err != nil {
		log.Fatalf("failed to execute: %v", err)
	}
	defer res.Close()

	err = res.ForEachChunk(func(chunk *quackdb.DataChunk) error {
		ids, _ := chunk.Vector(0)
		names, _ := chunk.Vector(1)

		idReader, err := quackdb.NewVectorReader[int64](ids)
		if err != nil {
			return err
		}
		nameReader, err := quackdb.NewVectorReader[string](names)
		if err != nil {
			return err
		}

		for row := 0; row < chunk.Size(); row++ {
			id, ok := idReader.TryGet(row)
			if !ok {
				continue // NULL id
			}
			name, _ := nameReader.TryGet(row)
			fmt.Printf("%d: %s\n", id, name)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("failed to read result: %v", err)
	}

Whole columns come out in one pass with QueryColumnar:

	cr, err := conn.QueryColumnar(`SELECT id, value FROM metrics`)
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}
	ids, nulls, err := quackdb.ColumnAs[int64](cr, 0)

Bulk loading goes through the appender, which writes rows without SQL
round-trips:

	app, err := quackdb.NewAppender(conn, "", "users")
	if err != nil {
		log.Fatalf("failed to create appender: %v", err)
	}
	defer app.Close()

	if err := app.AppendRow(int32(3), "Carol", int32(41)); err != nil {
		log.Fatalf("failed to append: %v", err)
	}

# Error Handling

Every failure carries the engine's diagnostic text and an ErrorType. Use
errors.Is against the exported sentinels or IsError against a type:

	_, err := stmt.Execute()
	if errors.Is(err, quackdb.ErrStatementClosed) { ... }
	if quackdb.IsError(err, quackdb.ErrQuery) { ... }

# Connection Strings

  - In-memory database: ":memory:" (or an empty string)
  - File-based database: /path/to/database.db
  - Read-only mode: /path/to/database.db?access_mode=READ_ONLY
  - Any engine setting: /path/to/database.db?threads=4&max_memory=2GB

# Library Loading

The DuckDB shared library resolves from QUACKDB_LIBRARY_PATH when set,
otherwise from the usual system locations for the platform. Use
NativeLibraryAvailable to probe without opening a database.
*/
package quackdb
