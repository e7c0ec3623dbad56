// Copyright 2026 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dbtest opens history databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/heat-perf/benchhist/storage/db"
	"github.com/heat-perf/benchhist/storage/db/cloudsql"
	_ "github.com/heat-perf/benchhist/storage/db/sqlite3"
)

var mysqlDSN = flag.String("mysql", "", "run database tests against the MySQL server at `dsn` (user:pass@tcp(host)/) instead of SQLite")
var cloudSQL = flag.String("cloudsql", "", "run database tests as root on the Cloud SQL `instance` (project:region:name) instead of SQLite")

// serverDSN returns the DSN of the MySQL server chosen by flags, or ""
// for SQLite.
func serverDSN(t *testing.T) string {
	if *cloudSQL == "" {
		return *mysqlDSN
	}
	base := *mysqlDSN
	if base == "" {
		base = "root@/"
	}
	dsn, err := cloudsql.DSN(*cloudSQL, base)
	if err != nil {
		t.Fatal(err)
	}
	return dsn
}

// createEmptyMySQLDB makes a new, empty database on the server at
// prefix for the test.
func createEmptyMySQLDB(t *testing.T, prefix string) (dsn string, cleanup func()) {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	name := fmt.Sprintf("benchhist_test_%d", time.Now().UnixNano())

	conn, err := sql.Open("mysql", prefix)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Exec(fmt.Sprintf("CREATE DATABASE `%s`", name)); err != nil {
		conn.Close()
		t.Fatal(err)
	}
	t.Logf("Using database %q", name)

	return prefix + name, func() {
		if _, err := conn.Exec(fmt.Sprintf("DROP DATABASE `%s`", name)); err != nil {
			t.Error(err)
		}
		conn.Close()
	}
}

// NewDB makes a connection to a testing database, either an in-memory
// sqlite3 database or MySQL depending on the -mysql and -cloudsql
// flags. It is closed when the test finishes.
func NewDB(t *testing.T) *db.DB {
	driverName, dataSourceName := "sqlite3", ":memory:"
	var mysqlCleanup func()
	if server := serverDSN(t); server != "" {
		driverName = "mysql"
		dataSourceName, mysqlCleanup = createEmptyMySQLDB(t, server)
	}
	d, err := db.OpenSQL(driverName, dataSourceName)
	if err != nil {
		if mysqlCleanup != nil {
			mysqlCleanup()
		}
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
		if mysqlCleanup != nil {
			mysqlCleanup()
		}
	})

	// Make sure the database really is empty.
	n, err := d.CountPoints(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("found %d row(s) in Points, want 0", n)
	}
	return d
}
