// Copyright 2026 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db mirrors aggregated benchmark history into a SQL database
// so it can be queried without reading the store files.
//
// The mirror is write-only from the aggregator's point of view and
// inserts are idempotent: a point that is already present is ignored.
package db

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/heat-perf/benchhist/benchstore"
)

// DB is a high-level interface to a history database. It's safe for
// concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// prepared statements
	insertBenchmark *sql.Stmt
	insertPoint     *sql.Stmt
	insertStat      *sql.Stmt
}

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		return nil, err
	}
	if err := d.prepareStatements(driverName); err != nil {
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a connection to driverName.
// This is used by the sqlite3 package to register a ConnectHook.
// It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Benchmarks (
	Suite VARCHAR(64) NOT NULL,
	Identity VARCHAR(500) NOT NULL,
	Name VARCHAR(500) NOT NULL,
	Params TEXT,
	PRIMARY KEY (Suite, Identity)
);
CREATE TABLE IF NOT EXISTS Points (
	Suite VARCHAR(64) NOT NULL,
	Identity VARCHAR(500) NOT NULL,
	Run VARCHAR(128) NOT NULL,
	Seq {{if .sqlite3}}INTEGER{{else}}BIGINT UNSIGNED{{end}} NOT NULL,
	Timestamp VARCHAR(64),
	PRIMARY KEY (Suite, Identity, Run),
	FOREIGN KEY (Suite, Identity) REFERENCES Benchmarks(Suite, Identity) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS Stats (
	Suite VARCHAR(64) NOT NULL,
	Identity VARCHAR(500) NOT NULL,
	Run VARCHAR(128) NOT NULL,
	Metric VARCHAR(64) NOT NULL,
	Value DOUBLE NOT NULL,
	PRIMARY KEY (Suite, Identity, Run, Metric),
	FOREIGN KEY (Suite, Identity, Run) REFERENCES Points(Suite, Identity, Run) ON UPDATE CASCADE ON DELETE CASCADE
);
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements(driverName string) error {
	ignore := "INSERT IGNORE"
	if driverName == "sqlite3" {
		ignore = "INSERT OR IGNORE"
	}
	var err error
	db.insertBenchmark, err = db.sql.Prepare(ignore + " INTO Benchmarks(Suite, Identity, Name, Params) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	db.insertPoint, err = db.sql.Prepare(ignore + " INTO Points(Suite, Identity, Run, Seq, Timestamp) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	db.insertStat, err = db.sql.Prepare(ignore + " INTO Stats(Suite, Identity, Run, Metric, Value) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	return nil
}

// InsertHistory records the history of e in suite. Points already in
// the database are left alone. It returns the number of points that
// were newly inserted.
func (db *DB) InsertHistory(ctx context.Context, suite string, e *benchstore.Entry) (n int, err error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var params []byte
	if len(e.Params) > 0 {
		if params, err = json.Marshal(e.Params); err != nil {
			return 0, err
		}
	}
	if _, err = tx.StmtContext(ctx, db.insertBenchmark).ExecContext(ctx, suite, e.Identity, e.Name, string(params)); err != nil {
		return 0, err
	}
	insertPoint := tx.StmtContext(ctx, db.insertPoint)
	insertStat := tx.StmtContext(ctx, db.insertStat)
	for seq, p := range e.History {
		res, err := insertPoint.ExecContext(ctx, suite, e.Identity, p.Run, seq, p.Timestamp)
		if err != nil {
			return 0, err
		}
		if rows, err := res.RowsAffected(); err != nil {
			return 0, err
		} else if rows == 0 {
			continue
		}
		n++
		metrics := make([]string, 0, len(p.Stats))
		for m := range p.Stats {
			metrics = append(metrics, m)
		}
		sort.Strings(metrics)
		for _, m := range metrics {
			if _, err := insertStat.ExecContext(ctx, suite, e.Identity, p.Run, m, p.Stats[m]); err != nil {
				return 0, err
			}
		}
	}
	return n, nil
}

// A Sample is one value of a metric in a benchmark's history.
type Sample struct {
	Seq       int
	Run       string
	Timestamp string
	Value     float64
}

// Series returns the values of metric for a benchmark, in history order.
func (db *DB) Series(ctx context.Context, suite, identity, metric string) ([]Sample, error) {
	rows, err := db.sql.QueryContext(ctx, `
SELECT p.Seq, p.Run, p.Timestamp, s.Value
FROM Points p JOIN Stats s ON p.Suite = s.Suite AND p.Identity = s.Identity AND p.Run = s.Run
WHERE p.Suite = ? AND p.Identity = ? AND s.Metric = ?
ORDER BY p.Seq`, suite, identity, metric)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Sample
	for rows.Next() {
		var s Sample
		var ts sql.NullString
		if err := rows.Scan(&s.Seq, &s.Run, &ts, &s.Value); err != nil {
			return nil, err
		}
		s.Timestamp = ts.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountPoints returns the number of history points in the database.
func (db *DB) CountPoints(ctx context.Context) (int, error) {
	var n int
	err := db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM Points").Scan(&n)
	return n, err
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	for _, stmt := range []*sql.Stmt{db.insertBenchmark, db.insertPoint, db.insertStat} {
		if err := stmt.Close(); err != nil {
			return err
		}
	}
	return db.sql.Close()
}
