// Copyright 2026 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cloudsql lets the mysql driver reach Cloud SQL instances for
// github.com/heat-perf/benchhist/storage/db. Importing it registers the
// "cloudsql" network of the Cloud SQL proxy dialer, which connects with
// Application Default Credentials.
package cloudsql

import (
	"fmt"

	_ "github.com/GoogleCloudPlatform/cloudsql-proxy/proxy/dialers/mysql"
	"github.com/go-sql-driver/mysql"
)

// DSN rewrites the MySQL data source name dsn to connect to the Cloud
// SQL instance named by its connection name (project:region:instance).
// Any network address in dsn is replaced, so "root@/hist" becomes
// "root@cloudsql(project:region:instance)/hist".
func DSN(instance, dsn string) (string, error) {
	if instance == "" {
		return "", fmt.Errorf("no Cloud SQL instance")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parsing MySQL DSN: %w", err)
	}
	cfg.Net, cfg.Addr = "cloudsql", instance
	return cfg.FormatDSN(), nil
}
