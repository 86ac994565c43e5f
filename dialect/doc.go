// Package dialect provides the database dialect abstraction rowmap reads
// results through.
//
// # Supported Dialects
//
// The following dialects are supported:
//
//   - Postgres: PostgreSQL database
//   - MySQL: MySQL/MariaDB database
//   - SQLite: SQLite database
//   - DynamoDB: Amazon DynamoDB items
//
// # Dialect Constants
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//	dialect.DynamoDB = "dynamodb"
//
// # Driver Interface
//
// SQL drivers implement the Driver interface:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// Both Driver and Tx implement ExecQuerier, which is what the mapping
// helpers of dialect/sql accept.
//
// # Usage
//
//	import (
//	    "github.com/syssam/rowmap/dialect"
//	    "github.com/syssam/rowmap/dialect/sql"
//	)
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
//	users, err := sql.All[User](ctx, sql.NewScanner(reg), drv, "SELECT id, name FROM users")
//
// # Sub-packages
//
//   - dialect/sql: database/sql driver and result mapping helpers
//   - dialect/dynamodb: row accessor over DynamoDB items
package dialect
