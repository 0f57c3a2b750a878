// Package main is the entry point for the userstream CLI binary.
package main

import (
	"os"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	cli "userstream/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
