//go:build cgo

package db

import (
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteDriver = "sqlite3"

func sqliteDSN(file string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", filepath.ToSlash(file))
}
