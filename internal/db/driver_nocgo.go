//go:build !cgo

package db

import (
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteDriver = "sqlite"

func sqliteDSN(file string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", filepath.ToSlash(file))
}
