package store

import (
	"fmt"
)

// Supported store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Open returns the repository for driver. dbPath is only used by the SQLite driver.
func Open(driver, dbPath string) (Repository, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverSQLite:
		return NewSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
