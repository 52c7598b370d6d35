/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"

	"github.com/Seednode/pricebox/sets"
)

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}

// openStore opens the set repository named by --store. The returned func
// releases it.
func openStore(cfg *Config) (sets.Repository, func() error, error) {
	switch cfg.store {
	case storeSQLite:
		db, err := sets.OpenSQLite(cfg.database)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil

	case storeJSON:
		f, err := sets.OpenFile(cfg.dataFile)
		if err != nil {
			return nil, nil, err
		}
		return f, func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.store)
	}
}
