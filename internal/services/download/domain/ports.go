// Package domain holds the downloader ports and result types
package domain

import (
	"context"
	"io"
	"time"

	"nemseer/internal/core/forecast"
)

// Fetcher streams one archive zip for a physical table into w
type Fetcher interface {
	Download(ctx context.Context, year int, month time.Month, t forecast.Type, table string, w io.Writer) (url string, n int64, err error)
}

// Stats counts what a download pass did, one count per resolved file
type Stats struct {
	Cached     int `json:"cached"`     // parquet already in the raw cache
	Skipped    int `json:"skipped"`    // listed in the invalid file ledger
	Downloaded int `json:"downloaded"` // fetched and converted
	Invalid    int `json:"invalid"`    // fetched, found corrupt and added to the ledger
}

// Requests is the number of archive files fetched
func (s Stats) Requests() int { return s.Downloaded + s.Invalid }
