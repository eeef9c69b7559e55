package nemseer

import (
	"time"

	"nemseer/internal/adapters/columnar"
	"nemseer/internal/adapters/mmsdm"
	"nemseer/internal/platform/config"
)

// Options holds client settings
type Options struct {
	// RawCache and ProcessedCache are defaults for requests that leave them empty
	RawCache       string
	ProcessedCache string

	ArchiveURL  string
	HTTPTimeout time.Duration
	// RetryDelay and MaxAttempts bound listing retries; MaxAttempts 0 retries until
	// the context ends
	RetryDelay  time.Duration
	MaxAttempts int

	KeepCSV     bool
	CheckTables bool
	Compression columnar.Compression
}

// DefaultOptions matches the public archive with no local defaults
func DefaultOptions() Options {
	return Options{
		ArchiveURL:  mmsdm.DefaultBaseURL,
		HTTPTimeout: 10 * time.Minute,
		RetryDelay:  500 * time.Millisecond,
		Compression: columnar.Snappy,
	}
}

// FromConfig reads options from NEMSEER_* variables
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("NEMSEER_")
	d := DefaultOptions()
	return Options{
		RawCache:       c.MayPath("RAW_CACHE", ""),
		ProcessedCache: c.MayPath("PROCESSED_CACHE", ""),
		ArchiveURL:     c.MayURL("ARCHIVE_URL", d.ArchiveURL),
		HTTPTimeout:    c.MayDuration("HTTP_TIMEOUT", d.HTTPTimeout),
		RetryDelay:     c.MayDuration("LISTING_RETRY_DELAY", d.RetryDelay),
		MaxAttempts:    c.MayInt("LISTING_MAX_ATTEMPTS", 0),
		KeepCSV:        c.MayBool("KEEP_CSV", false),
		CheckTables:    c.MayBool("CHECK_TABLES", false),
		Compression:    columnar.Compression(c.MayEnum("COMPRESSION", string(d.Compression), columnar.Compressions...)),
	}
}
