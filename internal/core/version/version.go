// Package version reports the build of the nemseer binaries
package version

// BuildInfo describes a build
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	// Archive is the MMSDM root the binary talks to, filled in by the caller
	Archive string `json:"archive,omitempty"`
}

// Info returns the build of binary. Stamp with
// -ldflags "-X nemseer/internal/core/version.version=v0.1.0 -X nemseer/internal/core/version.commit=abcd -X nemseer/internal/core/version.date=2026-01-02"
func Info(binary string) BuildInfo {
	if binary == "" {
		binary = "nemseer"
	}
	return BuildInfo{
		Service: binary,
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// String is a one line summary for --version output
func (b BuildInfo) String() string {
	return b.Service + " " + b.Version + " (" + b.Commit + ", " + b.Date + ")"
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
