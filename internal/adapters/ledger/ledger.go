// Package ledger records archive files found to be invalid so they are not fetched again.
// The ledger is a text file in the raw cache with one file stub per line
package ledger

import (
	"bufio"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"nemseer/internal/core/forecast"
	perr "nemseer/internal/platform/errors"
)

// Ledger is the invalid file list of one raw cache
type Ledger struct {
	fs   afero.Fs
	path string
}

// Open returns the ledger of rawCache. The file is created on first Add
func Open(fs afero.Fs, rawCache string) *Ledger {
	return &Ledger{fs: fs, path: filepath.Join(rawCache, forecast.LedgerFile)}
}

// Path is the ledger file location
func (l *Ledger) Path() string { return l.path }

// Stubs returns the recorded stubs in file order; a missing ledger is empty
func (l *Ledger) Stubs() ([]string, error) {
	f, err := l.fs.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeFilesystem, "open %s", l.path)
	}
	defer func() { _ = f.Close() }()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			out = append(out, s)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeFilesystem, "read %s", l.path)
	}
	return out, nil
}

// Contains reports whether stub is recorded
func (l *Ledger) Contains(stub string) (bool, error) {
	stubs, err := l.Stubs()
	if err != nil {
		return false, err
	}
	return slices.Contains(stubs, stub), nil
}

// Add appends stub unless it is already recorded. It reports whether a line was written
func (l *Ledger) Add(stub string) (bool, error) {
	stub = strings.TrimSpace(stub)
	if stub == "" {
		return false, perr.InvalidArgf("empty ledger stub")
	}
	ok, err := l.Contains(stub)
	if err != nil || ok {
		return false, err
	}
	f, err := l.fs.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return false, perr.Wrapf(err, perr.ErrorCodeFilesystem, "open %s for append", l.path)
	}
	if _, err := f.WriteString(stub + "\n"); err != nil {
		_ = f.Close()
		return false, perr.Wrapf(err, perr.ErrorCodeFilesystem, "append to %s", l.path)
	}
	if err := f.Close(); err != nil {
		return false, perr.Wrapf(err, perr.ErrorCodeFilesystem, "close %s", l.path)
	}
	return true, nil
}
