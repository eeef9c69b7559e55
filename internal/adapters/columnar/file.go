package columnar

import (
	"errors"
	"io"

	"github.com/spf13/afero"
	"github.com/xitongsys/parquet-go/source"
)

// aferoFile lets parquet-go read and write through an afero filesystem.
// Column readers call Open to get their own handle on the same path
type aferoFile struct {
	afero.File
	fs   afero.Fs
	path string
}

var _ source.ParquetFile = (*aferoFile)(nil)

func openFile(fs afero.Fs, path string) (*aferoFile, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	return &aferoFile{File: f, fs: fs, path: path}, nil
}

func createFile(fs afero.Fs, path string) (*aferoFile, error) {
	f, err := fs.Create(path)
	if err != nil {
		return nil, err
	}
	return &aferoFile{File: f, fs: fs, path: path}, nil
}

func (f *aferoFile) Open(name string) (source.ParquetFile, error) {
	if name == "" {
		name = f.path
	}
	return openFile(f.fs, name)
}

func (f *aferoFile) Create(name string) (source.ParquetFile, error) {
	if name == "" {
		name = f.path
	}
	return createFile(f.fs, name)
}

// Seek refuses to move before the start of the file; afero's memory files
// accept negative offsets and panic on the next read
func (f *aferoFile) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekCurrent:
		cur, err := f.File.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}
		base = cur
	case io.SeekEnd:
		fi, err := f.File.Stat()
		if err != nil {
			return 0, err
		}
		base = fi.Size()
	}
	if base+offset < 0 {
		return 0, errors.New("seek before start of " + f.path)
	}
	return f.File.Seek(offset, whence)
}
