package comexe

import (
	"io"
	"os"
	"path"
	"time"
)

// archiveFile implements afero.File over an immutable decoded archive
// entry. Writes fail with a permission error; the content lives entirely in
// memory so reads never touch the container again.
type archiveFile struct {
	name   string
	data   []byte
	offset int64
	closed bool
}

func newArchiveFile(name string, data []byte) *archiveFile {
	return &archiveFile{name: name, data: data}
}

// Name returns the path the file was opened with.
func (f *archiveFile) Name() string { return f.name }

// Close closes the file. There is no container state to release.
func (f *archiveFile) Close() error {
	f.closed = true
	return nil
}

// Read reads from the cursor, returning io.EOF once content is exhausted.
func (f *archiveFile) Read(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	if f.offset >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.offset:])
	f.offset += int64(n)
	return n, nil
}

// ReadAt reads at an absolute offset without moving the cursor.
func (f *archiveFile) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, &os.PathError{Op: "readat", Path: f.name, Err: os.ErrInvalid}
	}
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Seek moves the cursor. Seeking past the end is allowed; subsequent reads
// return io.EOF.
func (f *archiveFile) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.offset
	case io.SeekEnd:
		base = int64(len(f.data))
	default:
		return 0, &os.PathError{Op: "seek", Path: f.name, Err: os.ErrInvalid}
	}
	pos := base + offset
	if pos < 0 {
		return 0, &os.PathError{Op: "seek", Path: f.name, Err: os.ErrInvalid}
	}
	f.offset = pos
	return pos, nil
}

// Write is not supported; archive content is immutable.
func (f *archiveFile) Write(p []byte) (int, error) {
	return 0, &os.PathError{Op: "write", Path: f.name, Err: os.ErrPermission}
}

// WriteAt is not supported; archive content is immutable.
func (f *archiveFile) WriteAt(p []byte, off int64) (int, error) {
	return 0, &os.PathError{Op: "write", Path: f.name, Err: os.ErrPermission}
}

// WriteString is not supported; archive content is immutable.
func (f *archiveFile) WriteString(s string) (int, error) {
	return 0, &os.PathError{Op: "write", Path: f.name, Err: os.ErrPermission}
}

// Truncate is not supported; archive content is immutable.
func (f *archiveFile) Truncate(size int64) error {
	return &os.PathError{Op: "truncate", Path: f.name, Err: os.ErrPermission}
}

// Sync is a no-op for in-memory content.
func (f *archiveFile) Sync() error {
	if f.closed {
		return os.ErrClosed
	}
	return nil
}

// Stat returns metadata for the entry.
func (f *archiveFile) Stat() (os.FileInfo, error) {
	if f.closed {
		return nil, os.ErrClosed
	}
	return &archiveFileInfo{name: f.name, size: int64(len(f.data))}, nil
}

// Readdir is not supported; archive entries are regular files.
func (f *archiveFile) Readdir(count int) ([]os.FileInfo, error) {
	return nil, &os.PathError{Op: "readdir", Path: f.name, Err: os.ErrInvalid}
}

// Readdirnames is not supported; archive entries are regular files.
func (f *archiveFile) Readdirnames(n int) ([]string, error) {
	return nil, &os.PathError{Op: "readdir", Path: f.name, Err: os.ErrInvalid}
}

// archiveFileInfo implements os.FileInfo for archive entries.
type archiveFileInfo struct {
	name string
	size int64
}

func (i *archiveFileInfo) Name() string       { return path.Base(ParsePath(i.name).String()) }
func (i *archiveFileInfo) Size() int64        { return i.size }
func (i *archiveFileInfo) Mode() os.FileMode  { return 0444 }
func (i *archiveFileInfo) ModTime() time.Time { return time.Time{} }
func (i *archiveFileInfo) IsDir() bool        { return false }
func (i *archiveFileInfo) Sys() interface{}   { return nil }
