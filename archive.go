package comexe

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
)

// ErrEndOfEntries is returned by Reader.First and Reader.Next when the
// entry cursor has moved past the last entry.
var ErrEndOfEntries = errors.New("archive: end of entry list")

// EntryInfo describes the archive entry under the cursor.
type EntryInfo struct {
	Name             string
	UncompressedSize int64
}

// Reader is sequential read-only access to a compressed container. It is
// consumed strictly in entry order; no random-access index is assumed.
// Each execution thread opens its own Reader, so implementations need no
// internal locking.
type Reader interface {
	// First positions the cursor on the first entry, or returns
	// ErrEndOfEntries for an empty archive.
	First() error
	// Next advances the cursor, returning ErrEndOfEntries past the end.
	Next() error
	// Entry describes the entry under the cursor.
	Entry() EntryInfo
	// OpenEntry opens the entry under the cursor for reading.
	OpenEntry() (io.ReadCloser, error)
	// Close releases the container.
	Close() error
}

// Opener opens a fresh Reader over the distribution archive. Resolution is
// not cached, so an archive is opened and scanned once per lookup; entry
// counts in a packaged application are small enough for that to be cheap.
type Opener func() (Reader, error)

type zipReader struct {
	entries []*zip.File
	closer  io.Closer
	pos     int
}

// OpenArchive opens the zip container at path.
func OpenArchive(path string) (Reader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	return newZipReader(&rc.Reader, rc), nil
}

// NewArchiveReader reads a zip container from ra, typically the payload
// region of a packaged executable.
func NewArchiveReader(ra io.ReaderAt, size int64) (Reader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("archive: read: %w", err)
	}
	return newZipReader(zr, nil), nil
}

func newZipReader(zr *zip.Reader, closer io.Closer) *zipReader {
	r := &zipReader{closer: closer}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		r.entries = append(r.entries, f)
	}
	return r
}

func (r *zipReader) First() error {
	r.pos = 0
	if len(r.entries) == 0 {
		return ErrEndOfEntries
	}
	return nil
}

func (r *zipReader) Next() error {
	r.pos++
	if r.pos >= len(r.entries) {
		return ErrEndOfEntries
	}
	return nil
}

func (r *zipReader) Entry() EntryInfo {
	f := r.entries[r.pos]
	return EntryInfo{Name: f.Name, UncompressedSize: int64(f.UncompressedSize64)}
}

func (r *zipReader) OpenEntry() (io.ReadCloser, error) {
	return r.entries[r.pos].Open()
}

func (r *zipReader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// scanEntries walks the archive sequentially, calling visit with each entry
// whose normalized name equals the normalized name argument. visit returns
// true to stop the scan.
func scanEntries(open Opener, name string, visit func(r Reader) (bool, error)) (bool, error) {
	want := ParsePath(name).Normalize().String()

	r, err := open()
	if err != nil {
		return false, err
	}
	defer r.Close()

	for err = r.First(); err == nil; err = r.Next() {
		if ParsePath(r.Entry().Name).Normalize().String() != want {
			continue
		}
		return visit(r)
	}
	if !errors.Is(err, ErrEndOfEntries) {
		return false, err
	}
	return false, nil
}

// ReadEntry scans the archive for an entry matching name (exact match after
// path normalization) and returns its decoded content. A missing entry is
// not an error; found reports whether one matched.
func ReadEntry(open Opener, name string) (data []byte, found bool, err error) {
	found, err = scanEntries(open, name, func(r Reader) (bool, error) {
		rc, err := r.OpenEntry()
		if err != nil {
			return false, err
		}
		defer rc.Close()
		data, err = io.ReadAll(rc)
		return err == nil, err
	})
	if err != nil {
		return nil, false, err
	}
	return data, found, nil
}

// StatEntry scans the archive for an entry matching name and returns its
// metadata without decoding content.
func StatEntry(open Opener, name string) (info EntryInfo, found bool, err error) {
	found, err = scanEntries(open, name, func(r Reader) (bool, error) {
		info = r.Entry()
		return true, nil
	})
	if err != nil {
		return EntryInfo{}, false, err
	}
	return info, found, nil
}
