package comexe

import (
	"io"
	"os"

	"github.com/spf13/afero"
)

// Status codes surfaced to the embedded toolchain, POSIX-style and
// negative. Non-negative results are success values.
const (
	StatusNoEntry  = -2  // no such file or directory
	StatusIOError  = -5  // generic I/O failure
	StatusBadFile  = -9  // bad file descriptor
	StatusNoAccess = -13 // permission denied
	StatusBadSeek  = -29 // illegal seek
)

type fdKind uint8

const (
	fdArchive fdKind = iota
	fdNative
)

// fileEntry is one open descriptor: either an immutable archive payload
// with a read cursor, or a native handle with enough context to reopen it
// for dup.
type fileEntry struct {
	kind fdKind

	// archive
	data   []byte
	cursor int64

	// native
	file afero.File
	path string
	flag int
	perm os.FileMode
}

// FileTable is the virtual file-descriptor table consumed by the embedded
// toolchain. Descriptor ids are small integers, reused LIFO through a
// free-index stack; id 0 is reserved and never handed out. A FileTable is
// owned by one engine thread, so no locking is needed.
type FileTable struct {
	vfs     *VFS
	entries []*fileEntry
	free    []int
}

// NewFileTable creates an empty table over the given VFS.
func NewFileTable(v *VFS) *FileTable {
	return &FileTable{vfs: v, entries: make([]*fileEntry, 1)}
}

func (t *FileTable) alloc(e *fileEntry) int {
	if n := len(t.free); n > 0 {
		fd := t.free[n-1]
		t.free = t.free[:n-1]
		t.entries[fd] = e
		return fd
	}
	t.entries = append(t.entries, e)
	return len(t.entries) - 1
}

func (t *FileTable) lookup(fd int) *fileEntry {
	if fd <= 0 || fd >= len(t.entries) {
		return nil
	}
	return t.entries[fd]
}

func (t *FileTable) release(fd int) {
	t.entries[fd] = nil
	t.free = append(t.free, fd)
}

// Open opens a path and returns a new descriptor id, or StatusNoEntry. A
// read-only open of a reserved-prefix path is tried against the archive
// first; a miss falls through to the native backend.
func (t *FileTable) Open(name string, flag int, perm os.FileMode) int {
	data, found, err := t.vfs.readAsset(name, flag)
	if err == nil && found {
		return t.alloc(&fileEntry{kind: fdArchive, data: data})
	}

	f, err := t.vfs.native.OpenFile(name, flag, perm)
	if err != nil {
		return StatusNoEntry
	}
	return t.alloc(&fileEntry{kind: fdNative, file: f, path: name, flag: flag, perm: perm})
}

// Read reads up to n bytes from fd. An archive descriptor returns
// min(n, remaining) bytes from its cursor; an empty result signals EOF and
// is never an error. The count mirrors len(data) on success and is negative
// on failure.
func (t *FileTable) Read(fd, n int) ([]byte, int) {
	e := t.lookup(fd)
	if e == nil || n < 0 {
		return nil, StatusBadFile
	}

	if e.kind == fdArchive {
		remaining := int64(len(e.data)) - e.cursor
		if int64(n) > remaining {
			n = int(remaining)
		}
		buf := append([]byte(nil), e.data[e.cursor:e.cursor+int64(n)]...)
		e.cursor += int64(n)
		return buf, n
	}

	buf := make([]byte, n)
	m, err := e.file.Read(buf)
	if err != nil && err != io.EOF {
		return nil, StatusIOError
	}
	return buf[:m], m
}

// Write writes data to fd and returns the byte count. Archive descriptors
// are immutable and always fail with StatusNoAccess.
func (t *FileTable) Write(fd int, data []byte) int {
	e := t.lookup(fd)
	if e == nil {
		return StatusBadFile
	}
	if e.kind == fdArchive {
		return StatusNoAccess
	}
	n, err := e.file.Write(data)
	if err != nil {
		return StatusIOError
	}
	return n
}

// Seek repositions fd and returns the new offset. An archive descriptor
// clamps the result into [0, length] without erroring; only an
// unrecognized whence is StatusBadSeek. Native failures map to
// StatusBadSeek.
func (t *FileTable) Seek(fd int, offset int64, whence int) int64 {
	e := t.lookup(fd)
	if e == nil {
		return StatusBadFile
	}

	if e.kind == fdArchive {
		var base int64
		switch whence {
		case io.SeekStart:
			base = 0
		case io.SeekCurrent:
			base = e.cursor
		case io.SeekEnd:
			base = int64(len(e.data))
		default:
			return StatusBadSeek
		}
		pos := base + offset
		if pos < 0 {
			pos = 0
		}
		if pos > int64(len(e.data)) {
			pos = int64(len(e.data))
		}
		e.cursor = pos
		return pos
	}

	pos, err := e.file.Seek(offset, whence)
	if err != nil {
		return StatusBadSeek
	}
	return pos
}

// Close closes fd and returns its id to the free pool. An archive
// descriptor has nothing to release beyond the slot.
func (t *FileTable) Close(fd int) int {
	e := t.lookup(fd)
	if e == nil {
		return StatusBadFile
	}
	status := 0
	if e.kind == fdNative {
		if err := e.file.Close(); err != nil {
			status = StatusIOError
		}
	}
	t.release(fd)
	return status
}

// Dup clones fd into a new descriptor id. The archive arm always succeeds:
// the immutable bytes are shared and the cursor copied. The native arm asks
// the backend for a fresh handle positioned at the same offset; any failure
// leaves the table unchanged and returns StatusBadFile.
func (t *FileTable) Dup(fd int) int {
	e := t.lookup(fd)
	if e == nil {
		return StatusBadFile
	}

	if e.kind == fdArchive {
		return t.alloc(&fileEntry{kind: fdArchive, data: e.data, cursor: e.cursor})
	}

	pos, err := e.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return StatusBadFile
	}
	// Reopening must not re-apply creation-time side effects.
	flag := e.flag &^ (os.O_CREATE | os.O_TRUNC | os.O_EXCL)
	nf, err := t.vfs.native.OpenFile(e.path, flag, e.perm)
	if err != nil {
		return StatusBadFile
	}
	if _, err := nf.Seek(pos, io.SeekStart); err != nil {
		nf.Close()
		return StatusBadFile
	}
	return t.alloc(&fileEntry{kind: fdNative, file: nf, path: e.path, flag: flag, perm: e.perm})
}

// EventKind enumerates the toolchain's synchronous I/O events.
type EventKind uint8

const (
	EventOpen EventKind = iota
	EventRead
	EventWrite
	EventSeek
	EventClose
	EventDup
)

// Event is one toolchain I/O request. Fields beyond Kind are read per kind:
// Open uses Path/Flag/Perm, Read uses FD/Count, Write uses FD/Data, Seek
// uses FD/Offset/Whence, Close and Dup use FD.
type Event struct {
	Kind   EventKind
	FD     int
	Path   string
	Flag   int
	Perm   os.FileMode
	Count  int
	Data   []byte
	Offset int64
	Whence int
}

// Result is the synchronous answer to an Event: a signed status (negative
// is an error code) and, for reads, the bytes.
type Result struct {
	Status int64
	Data   []byte
}

// Handle routes one event to the table. An unrecognized kind answers with a
// generic I/O error rather than failing; the toolchain side treats every
// response as a plain signed value.
func (t *FileTable) Handle(ev Event) Result {
	switch ev.Kind {
	case EventOpen:
		return Result{Status: int64(t.Open(ev.Path, ev.Flag, ev.Perm))}
	case EventRead:
		data, n := t.Read(ev.FD, ev.Count)
		return Result{Status: int64(n), Data: data}
	case EventWrite:
		return Result{Status: int64(t.Write(ev.FD, ev.Data))}
	case EventSeek:
		return Result{Status: t.Seek(ev.FD, ev.Offset, ev.Whence)}
	case EventClose:
		return Result{Status: int64(t.Close(ev.FD))}
	case EventDup:
		return Result{Status: int64(t.Dup(ev.FD))}
	}
	return Result{Status: StatusIOError}
}
