package comexe

import (
	"os"
	"testing"

	"github.com/spf13/afero"
)

// TestArchiveOpenReadClose walks the reserved-prefix happy path: open
// returns fd 1, reads return min(n, remaining) then EOF, close returns 0
func TestArchiveOpenReadClose(t *testing.T) {
	v, _ := testVFS(memEntry{name: "comexe/include/foo.h", data: []byte("x")})
	table := NewFileTable(v)

	fd := table.Open("!comexe/include/foo.h", os.O_RDONLY, 0)
	if fd != 1 {
		t.Fatalf("expected first descriptor to be 1, got %d", fd)
	}

	data, n := table.Read(fd, 10)
	if n != 1 || string(data) != "x" {
		t.Fatalf("expected the 1 available byte, got %d (%q)", n, string(data))
	}

	data, n = table.Read(fd, 10)
	if n != 0 || len(data) != 0 {
		t.Fatalf("expected EOF as empty read, got %d (%q)", n, string(data))
	}

	if status := table.Close(fd); status != 0 {
		t.Errorf("expected close status 0, got %d", status)
	}
}

// TestWriteToArchiveDescriptor tests that archive descriptors reject writes
func TestWriteToArchiveDescriptor(t *testing.T) {
	v, _ := testVFS(memEntry{name: "comexe/ro.txt", data: []byte("ro")})
	table := NewFileTable(v)

	fd := table.Open("!comexe/ro.txt", os.O_RDONLY, 0)
	if fd < 0 {
		t.Fatalf("failed to open: %d", fd)
	}
	if status := table.Write(fd, []byte("nope")); status != StatusNoAccess {
		t.Errorf("expected StatusNoAccess, got %d", status)
	}
}

// TestDescriptorReuse tests LIFO free-list reuse of descriptor ids
func TestDescriptorReuse(t *testing.T) {
	v, native := testVFS(memEntry{name: "comexe/a", data: []byte("a")})
	afero.WriteFile(native, "/b.txt", []byte("b"), 0644)
	table := NewFileTable(v)

	fd1 := table.Open("!comexe/a", os.O_RDONLY, 0)
	fd2 := table.Open("/b.txt", os.O_RDONLY, 0)
	if fd1 != 1 || fd2 != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", fd1, fd2)
	}

	table.Close(fd2)
	fd3 := table.Open("!comexe/a", os.O_RDONLY, 0)
	if fd3 != fd2 {
		t.Errorf("expected released id %d to be reused, got %d", fd2, fd3)
	}
}

// TestArchiveSeekClamps tests that archive seeks clamp into [0, length]
func TestArchiveSeekClamps(t *testing.T) {
	v, _ := testVFS(memEntry{name: "comexe/s", data: []byte("0123456789")})
	table := NewFileTable(v)
	fd := table.Open("!comexe/s", os.O_RDONLY, 0)

	if pos := table.Seek(fd, 100, 0); pos != 10 {
		t.Errorf("expected clamp to length 10, got %d", pos)
	}
	if pos := table.Seek(fd, -100, 1); pos != 0 {
		t.Errorf("expected clamp to 0, got %d", pos)
	}
	if pos := table.Seek(fd, -4, 2); pos != 6 {
		t.Errorf("expected offset 6 from end, got %d", pos)
	}

	data, n := table.Read(fd, 100)
	if n != 4 || string(data) != "6789" {
		t.Errorf("expected remaining '6789', got %q", string(data))
	}

	if pos := table.Seek(fd, 0, 7); pos != StatusBadSeek {
		t.Errorf("expected StatusBadSeek for unknown whence, got %d", pos)
	}
}

// TestNativeReadWriteSeek tests routing of ordinary files to the native
// backend
func TestNativeReadWriteSeek(t *testing.T) {
	v, native := testVFS()
	table := NewFileTable(v)

	fd := table.Open("/out.txt", os.O_RDWR|os.O_CREATE, 0644)
	if fd < 0 {
		t.Fatalf("failed to open native file: %d", fd)
	}

	if status := table.Write(fd, []byte("hello world")); status != 11 {
		t.Fatalf("expected 11 bytes written, got %d", status)
	}
	if pos := table.Seek(fd, 6, 0); pos != 6 {
		t.Fatalf("expected offset 6, got %d", pos)
	}
	data, n := table.Read(fd, 64)
	if n != 5 || string(data) != "world" {
		t.Errorf("expected 'world', got %q (%d)", string(data), n)
	}
	if status := table.Close(fd); status != 0 {
		t.Errorf("expected close status 0, got %d", status)
	}

	written, err := afero.ReadFile(native, "/out.txt")
	if err != nil {
		t.Fatalf("failed to read back: %v", err)
	}
	if string(written) != "hello world" {
		t.Errorf("expected 'hello world', got %q", string(written))
	}
}

// TestOpenMissingNative tests the no-such-file status
func TestOpenMissingNative(t *testing.T) {
	v, _ := testVFS()
	table := NewFileTable(v)

	if fd := table.Open("/does/not/exist", os.O_RDONLY, 0); fd != StatusNoEntry {
		t.Errorf("expected StatusNoEntry, got %d", fd)
	}
}

// TestBadDescriptor tests the defensive default on nonexistent ids
func TestBadDescriptor(t *testing.T) {
	v, _ := testVFS()
	table := NewFileTable(v)

	if _, n := table.Read(42, 10); n != StatusBadFile {
		t.Errorf("expected StatusBadFile on read, got %d", n)
	}
	if status := table.Write(42, []byte("x")); status != StatusBadFile {
		t.Errorf("expected StatusBadFile on write, got %d", status)
	}
	if pos := table.Seek(42, 0, 0); pos != StatusBadFile {
		t.Errorf("expected StatusBadFile on seek, got %d", pos)
	}
	if status := table.Close(42); status != StatusBadFile {
		t.Errorf("expected StatusBadFile on close, got %d", status)
	}
	if status := table.Dup(42); status != StatusBadFile {
		t.Errorf("expected StatusBadFile on dup, got %d", status)
	}
	if status := table.Close(0); status != StatusBadFile {
		t.Errorf("descriptor 0 is reserved, got %d", status)
	}
}

// TestDupArchive tests that archive dup shares bytes but not the cursor
func TestDupArchive(t *testing.T) {
	v, _ := testVFS(memEntry{name: "comexe/d", data: []byte("abcdef")})
	table := NewFileTable(v)

	fd := table.Open("!comexe/d", os.O_RDONLY, 0)
	table.Seek(fd, 2, 0)

	dup := table.Dup(fd)
	if dup < 0 {
		t.Fatalf("archive dup must succeed, got %d", dup)
	}
	if dup == fd {
		t.Fatal("dup must allocate a fresh id")
	}

	// The cursor was copied at dup time and moves independently
	data, _ := table.Read(dup, 2)
	if string(data) != "cd" {
		t.Errorf("expected 'cd' from dup cursor, got %q", string(data))
	}
	data, _ = table.Read(fd, 2)
	if string(data) != "cd" {
		t.Errorf("expected original cursor untouched, got %q", string(data))
	}
}

// TestDupNative tests that native dup yields an independent handle at the
// same offset
func TestDupNative(t *testing.T) {
	v, native := testVFS()
	afero.WriteFile(native, "/n.txt", []byte("0123456789"), 0644)
	table := NewFileTable(v)

	fd := table.Open("/n.txt", os.O_RDONLY, 0)
	table.Seek(fd, 4, 0)

	dup := table.Dup(fd)
	if dup < 0 {
		t.Fatalf("expected native dup to succeed, got %d", dup)
	}

	data, n := table.Read(dup, 3)
	if n != 3 || string(data) != "456" {
		t.Errorf("expected dup positioned at 4, got %q", string(data))
	}
}

// TestDupNativeFailureLeavesTable tests that a failed native dup does not
// disturb existing descriptors
func TestDupNativeFailureLeavesTable(t *testing.T) {
	v, native := testVFS()
	afero.WriteFile(native, "/gone.txt", []byte("x"), 0644)
	table := NewFileTable(v)

	fd := table.Open("/gone.txt", os.O_RDONLY, 0)
	if err := native.Remove("/gone.txt"); err != nil {
		t.Fatalf("failed to remove: %v", err)
	}

	if status := table.Dup(fd); status != StatusBadFile {
		t.Errorf("expected StatusBadFile, got %d", status)
	}

	// The original descriptor still works
	data, n := table.Read(fd, 1)
	if n != 1 || string(data) != "x" {
		t.Errorf("expected original descriptor intact, got %q (%d)", string(data), n)
	}

	// And the failed dup consumed no id
	next := table.Open("/gone2.txt", os.O_CREATE|os.O_WRONLY, 0644)
	if next != fd+1 {
		t.Errorf("expected next id %d, got %d", fd+1, next)
	}
}

// TestHandleEventStream drives the table through the event interface
func TestHandleEventStream(t *testing.T) {
	v, _ := testVFS(memEntry{name: "comexe/e", data: []byte("event")})
	table := NewFileTable(v)

	res := table.Handle(Event{Kind: EventOpen, Path: "!comexe/e", Flag: os.O_RDONLY})
	if res.Status < 0 {
		t.Fatalf("open event failed: %d", res.Status)
	}
	fd := int(res.Status)

	res = table.Handle(Event{Kind: EventRead, FD: fd, Count: 64})
	if res.Status != 5 || string(res.Data) != "event" {
		t.Errorf("expected 'event', got %q (%d)", string(res.Data), res.Status)
	}

	res = table.Handle(Event{Kind: EventWrite, FD: fd, Data: []byte("x")})
	if res.Status != StatusNoAccess {
		t.Errorf("expected StatusNoAccess, got %d", res.Status)
	}

	res = table.Handle(Event{Kind: EventClose, FD: fd})
	if res.Status != 0 {
		t.Errorf("expected close status 0, got %d", res.Status)
	}

	// An unrecognized kind answers with a generic I/O error
	res = table.Handle(Event{Kind: EventKind(99)})
	if res.Status != StatusIOError {
		t.Errorf("expected StatusIOError, got %d", res.Status)
	}
}
