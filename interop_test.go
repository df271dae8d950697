package comexe

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/absfs/absfs"
	"github.com/absfs/memfs"
)

// mustNewMemFS creates a new memfs or panics
func mustNewMemFS() absfs.FileSystem {
	mfs, err := memfs.NewFS()
	if err != nil {
		panic(err)
	}
	return mfs
}

// memfsVFS builds a VFS whose native backend is an absfs memfs reached
// through the afero bridge
func memfsVFS(entries ...memEntry) *VFS {
	return New(
		WithNativeFs(AdaptFileSystem(mustNewMemFS())),
		WithArchive(memArchive(entries...)),
	)
}

// TestBridgeReadWrite tests that an absfs filesystem works as the native
// backend
func TestBridgeReadWrite(t *testing.T) {
	v := memfsVFS()

	if err := v.MkdirAll("/etc", 0755); err != nil {
		t.Fatalf("failed to mkdir through bridge: %v", err)
	}
	f, err := v.Create("/etc/conf")
	if err != nil {
		t.Fatalf("failed to create through bridge: %v", err)
	}
	if _, err := f.Write([]byte("key=value")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	f.Close()

	g, err := v.Open("/etc/conf")
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer g.Close()

	data, err := io.ReadAll(g)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(data) != "key=value" {
		t.Errorf("expected 'key=value', got %q", string(data))
	}
}

// TestBridgeBackedFileTable tests toolchain I/O over a memfs native backend
func TestBridgeBackedFileTable(t *testing.T) {
	v := memfsVFS(memEntry{name: "comexe/h.h", data: []byte("hdr")})
	table := NewFileTable(v)

	fd := table.Open("/scratch.txt", os.O_CREATE|os.O_RDWR, 0644)
	if fd < 0 {
		t.Fatalf("failed to open native file: %d", fd)
	}
	if status := table.Write(fd, []byte("data")); status != 4 {
		t.Errorf("expected 4 bytes written, got %d", status)
	}
	table.Close(fd)

	afd := table.Open("!comexe/h.h", os.O_RDONLY, 0)
	if afd < 0 {
		t.Fatalf("failed to open archive asset: %d", afd)
	}
	data, n := table.Read(afd, 16)
	if n != 3 || string(data) != "hdr" {
		t.Errorf("expected 'hdr', got %q", string(data))
	}
}

// TestAbsFSViewOpensArchiveAsset tests that the absfs view keeps the
// archive-first routing
func TestAbsFSViewOpensArchiveAsset(t *testing.T) {
	v := memfsVFS(memEntry{name: "comexe/include/foo.h", data: []byte("#pragma once\n")})
	fs := v.FileSystem()

	f, err := fs.Open("!comexe/include/foo.h")
	if err != nil {
		t.Fatalf("failed to open through absfs view: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(data) != "#pragma once\n" {
		t.Errorf("unexpected content %q", string(data))
	}
}

// TestAbsFSViewMutations tests write operations through the absfs view
func TestAbsFSViewMutations(t *testing.T) {
	v := memfsVFS()
	fs := v.FileSystem()

	if err := fs.Mkdir("/dir", 0755); err != nil {
		t.Fatalf("failed to mkdir: %v", err)
	}
	f, err := fs.Create("/dir/file")
	if err != nil {
		t.Fatalf("failed to create: %v", err)
	}
	f.Close()

	if err := fs.Rename("/dir/file", "/dir/renamed"); err != nil {
		t.Fatalf("failed to rename: %v", err)
	}
	if _, err := fs.Stat("/dir/renamed"); err != nil {
		t.Fatalf("failed to stat renamed file: %v", err)
	}
	if err := fs.Remove("/dir/renamed"); err != nil {
		t.Fatalf("failed to remove: %v", err)
	}
	if _, err := fs.Stat("/dir/renamed"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist after remove, got %v", err)
	}
}

// TestAbsFSViewArchiveImmutable tests that the view refuses to mutate
// reserved-prefix names
func TestAbsFSViewArchiveImmutable(t *testing.T) {
	v := memfsVFS(memEntry{name: "comexe/x", data: []byte("x")})
	fs := v.FileSystem()

	if err := fs.Remove("!comexe/x"); !errors.Is(err, os.ErrPermission) {
		t.Errorf("expected permission error, got %v", err)
	}
	if err := fs.Truncate("!comexe/x", 0); !errors.Is(err, os.ErrPermission) {
		t.Errorf("expected permission error on truncate, got %v", err)
	}
}

// TestLoaderOverMemfs tests module resolution with memfs as the native
// backend
func TestLoaderOverMemfs(t *testing.T) {
	v := memfsVFS()
	if err := v.MkdirAll("/proj/a/b", 0755); err != nil {
		t.Fatalf("failed to mkdir: %v", err)
	}
	f, err := v.Create("/proj/a/b/c.lua")
	if err != nil {
		t.Fatalf("failed to create: %v", err)
	}
	if _, err := f.Write([]byte("return 'c'")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	f.Close()

	ctx, err := NewContext(v, WithRoot("/proj"))
	if err != nil {
		t.Fatalf("failed to create context: %v", err)
	}

	data, err := ctx.Load("a.b.c")
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if string(data) != "return 'c'" {
		t.Errorf("unexpected content %q", string(data))
	}
}
