package comexe

import (
	"os"
	"time"

	"github.com/absfs/absfs"
	"github.com/spf13/afero"
)

// absFSAdapter wraps a VFS to implement absfs.Filer with correct types
type absFSAdapter struct {
	v *VFS
}

// Ensure absFSAdapter implements absfs.Filer interface at compile time
var _ absfs.Filer = (*absFSAdapter)(nil)

// FileSystem returns an absfs.FileSystem view of this VFS.
// The returned FileSystem maintains its own working directory state
// and provides the full absfs.FileSystem interface including convenience
// methods like Open, Create, MkdirAll, RemoveAll, and Truncate.
//
// This enables seamless integration with the absfs ecosystem while keeping
// the archive-first routing of reserved-prefix reads.
//
// Example:
//
//	v := comexe.New(
//	    comexe.WithArchive(open),
//	    comexe.WithNativeFs(afero.NewOsFs()),
//	)
//
//	// Use as absfs.FileSystem
//	fs := v.FileSystem()
//	file, err := fs.Open("!comexe/include/foo.h") // archive-backed
func (v *VFS) FileSystem() absfs.FileSystem {
	adapter := &absFSAdapter{v: v}
	return absfs.ExtendFiler(adapter)
}

// OpenFile implements absfs.Filer
func (a *absFSAdapter) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	f, err := a.v.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Mkdir implements absfs.Filer
func (a *absFSAdapter) Mkdir(name string, perm os.FileMode) error {
	return a.v.Mkdir(name, perm)
}

// Remove implements absfs.Filer
func (a *absFSAdapter) Remove(name string) error {
	return a.v.Remove(name)
}

// Rename implements absfs.Filer
func (a *absFSAdapter) Rename(oldpath, newpath string) error {
	return a.v.Rename(oldpath, newpath)
}

// Stat implements absfs.Filer
func (a *absFSAdapter) Stat(name string) (os.FileInfo, error) {
	return a.v.Stat(name)
}

// Chmod implements absfs.Filer
func (a *absFSAdapter) Chmod(name string, mode os.FileMode) error {
	return a.v.Chmod(name, mode)
}

// Chtimes implements absfs.Filer
func (a *absFSAdapter) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return a.v.Chtimes(name, atime, mtime)
}

// Chown implements absfs.Filer
func (a *absFSAdapter) Chown(name string, uid, gid int) error {
	return a.v.Chown(name, uid, gid)
}

// Separator returns the path separator (always forward slash for virtual paths)
func (a *absFSAdapter) Separator() uint8 {
	return '/'
}

// ListSeparator returns the path list separator (always colon for virtual paths)
func (a *absFSAdapter) ListSeparator() uint8 {
	return ':'
}

// Truncate changes the size of the named file
func (a *absFSAdapter) Truncate(name string, size int64) error {
	v := a.v
	if err := v.writable("truncate", name); err != nil {
		return err
	}

	// Use the backend's Truncate if available, otherwise open and truncate
	if truncater, ok := v.native.(interface{ Truncate(string, int64) error }); ok {
		return truncater.Truncate(name, size)
	}
	file, err := v.native.OpenFile(name, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer file.Close()
	return file.Truncate(size)
}

// aferoBridge exposes an absfs.FileSystem as an afero.Fs so absfs
// filesystems (memfs, osfs) can serve as the native backend of a VFS.
type aferoBridge struct {
	fs absfs.FileSystem
}

// AdaptFileSystem wraps an absfs.FileSystem in the afero.Fs interface.
func AdaptFileSystem(fs absfs.FileSystem) afero.Fs {
	return &aferoBridge{fs: fs}
}

var _ afero.Fs = (*aferoBridge)(nil)

func (b *aferoBridge) Name() string { return "absfs" }

func (b *aferoBridge) Create(name string) (afero.File, error) {
	return b.fs.Create(name)
}

func (b *aferoBridge) Open(name string) (afero.File, error) {
	return b.fs.Open(name)
}

func (b *aferoBridge) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	return b.fs.OpenFile(name, flag, perm)
}

func (b *aferoBridge) Mkdir(name string, perm os.FileMode) error {
	return b.fs.Mkdir(name, perm)
}

func (b *aferoBridge) MkdirAll(name string, perm os.FileMode) error {
	return b.fs.MkdirAll(name, perm)
}

func (b *aferoBridge) Remove(name string) error {
	return b.fs.Remove(name)
}

func (b *aferoBridge) RemoveAll(name string) error {
	return b.fs.RemoveAll(name)
}

func (b *aferoBridge) Rename(oldname, newname string) error {
	return b.fs.Rename(oldname, newname)
}

func (b *aferoBridge) Stat(name string) (os.FileInfo, error) {
	return b.fs.Stat(name)
}

func (b *aferoBridge) Chmod(name string, mode os.FileMode) error {
	return b.fs.Chmod(name, mode)
}

func (b *aferoBridge) Chown(name string, uid, gid int) error {
	return b.fs.Chown(name, uid, gid)
}

func (b *aferoBridge) Chtimes(name string, atime, mtime time.Time) error {
	return b.fs.Chtimes(name, atime, mtime)
}
