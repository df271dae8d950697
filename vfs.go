// Package comexe implements the loader layer of a self-contained scripting
// application: module resolution across an embedded archive and the native
// filesystem, and a virtual file-descriptor table for an embedded toolchain.
package comexe

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/afero"
)

const (
	// RuntimePrefix is the reserved path prefix that flags a toolchain
	// request as eligible for archive-first resolution.
	RuntimePrefix = "!comexe"
	// AssetDir is the archive directory holding toolchain support files.
	AssetDir = "comexe"
)

// ErrNotFound is reported when every candidate of every configured searcher
// missed. It is control flow, not a broken distribution.
var ErrNotFound = errors.New("module not found")

// VFS routes file access between the distribution archive and the native
// filesystem. Paths under the reserved runtime prefix are tried against the
// archive first when opened read-only; everything else, and every write,
// goes to the native backend. VFS implements afero.Fs.
type VFS struct {
	native  afero.Fs
	archive Opener
	prefix  string
	assets  string
}

// Option configures a VFS.
type Option func(*VFS)

// WithNativeFs sets the native backend. The default is the host filesystem.
func WithNativeFs(fs afero.Fs) Option {
	return func(v *VFS) { v.native = fs }
}

// WithArchive sets the opener for the distribution archive. Without one,
// every request goes to the native backend.
func WithArchive(open Opener) Option {
	return func(v *VFS) { v.archive = open }
}

// WithRuntimePrefix overrides the reserved prefix and the archive directory
// it maps into.
func WithRuntimePrefix(prefix, assetDir string) Option {
	return func(v *VFS) {
		v.prefix = prefix
		v.assets = assetDir
	}
}

// New creates a VFS with the specified options.
func New(opts ...Option) *VFS {
	v := &VFS{
		native: afero.NewOsFs(),
		prefix: RuntimePrefix,
		assets: AssetDir,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Name returns the name of the filesystem.
func (v *VFS) Name() string {
	return "comexefs"
}

// Native returns the native backend.
func (v *VFS) Native() afero.Fs { return v.native }

// isReadOnly reports whether flag describes a pure read open.
func isReadOnly(flag int) bool {
	return flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) == 0
}

// assetPath maps a reserved-prefix name into the archive's asset directory:
// "!comexe/include/foo.h" becomes "comexe/include/foo.h". A plain leading
// root is tolerated, since path-cleaning layers above may absolutize names
// before they reach the VFS. The second result reports whether name carried
// the prefix.
func (v *VFS) assetPath(name string) (string, bool) {
	p := ParsePath(name).Normalize()
	if p.anchor == anchorDrive || p.anchor == anchorUNC {
		return "", false
	}
	if len(p.segs) == 0 || p.segs[0] != v.prefix {
		return "", false
	}
	p.anchor = anchorNone
	p.segs[0] = v.assets
	return p.String(), true
}

// readAsset resolves a reserved-prefix read against the archive. A miss, or
// an unconfigured archive, is reported as not found so the caller can fall
// through to the native backend.
func (v *VFS) readAsset(name string, flag int) ([]byte, bool, error) {
	if v.archive == nil || !isReadOnly(flag) {
		return nil, false, nil
	}
	asset, ok := v.assetPath(name)
	if !ok {
		return nil, false, nil
	}
	return ReadEntry(v.archive, asset)
}

// Open opens a file for reading.
func (v *VFS) Open(name string) (afero.File, error) {
	return v.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile opens a file with the specified flags and permissions. A
// reserved-prefix read-only open that matches an archive entry returns an
// immutable archive-backed file; an archive miss falls through to the
// native backend.
func (v *VFS) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	data, found, err := v.readAsset(name, flag)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	if found {
		return newArchiveFile(name, data), nil
	}
	return v.native.OpenFile(name, flag, perm)
}

// Stat returns file info, probing the archive for reserved-prefix names
// before the native backend. Archive entries are sized from the container
// directory without decoding content.
func (v *VFS) Stat(name string) (os.FileInfo, error) {
	if asset, ok := v.assetPath(name); ok && v.archive != nil {
		info, found, err := StatEntry(v.archive, asset)
		if err != nil {
			return nil, &os.PathError{Op: "stat", Path: name, Err: err}
		}
		if found {
			return &archiveFileInfo{name: name, size: info.UncompressedSize}, nil
		}
	}
	return v.native.Stat(name)
}

// writable rejects mutation of reserved-prefix names; archive content is
// immutable.
func (v *VFS) writable(op, name string) error {
	if _, ok := v.assetPath(name); ok {
		return &os.PathError{Op: op, Path: name, Err: os.ErrPermission}
	}
	return nil
}

// Create creates a file in the native backend.
func (v *VFS) Create(name string) (afero.File, error) {
	if err := v.writable("create", name); err != nil {
		return nil, err
	}
	return v.native.Create(name)
}

// Mkdir creates a directory in the native backend.
func (v *VFS) Mkdir(name string, perm os.FileMode) error {
	if err := v.writable("mkdir", name); err != nil {
		return err
	}
	return v.native.Mkdir(name, perm)
}

// MkdirAll creates a directory and all parent directories.
func (v *VFS) MkdirAll(name string, perm os.FileMode) error {
	if err := v.writable("mkdir", name); err != nil {
		return err
	}
	return v.native.MkdirAll(name, perm)
}

// Remove deletes a file or empty directory from the native backend.
func (v *VFS) Remove(name string) error {
	if err := v.writable("remove", name); err != nil {
		return err
	}
	return v.native.Remove(name)
}

// RemoveAll removes a path and all children from the native backend.
func (v *VFS) RemoveAll(name string) error {
	if err := v.writable("remove", name); err != nil {
		return err
	}
	return v.native.RemoveAll(name)
}

// Rename renames a file or directory in the native backend.
func (v *VFS) Rename(oldname, newname string) error {
	if err := v.writable("rename", oldname); err != nil {
		return err
	}
	if err := v.writable("rename", newname); err != nil {
		return err
	}
	return v.native.Rename(oldname, newname)
}

// Chmod changes file permissions in the native backend.
func (v *VFS) Chmod(name string, mode os.FileMode) error {
	if err := v.writable("chmod", name); err != nil {
		return err
	}
	return v.native.Chmod(name, mode)
}

// Chown changes file ownership in the native backend.
func (v *VFS) Chown(name string, uid, gid int) error {
	if err := v.writable("chown", name); err != nil {
		return err
	}
	return v.native.Chown(name, uid, gid)
}

// Chtimes changes file access and modification times in the native backend.
func (v *VFS) Chtimes(name string, atime, mtime time.Time) error {
	if err := v.writable("chtimes", name); err != nil {
		return err
	}
	return v.native.Chtimes(name, atime, mtime)
}
