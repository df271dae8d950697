/*
Package comexe is the loader and virtualization layer of a self-contained
scripting-application distribution: a packaged program resolves its modules
and toolchain support files transparently from either an embedded compressed
archive or the native filesystem, and the same files are exposed to an
embedded compiler toolchain through a POSIX-like file-descriptor table.

# Overview

Three pieces make up the layer. A pathname algebra (Path) parses, normalizes
and renders paths across POSIX and drive/UNC conventions without touching
the filesystem. A module-resolution pipeline (Resolver, Context) turns a
dotted module name into byte content by probing an ordered list of candidate
locations across the archive and filesystem backends. A virtual
file-descriptor table (FileTable) answers open/read/write/seek/close/dup
requests from the toolchain, routing each descriptor to either an immutable
archive-backed byte buffer or a native file handle.

# Backends

The archive backend is read-only: entries of the distribution container,
decoded on demand and never written. The native backend is the host
filesystem through afero.Fs, so tests and embedders can substitute an
in-memory filesystem. Paths beginning with the reserved runtime prefix
(RuntimePrefix) and opened read-only are tried against the archive first;
every other path, and every write, goes to the native backend.

# Module Resolution

A module load walks the active searcher list in order until one returns
content or all are exhausted:

	v := comexe.New(
	    comexe.WithArchive(func() (comexe.Reader, error) {
	        return comexe.OpenArchive("app.pack")
	    }),
	)

	ctx, err := comexe.NewContext(v,
	    comexe.WithRunMode(comexe.RunEmbedded),
	    comexe.WithRoot("/proj"),
	)
	chunk, err := ctx.Load("a.b.c")

Each searcher is named by a single-letter code; SetConfiguration reorders
the pipeline for the calling context and for contexts created afterwards.
A miss is control flow, not an error: only exhaustion of every searcher
reports the module as not found. A module that is located but fails the
compile check is different — it signals a corrupted distribution, and the
load returns a *FatalError the embedder is expected to abort on.

# Toolchain I/O

The embedded compiler issues synchronous I/O events against small integer
descriptor ids. Results are signed: negative values are POSIX-style status
codes (StatusNoEntry, StatusIOError, StatusBadFile, StatusNoAccess,
StatusBadSeek), non-negative values are success.

	t := comexe.NewFileTable(v)
	fd := t.Open("!comexe/include/foo.h", os.O_RDONLY, 0)
	data, n := t.Read(fd, 4096)
	t.Close(fd)

Descriptor ids are reused through a free-list, so a close followed by an
open yields the same id. Archive descriptors hold the full decoded entry
and a cursor; dup of one always succeeds since the bytes are immutable.
Native descriptors wrap an afero.File; dup asks the backend for a fresh
handle and can fail, leaving the table unchanged.

# Concurrency

The layer is synchronous and single-owner. Each engine thread owns its own
Context and FileTable and opens its own archive Reader, so none of them
lock. The only shared mutable state is the process-wide default searcher
configuration, consulted once when a context starts.

# Compatibility

VFS implements afero.Fs, and FileSystem() returns an absfs.FileSystem view,
so the loader's unified archive-plus-native tree composes with both
ecosystems. AdaptFileSystem runs the bridge the other way, letting any
absfs filesystem serve as the native backend.

# Limitations

  - Archive content is immutable; writes through any view fail with a
    permission error.
  - Archive lookup is a sequential scan of the container's entry list; a
    packaged application's archive is listed once per successful load and
    entry counts are small, so no index is kept.
  - Decoded module bytes are not cached across calls.
*/
package comexe
