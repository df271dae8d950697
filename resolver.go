package comexe

import (
	"os"
	"strings"

	"github.com/spf13/afero"
)

// RunMode is how the process was started; it decides which backend an
// automatic lookup prefers.
type RunMode uint8

const (
	// RunInterpreter is an interactive interpreter session; automatic
	// lookups prefer the native filesystem.
	RunInterpreter RunMode = iota
	// RunEmbedded is a packaged distributable; automatic lookups prefer
	// the embedded archive.
	RunEmbedded
)

// Backend selects which content source a lookup probes.
type Backend uint8

const (
	// BackendAuto probes only the backend the run mode prefers.
	BackendAuto Backend = iota
	// BackendAutoFallback probes the preferred backend, then the other.
	BackendAutoFallback
	// BackendArchive probes only the embedded archive.
	BackendArchive
	// BackendFilesystem probes only the native filesystem.
	BackendFilesystem
)

// DefaultCandidates is the candidate template order used by the plain file
// searcher: "?" stands for the slash-joined module name. Compiled variants
// come before source, and flat layouts before per-module directories.
var DefaultCandidates = []string{"?.luac", "?.lua", "?/init.luac", "?/init.lua"}

// Resolver turns a dotted module name into byte content by probing an
// ordered candidate list against the archive and filesystem backends.
type Resolver struct {
	fs      afero.Fs
	root    string
	archive Opener
	mode    RunMode
}

// NewResolver builds a resolver over the given VFS backends. root is the
// filesystem search root, established once at process start from the entry
// script's directory or the working directory (see ScriptRoot).
func NewResolver(v *VFS, root string, mode RunMode) *Resolver {
	return &Resolver{fs: v.native, root: root, archive: v.archive, mode: mode}
}

// ScriptRoot derives the filesystem search root from the entry script's
// location. An empty script falls back to the working directory.
func ScriptRoot(script string) string {
	if script == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "."
		}
		return wd
	}
	return ParsePath(script).Normalize().Parent().Render(StyleNative)
}

// backendOrder expands a preference into the concrete probe sequence.
func (r *Resolver) backendOrder(pref Backend) []Backend {
	preferred := BackendFilesystem
	if r.mode == RunEmbedded {
		preferred = BackendArchive
	}
	other := BackendArchive
	if preferred == BackendArchive {
		other = BackendFilesystem
	}

	switch pref {
	case BackendAuto:
		return []Backend{preferred}
	case BackendAutoFallback:
		return []Backend{preferred, other}
	default:
		return []Backend{pref}
	}
}

// Resolve substitutes the module name (dots become path separators) into
// each candidate template in order and probes the selected backends. The
// first hit wins. A miss across every candidate is not an error: found
// reports whether anything matched, and loc names the matching location.
func (r *Resolver) Resolve(name string, pref Backend, candidates []string) (data []byte, loc string, found bool, err error) {
	slashed := strings.ReplaceAll(name, ".", "/")

	for _, backend := range r.backendOrder(pref) {
		for _, tpl := range candidates {
			cand := strings.Replace(tpl, "?", slashed, 1)

			switch backend {
			case BackendArchive:
				if r.archive == nil {
					continue
				}
				data, found, err = ReadEntry(r.archive, cand)
				if err != nil {
					return nil, "", false, err
				}
				if found {
					return data, cand, true, nil
				}
			case BackendFilesystem:
				full := Concat(ParsePath(r.root), ParsePath(cand)).Normalize().Render(StyleNative)
				ok, err := afero.Exists(r.fs, full)
				if err != nil {
					return nil, "", false, err
				}
				if !ok {
					continue
				}
				data, err = afero.ReadFile(r.fs, full)
				if err != nil {
					return nil, "", false, err
				}
				return data, full, true, nil
			}
		}
	}
	return nil, "", false, nil
}
