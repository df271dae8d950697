package comexe

import (
	"fmt"
	"sync"
)

// A Searcher attempts to resolve a module name to content. A miss is not an
// error: found reports whether the searcher matched, and a false result
// defers to the next configured searcher.
type Searcher func(c *Context, name string) (data []byte, loc string, found bool, err error)

// builtinSearchers maps single-letter configuration codes to strategies.
// The closed set:
//
//	p  preload table lookup
//	c  compiled module, flat layout ("?.luac")
//	d  compiled module, per-module directory ("?/init.luac")
//	l  source module ("?.lua", "?/init.lua"), preferred backend first
//	r  archive runtime assets (toolchain support modules)
//	a  archive application modules
//	f  native filesystem, all candidate layouts
var builtinSearchers = map[byte]Searcher{
	'p': searchPreload,
	'c': searchCompiled,
	'd': searchCompiledDir,
	'l': searchSource,
	'r': searchRuntime,
	'a': searchApplication,
	'f': searchFile,
}

// DefaultConfiguration is the searcher order applied to new contexts until
// SetConfiguration changes the process-wide default.
const DefaultConfiguration = "pcdlraf"

// The process-wide default configuration, consulted only when a new
// context starts. Configuration is expected to change once, early; the
// mutex exists for the Go memory model, not for contention.
var (
	defaultMu     sync.Mutex
	processConfig = DefaultConfiguration
)

func defaultConfiguration() string {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return processConfig
}

// ConfigError reports an unrecognized searcher code. The configuration that
// contained it is rejected as a whole.
type ConfigError struct {
	Code byte
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("unknown searcher code %q", string(e.Code))
}

// FatalError reports a module that was located but failed to compile. This
// is distinct from a miss: a found-but-corrupt payload means a broken
// distribution, and the embedding process is expected to abort with the
// diagnostic rather than probe further.
type FatalError struct {
	Module   string
	Location string
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("module %q (%s): %v", e.Module, e.Location, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// CompileFunc checks a located chunk. A non-nil result makes the load
// fatal.
type CompileFunc func(name string, chunk []byte) error

// Context is the per-execution-thread loader state: the active searcher
// list, the preload table, and the resolver over the thread's own archive
// handle. A Context is owned by exactly one engine thread and is not safe
// for concurrent use.
type Context struct {
	vfs      *VFS
	resolver *Resolver
	active   []Searcher
	codes    string
	preload  map[string][]byte
	compile  CompileFunc
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithRunMode sets the run mode for automatic backend selection. The
// default is an interpreter session.
func WithRunMode(mode RunMode) ContextOption {
	return func(c *Context) { c.resolver.mode = mode }
}

// WithRoot sets the filesystem search root, normally the entry script's
// directory.
func WithRoot(root string) ContextOption {
	return func(c *Context) { c.resolver.root = root }
}

// WithCompiler installs the toolchain check applied to located content.
func WithCompiler(fn CompileFunc) ContextOption {
	return func(c *Context) { c.compile = fn }
}

// NewContext creates loader state for one engine thread. The searcher
// configuration is copied from the process-wide default at this point;
// later default changes do not affect an existing context.
func NewContext(v *VFS, opts ...ContextOption) (*Context, error) {
	c := &Context{
		vfs:      v,
		resolver: NewResolver(v, ScriptRoot(""), RunInterpreter),
		preload:  make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.setActive(defaultConfiguration()); err != nil {
		return nil, err
	}
	return c, nil
}

// Configuration returns the context's active searcher codes.
func (c *Context) Configuration() string { return c.codes }

// setActive parses codes into an ordered searcher list. The whole string is
// validated before anything changes.
func (c *Context) setActive(codes string) error {
	active := make([]Searcher, 0, len(codes))
	for i := 0; i < len(codes); i++ {
		fn, ok := builtinSearchers[codes[i]]
		if !ok {
			return &ConfigError{Code: codes[i]}
		}
		active = append(active, fn)
	}
	c.active = active
	c.codes = codes
	return nil
}

// SetConfiguration replaces both the process-wide default (picked up by
// contexts created afterwards) and this context's active list. Other
// already-running contexts are unaffected. An unrecognized code rejects the
// whole configuration and leaves everything unchanged.
func (c *Context) SetConfiguration(codes string) error {
	if err := c.setActive(codes); err != nil {
		return err
	}
	defaultMu.Lock()
	processConfig = codes
	defaultMu.Unlock()
	return nil
}

// Preload registers content for name, served by the 'p' searcher ahead of
// any backend probe.
func (c *Context) Preload(name string, chunk []byte) {
	c.preload[name] = chunk
}

// Load resolves a dotted module name through the active searchers in order.
// Exhaustion of every searcher returns an error wrapping ErrNotFound.
// Located content that fails the compile check returns a *FatalError.
func (c *Context) Load(name string) ([]byte, error) {
	for _, search := range c.active {
		data, loc, found, err := search(c, name)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		if c.compile != nil {
			if cerr := c.compile(name, data); cerr != nil {
				return nil, &FatalError{Module: name, Location: loc, Err: cerr}
			}
		}
		return data, nil
	}
	return nil, fmt.Errorf("module %q not found (searchers %q): %w", name, c.codes, ErrNotFound)
}

func searchPreload(c *Context, name string) ([]byte, string, bool, error) {
	data, ok := c.preload[name]
	if !ok {
		return nil, "", false, nil
	}
	return data, "preload:" + name, true, nil
}

func searchCompiled(c *Context, name string) ([]byte, string, bool, error) {
	return c.resolver.Resolve(name, BackendAuto, []string{"?.luac"})
}

func searchCompiledDir(c *Context, name string) ([]byte, string, bool, error) {
	return c.resolver.Resolve(name, BackendAuto, []string{"?/init.luac"})
}

func searchSource(c *Context, name string) ([]byte, string, bool, error) {
	return c.resolver.Resolve(name, BackendAutoFallback, []string{"?.lua", "?/init.lua"})
}

// searchRuntime looks under the archive's asset directory for toolchain
// support modules shipped with every distribution.
func searchRuntime(c *Context, name string) ([]byte, string, bool, error) {
	if c.vfs.archive == nil {
		return nil, "", false, nil
	}
	return c.resolver.Resolve(name, BackendArchive, []string{
		c.vfs.assets + "/lib/?.luac",
		c.vfs.assets + "/lib/?.lua",
		c.vfs.assets + "/lib/?/init.lua",
	})
}

// searchApplication looks for the packaged application's own modules at the
// archive root.
func searchApplication(c *Context, name string) ([]byte, string, bool, error) {
	if c.vfs.archive == nil {
		return nil, "", false, nil
	}
	return c.resolver.Resolve(name, BackendArchive, DefaultCandidates)
}

func searchFile(c *Context, name string) ([]byte, string, bool, error) {
	return c.resolver.Resolve(name, BackendFilesystem, DefaultCandidates)
}
