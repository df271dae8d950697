package comexe

import (
	"path/filepath"
	"strings"
)

// PathStyle selects the separator convention used when rendering a Path.
type PathStyle int

const (
	// StyleSlash renders with forward slashes regardless of platform.
	StyleSlash PathStyle = iota
	// StyleNative renders with the host separator.
	StyleNative
)

type anchorKind uint8

const (
	anchorNone anchorKind = iota
	anchorRoot
	anchorDrive
	anchorUNC
)

// Path is a parsed filesystem path: an optional anchor (POSIX root, drive
// letter, or UNC server/share) followed by plain name segments. A segment is
// never the literal "."; an absolute path never keeps a leading "..", while
// a relative path may accumulate them. Paths are mutable values; every
// holder owns its own segment slice (see Clone).
type Path struct {
	anchor anchorKind
	drive  byte
	server string
	share  string
	segs   []string
}

// ParsePath parses a path string in either POSIX or drive/UNC convention.
// Backslashes are accepted as separators. Redundant leading separators are
// stripped and "." segments dropped. Parsing never fails: a UNC prefix with
// a missing share degrades to a plain rooted path.
func ParsePath(s string) *Path {
	s = strings.ReplaceAll(s, "\\", "/")
	p := &Path{}

	switch {
	case len(s) >= 2 && isDriveLetter(s[0]) && s[1] == ':':
		p.anchor = anchorDrive
		p.drive = upperLetter(s[0])
		s = strings.TrimLeft(s[2:], "/")
	case strings.HasPrefix(s, "//"):
		rest := strings.TrimLeft(s, "/")
		parts := strings.SplitN(rest, "/", 3)
		if len(parts) >= 2 && parts[0] != "" && parts[1] != "" {
			p.anchor = anchorUNC
			p.server = parts[0]
			p.share = parts[1]
			s = ""
			if len(parts) == 3 {
				s = parts[2]
			}
		} else {
			// Missing share: treat as a plain rooted path.
			p.anchor = anchorRoot
			s = rest
		}
	case strings.HasPrefix(s, "/"):
		p.anchor = anchorRoot
		s = strings.TrimLeft(s, "/")
	}

	for _, seg := range strings.Split(s, "/") {
		if seg == "" || seg == "." {
			continue
		}
		p.segs = append(p.segs, seg)
	}
	return p
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func upperLetter(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// Normalize resolves ".." segments left to right. A ".." drops the
// preceding plain segment when there is one. With nothing left to drop, a
// relative path keeps the ".." (it accumulates), an absolute path discards
// it: climbing above the root or drive clamps to the root or drive itself.
// Normalize returns p for chaining.
func (p *Path) Normalize() *Path {
	resolved := p.segs[:0]
	for _, seg := range p.segs {
		if seg != ".." {
			resolved = append(resolved, seg)
			continue
		}
		if n := len(resolved); n > 0 && resolved[n-1] != ".." {
			resolved = resolved[:n-1]
		} else if p.anchor == anchorNone {
			resolved = append(resolved, "..")
		}
	}
	p.segs = resolved
	return p
}

// Render joins the path back into a string. An anchor renders as "/",
// "C:/", or "//server/share/" (native separators under StyleNative). A path
// that is only an anchor keeps the trailing separator. An empty relative
// path renders as ".".
func (p *Path) Render(style PathStyle) string {
	sep := "/"
	if style == StyleNative {
		sep = string(filepath.Separator)
	}

	var b strings.Builder
	switch p.anchor {
	case anchorRoot:
		b.WriteString(sep)
	case anchorDrive:
		b.WriteByte(p.drive)
		b.WriteString(":")
		b.WriteString(sep)
	case anchorUNC:
		b.WriteString(sep)
		b.WriteString(sep)
		b.WriteString(p.server)
		b.WriteString(sep)
		b.WriteString(p.share)
		b.WriteString(sep)
	}

	if len(p.segs) == 0 {
		if p.anchor == anchorNone {
			return "."
		}
		return b.String()
	}
	b.WriteString(strings.Join(p.segs, sep))
	return b.String()
}

// Convert is an alias for Render.
func (p *Path) Convert(style PathStyle) string { return p.Render(style) }

// String renders in slash convention.
func (p *Path) String() string { return p.Render(StyleSlash) }

// IsAbs reports whether the path is anchored at a root, drive, or share.
func (p *Path) IsAbs() bool { return p.anchor != anchorNone }

// IsRel reports whether the path is relative.
func (p *Path) IsRel() bool { return p.anchor == anchorNone }

// Depth returns the element count; an anchor counts as one element.
func (p *Path) Depth() int {
	if p.anchor != anchorNone {
		return len(p.segs) + 1
	}
	return len(p.segs)
}

// Name returns the final segment together with its basename and extension,
// split on the last dot ("file.txt" yields "file.txt", "file", "txt"). A
// path with no trailing name, such as a bare root or share, returns empty
// strings. A leading-dot name has no extension.
func (p *Path) Name() (full, base, ext string) {
	if len(p.segs) == 0 {
		return "", "", ""
	}
	full = p.segs[len(p.segs)-1]
	if i := strings.LastIndexByte(full, '.'); i > 0 {
		return full, full[:i], full[i+1:]
	}
	return full, full, ""
}

// Parent drops the last segment. At a bare root or drive it is a no-op: the
// path stays at the root. A relative path that is empty or already ends in
// ".." gains another "..".
func (p *Path) Parent() *Path {
	if len(p.segs) == 0 || p.segs[len(p.segs)-1] == ".." {
		if p.anchor == anchorNone {
			p.segs = append(p.segs, "..")
		}
		return p
	}
	p.segs = p.segs[:len(p.segs)-1]
	return p
}

// Child appends name, splitting it on separators and dropping "." parts.
func (p *Path) Child(name string) *Path {
	for _, seg := range strings.Split(strings.ReplaceAll(name, "\\", "/"), "/") {
		if seg == "" || seg == "." {
			continue
		}
		p.segs = append(p.segs, seg)
	}
	return p
}

// SetName replaces the last segment, or appends when there is none.
func (p *Path) SetName(name string) *Path {
	if len(p.segs) == 0 {
		p.segs = append(p.segs, name)
		return p
	}
	p.segs[len(p.segs)-1] = name
	return p
}

// Remove deletes the element at index i, counting the anchor as element
// zero on an absolute path. Out-of-range indexes are ignored.
func (p *Path) Remove(i int) *Path {
	if p.anchor != anchorNone {
		if i == 0 {
			p.anchor = anchorNone
			p.drive = 0
			p.server = ""
			p.share = ""
			return p
		}
		i--
	}
	if i < 0 || i >= len(p.segs) {
		return p
	}
	p.segs = append(p.segs[:i], p.segs[i+1:]...)
	return p
}

// Clone returns a deep copy; the copy owns its own segment slice.
func (p *Path) Clone() *Path {
	c := *p
	c.segs = append([]string(nil), p.segs...)
	return &c
}

// Concat appends b's segments to a copy of a. The result keeps a's anchor,
// so it is absolute exactly when a is, regardless of b.
func Concat(a, b *Path) *Path {
	c := a.Clone()
	c.segs = append(c.segs, b.segs...)
	return c
}
