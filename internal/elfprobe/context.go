package elfprobe

import (
	"fmt"
	"strings"
)

// ContextConfig configures a Context.
type ContextConfig struct {
	// MaxBytes bounds the bytes live in the context at any time.
	// Zero means unbounded.
	MaxBytes int
}

// Context owns the buffers behind the path lists produced while inspecting
// a binary. Closing it releases every list it handed out. A Context is not
// safe for concurrent use; give each goroutine its own.
type Context struct {
	maxBytes int
	used     int
	lists    []*PathList
	closed   bool
}

// NewContext creates an empty Context.
func NewContext(cfg ContextConfig) *Context {
	return &Context{maxBytes: cfg.MaxBytes}
}

// Used returns the number of bytes currently charged to the context.
func (c *Context) Used() int {
	return c.used
}

// Close releases every buffer owned by the context. Lists obtained from it
// become empty. Close is idempotent.
func (c *Context) Close() {
	for _, l := range c.lists {
		l.buf = nil
		l.count = 0
	}
	c.lists = nil
	c.used = 0
	c.closed = true
}

func (c *Context) charge(n int) error {
	if c.closed {
		return ErrContextClosed
	}
	if c.maxBytes > 0 && c.used+n > c.maxBytes {
		return fmt.Errorf("%w: need %d bytes, %d of %d in use", ErrOutOfMemory, n, c.used, c.maxBytes)
	}
	c.used += n
	return nil
}

func (c *Context) release(n int) {
	c.used -= n
	if c.used < 0 {
		c.used = 0
	}
}

func (c *Context) newPathList() (*PathList, error) {
	if c.closed {
		return nil, ErrContextClosed
	}
	l := &PathList{ctx: c}
	c.lists = append(c.lists, l)
	return l, nil
}

// PathList is a colon-separated list of search directories accumulated from
// one or more dynamic entries, in table order. It is read-only once
// returned to the caller.
type PathList struct {
	ctx   *Context
	buf   []byte
	count int
}

// String returns the list as declared, entries joined with ':'.
func (l *PathList) String() string {
	if l == nil {
		return ""
	}
	return string(l.buf)
}

// Len returns the length of the joined list in bytes.
func (l *PathList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.buf)
}

// IsEmpty reports whether no entry has been accumulated.
func (l *PathList) IsEmpty() bool {
	return l == nil || l.count == 0
}

// Entries splits the list into directories. Empty components are kept
// because the dynamic loader gives them a meaning of their own.
func (l *PathList) Entries() []string {
	if l.IsEmpty() {
		return nil
	}
	return strings.Split(string(l.buf), ":")
}

// add appends paths, joined with ':' when an earlier entry was added.
func (l *PathList) add(paths []byte) error {
	n := len(paths)
	if l.count > 0 {
		n++
	}
	if err := l.ctx.charge(n); err != nil {
		return err
	}
	if l.count > 0 {
		l.buf = append(l.buf, ':')
	}
	l.buf = append(l.buf, paths...)
	l.count++
	return nil
}
