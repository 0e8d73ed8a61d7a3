package construct

import "github.com/puzpuzpuz/xsync/v4"

// LazyBoundField defers its inner construct to a resolver called on
// every operation, which is how self-referential schemas (linked lists,
// trees) tie the knot.
type LazyBoundField struct {
	resolve func() Construct
}

// LazyBound declares a construct resolved at call time.
func LazyBound(resolve func() Construct) *LazyBoundField {
	return &LazyBoundField{resolve: resolve}
}

func (l *LazyBoundField) target() (Construct, error) {
	c := l.resolve()
	if c == nil {
		return nil, newError(ErrArgument, "lazy binding resolved to nil")
	}
	return c, nil
}

func (l *LazyBoundField) Parse(r *Reader, ctx Ctx) (any, error) {
	c, err := l.target()
	if err != nil {
		return nil, err
	}
	return c.Parse(r, ctx)
}

func (l *LazyBoundField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	c, err := l.target()
	if err != nil {
		return 0, err
	}
	return c.Build(v, w, ctx)
}

func (l *LazyBoundField) Sizeof(ctx Ctx) (int, error) {
	c, err := l.target()
	if err != nil {
		return 0, err
	}
	return c.Sizeof(ctx)
}

// Registry maps names to constructs so schemas defined across packages
// can reference each other, including mutually recursive ones. Lookups
// are concurrency-safe; schemas are typically registered at init time
// and used from many goroutines.
type Registry struct {
	m *xsync.Map[string, Construct]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: xsync.NewMap[string, Construct]()}
}

// Register binds name to c. Rebinding an existing name is refused, which
// catches accidental double registration at construction time.
func (g *Registry) Register(name string, c Construct) error {
	if c == nil {
		return newError(ErrArgument, "registering nil construct under %q", name)
	}
	if _, loaded := g.m.LoadOrStore(name, c); loaded {
		return newError(ErrArgument, "name %q is already registered", name)
	}
	return nil
}

// Lookup returns the construct bound to name.
func (g *Registry) Lookup(name string) (Construct, bool) {
	return g.m.Load(name)
}

// Ref declares a lazy reference to a registered name, resolved on every
// operation so registration order does not matter.
func (g *Registry) Ref(name string) *LazyBoundField {
	return LazyBound(func() Construct {
		c, _ := g.m.Load(name)
		return c
	})
}
