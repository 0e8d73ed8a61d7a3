package construct

import "fmt"

// frame is one level of context: an ordered key/value list, a parent
// handle, the current repetition index, the member currently being
// processed, and the byte offset at which the frame was entered. Frames
// live in a per-invocation arena and are addressed by integer handle,
// never by pointer.
type frame struct {
	parent int
	keys   []string
	vals   []any
	index  int
	field  string
	offset int64
}

type arena struct {
	frames []frame
}

// Ctx addresses one context frame inside one invocation's arena. It is a
// small value that is copied freely; all mutation happens through the
// shared arena so sibling fields observe each other's entries.
type Ctx struct {
	a *arena
	f int
}

// NewContext creates a fresh arena with a root frame. Every external
// parse/build/sizeof invocation starts here; arenas are never shared
// across invocations.
func NewContext() Ctx {
	a := &arena{frames: []frame{{parent: -1, index: -1, offset: -1}}}
	return Ctx{a: a, f: 0}
}

// Child creates a nested frame whose parent is c, recording the byte
// offset at entry when known.
func (c Ctx) Child(offset int64) Ctx {
	c.a.frames = append(c.a.frames, frame{parent: c.f, index: -1, offset: offset})
	return Ctx{a: c.a, f: len(c.a.frames) - 1}
}

// Parent returns the enclosing frame, read-only from the child's
// perspective by convention.
func (c Ctx) Parent() (Ctx, bool) {
	p := c.a.frames[c.f].parent
	if p < 0 {
		return Ctx{}, false
	}
	return Ctx{a: c.a, f: p}, true
}

// Set stores a value in the current frame, making it visible to all
// subsequent siblings and everything nested beneath them.
func (c Ctx) Set(name string, v any) {
	fr := &c.a.frames[c.f]
	for i, k := range fr.keys {
		if k == name {
			fr.vals[i] = v
			return
		}
	}
	fr.keys = append(fr.keys, name)
	fr.vals = append(fr.vals, v)
}

// GetLocal looks a name up in the current frame only.
func (c Ctx) GetLocal(name string) (any, bool) {
	fr := &c.a.frames[c.f]
	for i, k := range fr.keys {
		if k == name {
			return fr.vals[i], true
		}
	}
	return nil, false
}

// Get looks a name up in the current frame, then walks the parent chain
// by handle.
func (c Ctx) Get(name string) (any, bool) {
	for f := c.f; f >= 0; f = c.a.frames[f].parent {
		fr := &c.a.frames[f]
		for i, k := range fr.keys {
			if k == name {
				return fr.vals[i], true
			}
		}
	}
	return nil, false
}

// Int resolves name through Get and coerces it to int. Count and length
// callbacks lean on this for fields previously parsed as any integer
// width.
func (c Ctx) Int(name string) (int, error) {
	v, ok := c.Get(name)
	if !ok {
		return 0, newError(ErrMissingField, "context has no entry %q", name)
	}
	n, err := toInt(v)
	if err != nil {
		return 0, newError(ErrArgument, "context entry %q: %v", name, err)
	}
	return n, nil
}

// Index returns the nearest enclosing repetition index, or -1 outside
// any repeat.
func (c Ctx) Index() int {
	for f := c.f; f >= 0; f = c.a.frames[f].parent {
		if i := c.a.frames[f].index; i >= 0 {
			return i
		}
	}
	return -1
}

// Offset returns the byte offset recorded when the frame was entered,
// or -1 when the offset was unavailable.
func (c Ctx) Offset() int64 { return c.a.frames[c.f].offset }

// Path reconstructs the location of the member currently being
// processed from the frame chain. User callbacks use it for
// path-qualified diagnostics.
func (c Ctx) Path() Path {
	var handles []int
	for f := c.f; f >= 0; f = c.a.frames[f].parent {
		handles = append(handles, f)
	}
	var p Path
	for i := len(handles) - 1; i >= 0; i-- {
		fr := &c.a.frames[handles[i]]
		if fr.index >= 0 {
			p = append(p, IndexSegment(fr.index))
		}
		if fr.field != "" {
			p = append(p, FieldSegment(fr.field))
		}
	}
	return p
}

// setIndex is used by repetition combinators around each element.
func (c Ctx) setIndex(i int) { c.a.frames[c.f].index = i }

// setField is used by struct combinators around each member.
func (c Ctx) setField(name string) { c.a.frames[c.f].field = name }

// toInt widens any Go integer value to int, refusing lossy conversions.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		if n > uint64(maxInt) {
			return 0, fmt.Errorf("value %d overflows int", n)
		}
		return int(n), nil
	case uint:
		if uint64(n) > uint64(maxInt) {
			return 0, fmt.Errorf("value %d overflows int", n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not an integer", v, v)
	}
}

const maxInt = int(^uint(0) >> 1)
