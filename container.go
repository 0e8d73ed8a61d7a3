package construct

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Container is the insertion-ordered result of parsing a Struct. Keys
// iterate in the order their fields were declared, which keeps output
// stable and lets embedding merge deterministically.
type Container struct {
	keys []string
	vals map[string]any
}

// NewContainer creates an empty Container.
func NewContainer() *Container {
	return &Container{vals: make(map[string]any)}
}

// Set stores a value under name, appending the key on first insertion.
// It returns the container for chaining, which keeps schema test
// fixtures compact.
func (c *Container) Set(name string, v any) *Container {
	if _, ok := c.vals[name]; !ok {
		c.keys = append(c.keys, name)
	}
	c.vals[name] = v
	return c
}

// Get returns the value stored under name.
func (c *Container) Get(name string) (any, bool) {
	v, ok := c.vals[name]
	return v, ok
}

// Has reports whether name is present.
func (c *Container) Has(name string) bool {
	_, ok := c.vals[name]
	return ok
}

// Keys returns the key list in insertion order. The slice is shared;
// callers must not modify it.
func (c *Container) Keys() []string { return c.keys }

// Len returns the number of entries.
func (c *Container) Len() int { return len(c.keys) }

// merge splices every entry of other into c, failing on key collision.
// Used by embedding; the collision check keeps merged key sets equal to
// the union of the operands.
func (c *Container) merge(other *Container) error {
	for _, k := range other.keys {
		if c.Has(k) {
			return newError(ErrNamedTuple, "embedded key %q collides with existing field", k)
		}
		c.Set(k, other.vals[k])
	}
	return nil
}

func (c *Container) String() string {
	var b strings.Builder
	b.WriteString("Container(")
	for i, k := range c.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, c.vals[k])
	}
	b.WriteString(")")
	return b.String()
}

// MarshalJSON renders the container as a JSON object in key order.
// []byte values are emitted as JSON arrays of numbers rather than
// base64, keeping dumps readable next to hex editors.
func (c *Container) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		vb, err := marshalValue(c.vals[k])
		if err != nil {
			return nil, err
		}
		b.Write(vb)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func marshalValue(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		ints := make([]int, len(t))
		for i, x := range t {
			ints[i] = int(x)
		}
		return json.Marshal(ints)
	default:
		return json.Marshal(v)
	}
}
