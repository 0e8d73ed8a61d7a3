package construct

import (
	"strconv"
	"strings"
)

// Segment is one step of a Path: a field name or a repetition index.
type Segment struct {
	Name  string
	Index int
}

// FieldSegment names a struct member step.
func FieldSegment(name string) Segment { return Segment{Name: name, Index: -1} }

// IndexSegment names a repetition element step.
func IndexSegment(i int) Segment { return Segment{Index: i} }

func (s Segment) String() string {
	if s.Name != "" {
		return s.Name
	}
	return "[" + strconv.Itoa(s.Index) + "]"
}

// Path locates a point in the schema tree, from root to leaf. Paths are
// immutable per call frame: extending one always copies.
type Path []Segment

// Field returns a copy of p extended with a named step.
func (p Path) Field(name string) Path { return p.extend(FieldSegment(name)) }

// Index returns a copy of p extended with an index step.
func (p Path) Index(i int) Path { return p.extend(IndexSegment(i)) }

func (p Path) extend(seg Segment) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = seg
	return out
}

func (p Path) prepend(seg Segment) Path {
	out := make(Path, len(p)+1)
	out[0] = seg
	copy(out[1:], p)
	return out
}

// String renders the path in dotted form, e.g. "header.items[2].length".
func (p Path) String() string {
	if len(p) == 0 {
		return "(root)"
	}
	var b strings.Builder
	for i, seg := range p {
		if i > 0 && seg.Name != "" {
			b.WriteByte('.')
		}
		b.WriteString(seg.String())
	}
	return b.String()
}
