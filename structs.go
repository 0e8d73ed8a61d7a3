package construct

// contextValuer lets derived members contribute their effective value to
// the build context before Build runs, so later siblings can reference
// it the same way they can after a parse.
type contextValuer interface {
	valueForContext(ctx Ctx, w *Writer) (any, error)
}

func memberSegment(m Member) Segment {
	if m.Embed {
		return FieldSegment("(embedded)")
	}
	if m.Name == "" {
		return FieldSegment("(anonymous)")
	}
	return FieldSegment(m.Name)
}

// StructField is an ordered sequence of named members parsed into a
// Container. Each member's parsed value becomes visible to the members
// after it through the context, which is what makes length-prefixed
// layouts declarable in one definition.
type StructField struct {
	members []Member
}

// Struct declares an ordered record of members.
func Struct(members ...Member) *StructField {
	return &StructField{members: members}
}

func (s *StructField) Parse(r *Reader, ctx Ctx) (any, error) {
	child := ctx.Child(r.Count())
	result := NewContainer()
	for _, m := range s.members {
		child.setField(m.Name)
		v, err := m.Con.Parse(r, child)
		if err != nil {
			return nil, withPath(err, memberSegment(m))
		}
		switch {
		case m.Embed:
			inner, ok := v.(*Container)
			if !ok {
				return nil, withPath(newError(ErrNamedTuple,
					"embedded member produced %T, needs a Container", v), memberSegment(m))
			}
			if err := result.merge(inner); err != nil {
				return nil, withPath(err, memberSegment(m))
			}
			for _, k := range inner.Keys() {
				mv, _ := inner.Get(k)
				child.Set(k, mv)
			}
		case m.Name != "":
			result.Set(m.Name, v)
			child.Set(m.Name, v)
		}
	}
	return result, nil
}

// embedBuilder lets a construct build its members directly into the
// enclosing frame, which is how an embedded member's keys become
// visible to the siblings after it during build, the same way the
// parse path splices them.
type embedBuilder interface {
	buildEmbedded(container *Container, w *Writer, ctx Ctx) (int, error)
}

func (s *StructField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	container, ok := v.(*Container)
	if !ok {
		return 0, newError(ErrNamedTuple, "struct builds from a Container, got %T", v)
	}
	return s.buildMembers(container, w, ctx.Child(w.Count()))
}

// buildEmbedded builds the members without opening a frame, so their
// entries land where the enclosing struct's later siblings look.
func (s *StructField) buildEmbedded(container *Container, w *Writer, ctx Ctx) (int, error) {
	return s.buildMembers(container, w, ctx)
}

func (s *StructField) buildMembers(container *Container, w *Writer, child Ctx) (int, error) {
	total := 0
	for _, m := range s.members {
		child.setField(m.Name)
		if m.Embed {
			n, err := buildEmbeddedMember(m.Con, container, w, child)
			total += n
			if err != nil {
				return total, withPath(err, memberSegment(m))
			}
			continue
		}
		vi, err := s.memberInput(m, container, child, w)
		if err != nil {
			return total, withPath(err, memberSegment(m))
		}
		n, err := m.Con.Build(vi, w, child)
		total += n
		if err != nil {
			return total, withPath(err, memberSegment(m))
		}
	}
	return total, nil
}

// buildEmbeddedMember dispatches an embedded member's build into the
// shared frame when the construct supports it, falling back to an
// opaque build from the whole container.
func buildEmbeddedMember(c Construct, container *Container, w *Writer, ctx Ctx) (int, error) {
	if eb, ok := c.(embedBuilder); ok {
		return eb.buildEmbedded(container, w, ctx)
	}
	return c.Build(container, w, ctx)
}

// memberInput resolves what value a member is built from: a
// context-derived value for derived members, the container entry
// otherwise. Required members missing from the container fail;
// optional ones fall back to their default.
func (s *StructField) memberInput(m Member, container *Container, child Ctx, w *Writer) (any, error) {
	if cv, ok := m.Con.(contextValuer); ok {
		val, err := cv.valueForContext(child, w)
		if err != nil {
			return nil, err
		}
		if m.Name != "" {
			child.Set(m.Name, val)
		}
		return val, nil
	}
	if _, ok := m.Con.(derived); ok || m.Name == "" {
		return nil, nil
	}
	val, ok := container.Get(m.Name)
	if !ok {
		if !m.Optional {
			return nil, newError(ErrMissingField, "value has no entry %q", m.Name)
		}
		val = m.Default
	}
	child.Set(m.Name, val)
	return val, nil
}

func (s *StructField) Sizeof(ctx Ctx) (int, error) {
	child := ctx.Child(-1)
	total := 0
	for _, m := range s.members {
		child.setField(m.Name)
		n, err := m.Con.Sizeof(child)
		if err != nil {
			return 0, withPath(err, memberSegment(m))
		}
		total += n
	}
	return total, nil
}

// SequenceField is an ordered list of heterogeneous constructs parsed
// into a positional slice.
type SequenceField struct {
	cons []Construct
}

// Sequence declares an ordered positional tuple.
func Sequence(cons ...Construct) *SequenceField {
	return &SequenceField{cons: cons}
}

func (s *SequenceField) Parse(r *Reader, ctx Ctx) (any, error) {
	child := ctx.Child(r.Count())
	out := make([]any, 0, len(s.cons))
	for i, c := range s.cons {
		child.setIndex(i)
		v, err := c.Parse(r, child)
		if err != nil {
			return nil, withIndexPath(err, i)
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *SequenceField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	items, ok := v.([]any)
	if !ok {
		return 0, newError(ErrNamedTuple, "sequence builds from []any, got %T", v)
	}
	if len(items) != len(s.cons) {
		return 0, newError(ErrNamedTuple, "sequence has %d slots, value has %d", len(s.cons), len(items))
	}
	child := ctx.Child(w.Count())
	total := 0
	for i, c := range s.cons {
		child.setIndex(i)
		n, err := c.Build(items[i], w, child)
		total += n
		if err != nil {
			return total, withIndexPath(err, i)
		}
	}
	return total, nil
}

func (s *SequenceField) Sizeof(ctx Ctx) (int, error) {
	child := ctx.Child(-1)
	total := 0
	for i, c := range s.cons {
		n, err := c.Sizeof(child)
		if err != nil {
			return 0, withIndexPath(err, i)
		}
		total += n
	}
	return total, nil
}
