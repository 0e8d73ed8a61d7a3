package construct

// SelectField tries its cases in order and keeps the first one that
// parses. A failed attempt is rolled back through the stream
// transcript, so the next case starts from the same position even on
// pipes and sockets.
type SelectField struct {
	cases []Construct
}

// Select declares an ordered set of alternatives.
func Select(cases ...Construct) *SelectField {
	return &SelectField{cases: cases}
}

func (f *SelectField) Parse(r *Reader, ctx Ctx) (any, error) {
	for _, c := range f.cases {
		r.Mark()
		v, err := c.Parse(r, ctx)
		if err != nil {
			r.Rollback()
			continue
		}
		r.Commit()
		return v, nil
	}
	return nil, newError(ErrSwitch, "no case accepts the input")
}

func (f *SelectField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	// Trial builds go to a scratch sink so a failed case leaves the
	// real stream untouched.
	for _, c := range f.cases {
		sink := NewBytesWriter()
		if _, err := c.Build(v, NewWriter(sink), ctx); err != nil {
			continue
		}
		return w.WriteFull(sink.Bytes())
	}
	return 0, newError(ErrSwitch, "no case accepts the value %v", v)
}

func (f *SelectField) Sizeof(ctx Ctx) (int, error) {
	return 0, newError(ErrSizeof, "selected case depends on the data")
}

func (f *SelectField) codecName() string { return "select" }

// UnionField parses every member over the same span of input, merging
// their views into one Container. Each attempt is rolled back before
// the next starts; the stream then advances by the first member's
// span, which fixes the union's wire width.
type UnionField struct {
	members []Member
}

// Union declares overlapping views over one region.
func Union(members ...Member) *UnionField {
	return &UnionField{members: members}
}

func (u *UnionField) Parse(r *Reader, ctx Ctx) (any, error) {
	child := ctx.Child(r.Count())
	result := NewContainer()
	advance := 0
	for i, m := range u.members {
		child.setField(m.Name)
		before := r.Count()
		r.Mark()
		v, err := m.Con.Parse(r, child)
		if err != nil {
			r.Rollback()
			return nil, withPath(err, memberSegment(m))
		}
		consumed := int(r.Count() - before)
		r.Rollback()
		if i == 0 {
			advance = consumed
		}
		if m.Name != "" {
			result.Set(m.Name, v)
			child.Set(m.Name, v)
		}
	}
	if _, err := r.ReadFull(advance); err != nil {
		return nil, err
	}
	return result, nil
}

func (u *UnionField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	container, ok := v.(*Container)
	if !ok {
		return 0, newError(ErrNamedTuple, "union builds from a Container, got %T", v)
	}
	child := ctx.Child(w.Count())
	for _, m := range u.members {
		val, ok := container.Get(m.Name)
		if !ok {
			continue
		}
		child.setField(m.Name)
		child.Set(m.Name, val)
		n, err := m.Con.Build(val, w, child)
		if err != nil {
			return n, withPath(err, memberSegment(m))
		}
		return n, nil
	}
	return 0, newError(ErrMissingField, "value carries none of the union's members")
}

func (u *UnionField) Sizeof(ctx Ctx) (int, error) {
	if len(u.members) == 0 {
		return 0, nil
	}
	return u.members[0].Con.Sizeof(ctx)
}

func (u *UnionField) codecName() string { return "union" }
