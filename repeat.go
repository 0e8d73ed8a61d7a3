package construct

import "errors"

func buildElements(sub Construct, items []any, w *Writer, ctx Ctx) (int, error) {
	total := 0
	for i, item := range items {
		ctx.setIndex(i)
		n, err := sub.Build(item, w, ctx)
		total += n
		if err != nil {
			return total, withIndexPath(err, i)
		}
	}
	return total, nil
}

func sliceValue(v any) ([]any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, newError(ErrRepeat, "repetition builds from []any, got %T", v)
	}
	return items, nil
}

// ArrayField repeats its element construct a fixed number of times.
type ArrayField struct {
	count int
	sub   Construct
}

// Array declares count repetitions of sub.
func Array(count int, sub Construct) *ArrayField {
	return &ArrayField{count: count, sub: sub}
}

func (a *ArrayField) Parse(r *Reader, ctx Ctx) (any, error) {
	return parseN(a.sub, a.count, r, ctx)
}

func parseN(sub Construct, count int, r *Reader, ctx Ctx) (any, error) {
	if count < 0 {
		return nil, newError(ErrArgument, "repetition count is negative: %d", count)
	}
	child := ctx.Child(r.Count())
	out := make([]any, 0, count)
	for i := 0; i < count; i++ {
		child.setIndex(i)
		v, err := sub.Parse(r, child)
		if err != nil {
			return nil, withIndexPath(err, i)
		}
		out = append(out, v)
	}
	return out, nil
}

func (a *ArrayField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	items, err := sliceValue(v)
	if err != nil {
		return 0, err
	}
	if len(items) != a.count {
		return 0, newError(ErrRepeat, "expected %d elements, value has %d", a.count, len(items))
	}
	return buildElements(a.sub, items, w, ctx.Child(w.Count()))
}

func (a *ArrayField) Sizeof(ctx Ctx) (int, error) {
	n, err := a.sub.Sizeof(ctx.Child(-1))
	if err != nil {
		return 0, err
	}
	return a.count * n, nil
}

// VarArrayField repeats its element a context-derived number of times,
// typically read from a preceding count field.
type VarArrayField struct {
	count func(Ctx) (int, error)
	sub   Construct
}

// ArrayVar declares count(ctx) repetitions of sub.
func ArrayVar(count func(Ctx) (int, error), sub Construct) *VarArrayField {
	return &VarArrayField{count: count, sub: sub}
}

func (a *VarArrayField) resolve(ctx Ctx) (int, error) {
	n, err := a.count(ctx)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, newError(ErrArgument, "derived repetition count is negative: %d", n)
	}
	return n, nil
}

func (a *VarArrayField) Parse(r *Reader, ctx Ctx) (any, error) {
	n, err := a.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return parseN(a.sub, n, r, ctx)
}

func (a *VarArrayField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	n, err := a.resolve(ctx)
	if err != nil {
		return 0, err
	}
	items, err := sliceValue(v)
	if err != nil {
		return 0, err
	}
	if len(items) != n {
		return 0, newError(ErrRepeat, "expected %d elements, value has %d", n, len(items))
	}
	return buildElements(a.sub, items, w, ctx.Child(w.Count()))
}

func (a *VarArrayField) Sizeof(ctx Ctx) (int, error) {
	n, err := a.resolve(ctx)
	if err != nil {
		return 0, wrapError(ErrSizeof, err, "count not determinable")
	}
	size, err := a.sub.Sizeof(ctx.Child(-1))
	if err != nil {
		return 0, err
	}
	return n * size, nil
}

// GreedyRangeField repeats its element until the stream runs out. An
// element attempt that fails with a StreamError is rolled back, its
// bytes pushed back onto the stream, and the repetition ends cleanly;
// any other failure propagates with the element index on its path.
type GreedyRangeField struct {
	sub Construct
}

// GreedyRange declares zero or more repetitions of sub, as many as the
// stream holds.
func GreedyRange(sub Construct) *GreedyRangeField {
	return &GreedyRangeField{sub: sub}
}

func (g *GreedyRangeField) Parse(r *Reader, ctx Ctx) (any, error) {
	child := ctx.Child(r.Count())
	out := []any{}
	for i := 0; ; i++ {
		if r.Exhausted() {
			return out, nil
		}
		before := r.Count()
		r.Mark()
		child.setIndex(i)
		v, err := g.sub.Parse(r, child)
		if err != nil {
			if errors.Is(err, ErrStream) {
				r.Rollback()
				return out, nil
			}
			r.Commit()
			return nil, withIndexPath(err, i)
		}
		r.Commit()
		out = append(out, v)
		if r.Count() == before {
			// A zero-width element would repeat forever.
			return out, nil
		}
	}
}

func (g *GreedyRangeField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	items, err := sliceValue(v)
	if err != nil {
		return 0, err
	}
	return buildElements(g.sub, items, w, ctx.Child(w.Count()))
}

func (g *GreedyRangeField) Sizeof(ctx Ctx) (int, error) {
	return 0, newError(ErrSizeof, "open-ended repetition has no static size")
}

// RepeatUntilField repeats its element until the predicate approves the
// element just seen; that element is included in the result.
type RepeatUntilField struct {
	done func(last any, all []any, ctx Ctx) bool
	sub  Construct
}

// RepeatUntil declares repetitions of sub ending with the first element
// for which done returns true.
func RepeatUntil(done func(last any, all []any, ctx Ctx) bool, sub Construct) *RepeatUntilField {
	return &RepeatUntilField{done: done, sub: sub}
}

func (u *RepeatUntilField) Parse(r *Reader, ctx Ctx) (any, error) {
	child := ctx.Child(r.Count())
	out := []any{}
	for i := 0; ; i++ {
		child.setIndex(i)
		v, err := u.sub.Parse(r, child)
		if err != nil {
			return nil, withIndexPath(err, i)
		}
		out = append(out, v)
		if u.done(v, out, child) {
			return out, nil
		}
	}
}

func (u *RepeatUntilField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	items, err := sliceValue(v)
	if err != nil {
		return 0, err
	}
	child := ctx.Child(w.Count())
	total := 0
	for i, item := range items {
		child.setIndex(i)
		n, err := u.sub.Build(item, w, child)
		total += n
		if err != nil {
			return total, withIndexPath(err, i)
		}
		if u.done(item, items[:i+1], child) {
			return total, nil
		}
	}
	return total, newError(ErrRepeat, "no element satisfied the stop condition")
}

func (u *RepeatUntilField) Sizeof(ctx Ctx) (int, error) {
	return 0, newError(ErrSizeof, "predicate-terminated repetition has no static size")
}
