package construct

// IfField parses and builds its inner construct only when the condition
// holds; otherwise the value is nil and the stream is untouched.
type IfField struct {
	cond func(Ctx) bool
	then Construct
	els  Construct
}

// If declares a construct present only when cond holds.
func If(cond func(Ctx) bool, then Construct) *IfField {
	return &IfField{cond: cond, then: then}
}

// IfThenElse declares a construct that is then when cond holds and els
// otherwise.
func IfThenElse(cond func(Ctx) bool, then, els Construct) *IfField {
	return &IfField{cond: cond, then: then, els: els}
}

func (f *IfField) pick(ctx Ctx) Construct {
	if f.cond(ctx) {
		return f.then
	}
	return f.els
}

func (f *IfField) Parse(r *Reader, ctx Ctx) (any, error) {
	c := f.pick(ctx)
	if c == nil {
		return nil, nil
	}
	return c.Parse(r, ctx)
}

func (f *IfField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	c := f.pick(ctx)
	if c == nil {
		return 0, nil
	}
	return c.Build(v, w, ctx)
}

func (f *IfField) Sizeof(ctx Ctx) (int, error) {
	c := f.pick(ctx)
	if c == nil {
		return 0, nil
	}
	return c.Sizeof(ctx)
}

// EmbeddedSwitch splices the selected case's fields straight into the
// enclosing struct. Selection happens before the embedding merge, so
// only the chosen case's keys ever reach the parent.
func EmbeddedSwitch(key func(Ctx) (any, error), cases map[any]Construct) Member {
	return Embedded(Switch(key, cases))
}

// SwitchField dispatches to one of several constructs on a context-
// derived key. Without a default, an unmatched key is an error in both
// directions.
type SwitchField struct {
	key   func(Ctx) (any, error)
	cases map[any]Construct
	def   Construct
}

// Switch declares key-dispatched cases with no fallback.
func Switch(key func(Ctx) (any, error), cases map[any]Construct) *SwitchField {
	return &SwitchField{key: key, cases: cases}
}

// SwitchDefault declares key-dispatched cases with def built or parsed
// when no case matches.
func SwitchDefault(key func(Ctx) (any, error), cases map[any]Construct, def Construct) *SwitchField {
	return &SwitchField{key: key, cases: cases, def: def}
}

func (f *SwitchField) pick(ctx Ctx) (Construct, error) {
	k, err := f.key(ctx)
	if err != nil {
		return nil, err
	}
	if c, ok := f.cases[k]; ok {
		return c, nil
	}
	if f.def != nil {
		return f.def, nil
	}
	return nil, newError(ErrSwitch, "no case matches key %v", k)
}

func (f *SwitchField) Parse(r *Reader, ctx Ctx) (any, error) {
	c, err := f.pick(ctx)
	if err != nil {
		return nil, err
	}
	return c.Parse(r, ctx)
}

func (f *SwitchField) Build(v any, w *Writer, ctx Ctx) (int, error) {
	c, err := f.pick(ctx)
	if err != nil {
		return 0, err
	}
	return c.Build(v, w, ctx)
}

// buildEmbedded forwards the embedding splice to the selected case, so
// an embedded switch exposes the chosen case's keys during build just
// as it does during parse.
func (f *SwitchField) buildEmbedded(container *Container, w *Writer, ctx Ctx) (int, error) {
	c, err := f.pick(ctx)
	if err != nil {
		return 0, err
	}
	return buildEmbeddedMember(c, container, w, ctx)
}

func (f *SwitchField) Sizeof(ctx Ctx) (int, error) {
	c, err := f.pick(ctx)
	if err != nil {
		return 0, wrapError(ErrSizeof, err, "case not determinable")
	}
	return c.Sizeof(ctx)
}
