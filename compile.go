package construct

import (
	"bytes"
	"fmt"
	"reflect"
)

// The compiler turns a schema tree into a flat step plan ahead of time.
// Fixed-width leaves become direct read/decode steps with no interface
// dispatch; everything else becomes a fallback step that runs the node
// interpreted, so a compiled program always accepts and produces exactly
// what the tree it came from does. Error kinds and paths are preserved
// step for step.

type stepKind int

const (
	stepInt stepKind = iota
	stepBytes
	stepConst
	stepPadding
	stepFallback
)

type step struct {
	kind     stepKind
	name     string
	embed    bool
	optional bool
	def      any

	intf  *IntField     // stepInt
	width int           // stepBytes
	data  []byte        // stepConst
	pad   *PaddingField // stepPadding
	con   Construct     // stepFallback
}

func (s step) segment() Segment {
	if s.embed {
		return FieldSegment("(embedded)")
	}
	if s.name == "" {
		return FieldSegment("(anonymous)")
	}
	return FieldSegment(s.name)
}

// Program is a compiled schema. It implements Construct, so it drops in
// wherever the tree it was compiled from did.
type Program struct {
	src       Construct
	steps     []step
	whole     bool // single step standing for the entire source
	constSize int  // -1 when the size is data-dependent
	externals []string
}

// Compile specializes c into a flat program. Struct members over
// fixed-width leaves compile to direct steps; nested structs compile
// recursively; pure adapters compile through to their wire subtree.
// Anything else is carried as an interpreted fallback and reported in
// Externals.
func Compile(c Construct) *Program {
	p := &Program{src: c, constSize: -1}
	if s, ok := c.(*StructField); ok {
		for _, m := range s.members {
			p.steps = append(p.steps, p.compileMember(m))
		}
	} else {
		p.whole = true
		p.steps = append(p.steps, p.compileMember(Member{Con: c}))
	}
	if n, err := SizeofStatic(c); err == nil {
		p.constSize = n
	}
	return p
}

func (p *Program) compileMember(m Member) step {
	base := step{name: m.Name, embed: m.Embed, optional: m.Optional, def: m.Default}
	if m.Embed {
		return p.fallbackStep(m)
	}
	switch con := m.Con.(type) {
	case *IntField:
		base.kind = stepInt
		base.intf = con
		return base
	case *BytesField:
		base.kind = stepBytes
		base.width = con.length
		return base
	case *ConstField:
		if data, ok := con.value.([]byte); ok {
			if _, raw := con.sub.(*BytesField); raw {
				base.kind = stepConst
				base.data = data
				return base
			}
		}
		return p.fallbackStep(m)
	case *PaddingField:
		base.kind = stepPadding
		base.pad = con
		return base
	case *StructField:
		sub := Compile(con)
		p.externals = append(p.externals, sub.externals...)
		base.kind = stepFallback
		base.con = sub
		return base
	case *ArrayField:
		// Static-count arrays compile element-wise; the repetition shell
		// stays interpreted but runs the compiled element plan.
		sub := Compile(con.sub)
		p.externals = append(p.externals, sub.externals...)
		base.kind = stepFallback
		base.con = Array(con.count, sub)
		return base
	case *AdapterField:
		if con.pure {
			sub := Compile(con.sub)
			p.externals = append(p.externals, sub.externals...)
			base.kind = stepFallback
			base.con = Adapt(sub, con.decode, con.encode)
			return base
		}
		return p.fallbackStep(m)
	default:
		return p.fallbackStep(m)
	}
}

func (p *Program) fallbackStep(m Member) step {
	name := fmt.Sprintf("%T", m.Con)
	if ext, ok := m.Con.(external); ok {
		name = ext.codecName()
	}
	p.externals = append(p.externals, name)
	return step{
		kind: stepFallback, name: m.Name, embed: m.Embed,
		optional: m.Optional, def: m.Default, con: m.Con,
	}
}

// ConstSize reports the program's size when it is the same for every
// value.
func (p *Program) ConstSize() (int, bool) {
	if p.constSize < 0 {
		return 0, false
	}
	return p.constSize, true
}

// Externals lists the leaf encodings the program could not specialize
// and runs interpreted. Callers embedding compiled programs use this to
// audit what a plan actually depends on.
func (p *Program) Externals() []string {
	out := make([]string, len(p.externals))
	copy(out, p.externals)
	return out
}

func (p *Program) Parse(r *Reader, ctx Ctx) (any, error) {
	if p.whole {
		return p.parseStep(p.steps[0], r, ctx)
	}
	child := ctx.Child(r.Count())
	result := NewContainer()
	for _, s := range p.steps {
		child.setField(s.name)
		v, err := p.parseStep(s, r, child)
		if err != nil {
			return nil, withPath(err, s.segment())
		}
		switch {
		case s.embed:
			inner, ok := v.(*Container)
			if !ok {
				return nil, withPath(newError(ErrNamedTuple,
					"embedded member produced %T, needs a Container", v), s.segment())
			}
			if err := result.merge(inner); err != nil {
				return nil, withPath(err, s.segment())
			}
			for _, k := range inner.Keys() {
				mv, _ := inner.Get(k)
				child.Set(k, mv)
			}
		case s.name != "":
			result.Set(s.name, v)
			child.Set(s.name, v)
		}
	}
	return result, nil
}

func (p *Program) parseStep(s step, r *Reader, ctx Ctx) (any, error) {
	switch s.kind {
	case stepInt:
		buf, err := r.ReadFull(s.intf.size)
		if err != nil {
			return nil, err
		}
		return s.intf.decode(buf), nil
	case stepBytes:
		return r.ReadFull(s.width)
	case stepConst:
		buf, err := r.ReadFull(len(s.data))
		if err != nil {
			return nil, err
		}
		if !constEqual(buf, s.data) {
			return nil, newError(ErrConst, "expected %v, parsed %v", s.data, buf)
		}
		return buf, nil
	case stepPadding:
		return s.pad.Parse(r, ctx)
	default:
		return s.con.Parse(r, ctx)
	}
}

func (p *Program) Build(v any, w *Writer, ctx Ctx) (int, error) {
	if p.whole {
		return p.buildWhole(p.steps[0], v, w, ctx)
	}
	container, ok := v.(*Container)
	if !ok {
		return 0, newError(ErrNamedTuple, "struct builds from a Container, got %T", v)
	}
	return p.buildSteps(container, w, ctx.Child(w.Count()))
}

// buildEmbedded runs the step plan in the enclosing frame, mirroring
// the interpreted embedding splice.
func (p *Program) buildEmbedded(container *Container, w *Writer, ctx Ctx) (int, error) {
	if p.whole {
		return buildEmbeddedMember(p.src, container, w, ctx)
	}
	return p.buildSteps(container, w, ctx)
}

func (p *Program) buildSteps(container *Container, w *Writer, child Ctx) (int, error) {
	total := 0
	for _, s := range p.steps {
		child.setField(s.name)
		n, err := p.buildStep(s, container, child, w)
		total += n
		if err != nil {
			return total, withPath(err, s.segment())
		}
	}
	return total, nil
}

// buildWhole is the value-in, bytes-out path of a single-step program:
// no container, no naming, same semantics as the source node.
func (p *Program) buildWhole(s step, v any, w *Writer, ctx Ctx) (int, error) {
	switch s.kind {
	case stepInt:
		return p.packInt(s, v, w)
	case stepBytes:
		return p.packBytes(s, v, w)
	case stepConst:
		return w.WriteFull(s.data)
	case stepPadding:
		return s.pad.Build(nil, w, ctx)
	default:
		return s.con.Build(v, w, ctx)
	}
}

func (p *Program) buildStep(s step, container *Container, child Ctx, w *Writer) (int, error) {
	switch s.kind {
	case stepConst:
		if s.name != "" {
			child.Set(s.name, s.data)
		}
		return w.WriteFull(s.data)
	case stepPadding:
		return s.pad.Build(nil, w, child)
	}
	if s.embed {
		return buildEmbeddedMember(s.con, container, w, child)
	}
	if s.kind == stepFallback {
		if cv, ok := s.con.(contextValuer); ok {
			val, err := cv.valueForContext(child, w)
			if err != nil {
				return 0, err
			}
			if s.name != "" {
				child.Set(s.name, val)
			}
			return s.con.Build(val, w, child)
		}
		if _, ok := s.con.(derived); ok || s.name == "" {
			return s.con.Build(nil, w, child)
		}
	}
	val, ok := container.Get(s.name)
	if !ok {
		if !s.optional {
			return 0, newError(ErrMissingField, "value has no entry %q", s.name)
		}
		val = s.def
	}
	child.Set(s.name, val)
	switch s.kind {
	case stepInt:
		return p.packInt(s, val, w)
	case stepBytes:
		return p.packBytes(s, val, w)
	default:
		return s.con.Build(val, w, child)
	}
}

func (p *Program) packInt(s step, v any, w *Writer) (int, error) {
	u, err := s.intf.pack(v)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, s.intf.size)
	s.intf.store(buf, u)
	return w.WriteFull(buf)
}

func (p *Program) packBytes(s step, v any, w *Writer) (int, error) {
	b, err := valueBytes(v)
	if err != nil {
		return 0, err
	}
	if len(b) != s.width {
		return 0, newError(ErrFormatField, "expected %d bytes, value has %d", s.width, len(b))
	}
	return w.WriteFull(b)
}

func (p *Program) Sizeof(ctx Ctx) (int, error) {
	if p.constSize >= 0 {
		return p.constSize, nil
	}
	return p.src.Sizeof(ctx)
}

// VerifyProgram runs every sample through both the program and the
// tree it was compiled from, in both directions, and reports the first
// divergence. Each parseable sample is rebuilt from its parsed value
// by both sides and the encodings compared byte for byte. Callers run
// this over a corpus before trusting a plan in production.
func VerifyProgram(p *Program, samples [][]byte) error {
	for i, sample := range samples {
		want, wantErr := ParseBytes(p.src, sample)
		got, gotErr := ParseBytes(p, sample)
		if (wantErr == nil) != (gotErr == nil) {
			return newError(ErrCheck, "sample %d: interpreted err=%v, compiled err=%v", i, wantErr, gotErr)
		}
		if wantErr != nil {
			continue
		}
		if !sameValue(want, got) {
			return newError(ErrCheck, "sample %d: interpreted %v, compiled %v", i, want, got)
		}
		wantEnc, wantErr := BuildBytes(p.src, want)
		gotEnc, gotErr := BuildBytes(p, got)
		if (wantErr == nil) != (gotErr == nil) {
			return newError(ErrCheck, "sample %d: interpreted build err=%v, compiled build err=%v", i, wantErr, gotErr)
		}
		if wantErr != nil {
			continue
		}
		if !bytes.Equal(wantEnc, gotEnc) {
			return newError(ErrCheck, "sample %d: interpreted built %v, compiled built %v", i, wantEnc, gotEnc)
		}
	}
	return nil
}

func sameValue(a, b any) bool {
	ac, aok := a.(*Container)
	bc, bok := b.(*Container)
	if aok && bok {
		if !reflect.DeepEqual(ac.Keys(), bc.Keys()) {
			return false
		}
		for _, k := range ac.Keys() {
			av, _ := ac.Get(k)
			bv, _ := bc.Get(k)
			if !sameValue(av, bv) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
