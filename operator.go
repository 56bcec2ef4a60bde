package slh

import (
	"fmt"
	"sort"
	"strings"
)

// ============================================================
// Mode — bosonic mode identity
// ============================================================

// Mode identifies a bosonic degree of freedom by label. Two operators
// act on the same mode exactly when their labels are equal. Dim is an
// optional Fock truncation dimension; zero means unspecified and is
// resolved at compile time.
type Mode struct {
	Label string
	Dim   int
}

func M(label string) Mode             { return Mode{Label: label} }
func NewMode(label string, dim int) Mode { return Mode{Label: label, Dim: dim} }

func (m Mode) String() string { return m.Label }

// unifyModes merges mode lists by label. Labels carrying conflicting
// nonzero dimensions cannot describe the same space.
func unifyModes(modes []Mode) ([]Mode, error) {
	byLabel := map[string]Mode{}
	for _, m := range modes {
		prev, seen := byLabel[m.Label]
		if !seen {
			byLabel[m.Label] = m
			continue
		}
		if prev.Dim != 0 && m.Dim != 0 && prev.Dim != m.Dim {
			return nil, fmt.Errorf("%w: mode %q has dimensions %d and %d",
				ErrIncompatibleModeSpace, m.Label, prev.Dim, m.Dim)
		}
		if prev.Dim == 0 {
			byLabel[m.Label] = m
		}
	}
	out := make([]Mode, 0, len(byLabel))
	for _, m := range byLabel {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// ============================================================
// Op — operator expression interface
// ============================================================

type Op interface {
	String() string
	LaTeX() string
	Dag() Op
	Modes() []Mode
	SubScalar(name string, value Expr) Op
	Equal(other Op) bool
	opType() string
	toJSON() map[string]interface{}
}

// ============================================================
// Identity and Zero
// ============================================================

type identOp struct{}
type zeroOp struct{}

// IdentityOp and ZeroOp are the neutral elements of operator products
// and sums. They are singletons; compare with ==.
var (
	IdentityOp Op = identOp{}
	ZeroOp     Op = zeroOp{}
)

func (identOp) String() string               { return "1" }
func (identOp) LaTeX() string                { return "\\mathbb{1}" }
func (identOp) Dag() Op                      { return IdentityOp }
func (identOp) Modes() []Mode                { return nil }
func (identOp) SubScalar(string, Expr) Op    { return IdentityOp }
func (identOp) Equal(o Op) bool              { _, ok := o.(identOp); return ok }
func (identOp) opType() string               { return "identity" }
func (identOp) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "identity"}
}

func (zeroOp) String() string            { return "0" }
func (zeroOp) LaTeX() string             { return "0" }
func (zeroOp) Dag() Op                   { return ZeroOp }
func (zeroOp) Modes() []Mode             { return nil }
func (zeroOp) SubScalar(string, Expr) Op { return ZeroOp }
func (zeroOp) Equal(o Op) bool           { _, ok := o.(zeroOp); return ok }
func (zeroOp) opType() string            { return "zero" }
func (zeroOp) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "zero"}
}

// ============================================================
// LadderOp — annihilation and creation
// ============================================================

type LadderOp struct {
	mode   Mode
	create bool
}

func Destroy(mode Mode) *LadderOp { return &LadderOp{mode: mode} }
func Create(mode Mode) *LadderOp  { return &LadderOp{mode: mode, create: true} }

func (l *LadderOp) Mode() Mode     { return l.mode }
func (l *LadderOp) IsCreate() bool { return l.create }

func (l *LadderOp) String() string {
	if l.create {
		return "a†(" + l.mode.Label + ")"
	}
	return "a(" + l.mode.Label + ")"
}

func (l *LadderOp) LaTeX() string {
	if l.create {
		return "a_{" + l.mode.Label + "}^\\dagger"
	}
	return "a_{" + l.mode.Label + "}"
}

func (l *LadderOp) Dag() Op                   { return &LadderOp{mode: l.mode, create: !l.create} }
func (l *LadderOp) Modes() []Mode             { return []Mode{l.mode} }
func (l *LadderOp) SubScalar(string, Expr) Op { return l }
func (l *LadderOp) opType() string            { return "ladder" }

func (l *LadderOp) Equal(other Op) bool {
	o, ok := other.(*LadderOp)
	return ok && l.mode.Label == o.mode.Label && l.create == o.create
}

func (l *LadderOp) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "ladder", "mode": l.mode.Label, "create": l.create}
}

// ============================================================
// OpSym — named operator symbol
// ============================================================

type OpSym struct {
	name      string
	mode      Mode
	hermitian bool
	dagger    bool
}

func OperatorSymbol(name string, mode Mode) *OpSym { return &OpSym{name: name, mode: mode} }
func HermitianSymbol(name string, mode Mode) *OpSym {
	return &OpSym{name: name, mode: mode, hermitian: true}
}

func (s *OpSym) Name() string { return s.name }
func (s *OpSym) Mode() Mode   { return s.mode }

func (s *OpSym) String() string {
	out := s.name + "(" + s.mode.Label + ")"
	if s.dagger {
		out += "†"
	}
	return out
}

func (s *OpSym) LaTeX() string {
	out := "\\hat{" + s.name + "}_{" + s.mode.Label + "}"
	if s.dagger {
		out += "^\\dagger"
	}
	return out
}

func (s *OpSym) Dag() Op {
	if s.hermitian {
		return s
	}
	return &OpSym{name: s.name, mode: s.mode, dagger: !s.dagger}
}

func (s *OpSym) Modes() []Mode             { return []Mode{s.mode} }
func (s *OpSym) SubScalar(string, Expr) Op { return s }
func (s *OpSym) opType() string            { return "opsym" }

func (s *OpSym) Equal(other Op) bool {
	o, ok := other.(*OpSym)
	return ok && s.name == o.name && s.mode.Label == o.mode.Label &&
		s.hermitian == o.hermitian && s.dagger == o.dagger
}

func (s *OpSym) toJSON() map[string]interface{} {
	return map[string]interface{}{
		"type": "opsym", "name": s.name, "mode": s.mode.Label,
		"hermitian": s.hermitian, "dagger": s.dagger,
	}
}

// ============================================================
// OpAdd — operator sum
// ============================================================

type OpAdd struct{ terms []Op }

func (a *OpAdd) Terms() []Op { return a.terms }

// AddOps returns the simplified sum. Like terms merge: scalar
// multiples of an equal operator part collect into one term with the
// coefficients summed through the scalar kernel.
func AddOps(ops ...Op) Op {
	flat := make([]Op, 0, len(ops))
	for _, op := range ops {
		if inner, ok := op.(*OpAdd); ok {
			flat = append(flat, inner.terms...)
		} else if _, ok := op.(zeroOp); !ok {
			flat = append(flat, op)
		}
	}
	coeffs := map[string]Expr{}
	bases := map[string]Op{}
	for _, t := range flat {
		c, base := splitOpCoeff(t)
		key := base.String()
		if _, seen := coeffs[key]; !seen {
			coeffs[key] = N(0)
			bases[key] = base
		}
		coeffs[key] = AddOf(coeffs[key], c)
	}
	keys := make([]string, 0, len(coeffs))
	for k := range coeffs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	result := []Op{}
	for _, key := range keys {
		c := coeffs[key]
		if n, ok := c.(*Num); ok && n.IsZero() {
			continue
		}
		result = append(result, Scale(c, bases[key]))
	}
	if len(result) == 0 {
		return ZeroOp
	}
	if len(result) == 1 {
		return result[0]
	}
	return &OpAdd{terms: result}
}

func splitOpCoeff(op Op) (Expr, Op) {
	if s, ok := op.(*ScaledOp); ok {
		return s.coeff, s.op
	}
	return N(1), op
}

func (a *OpAdd) String() string {
	parts := make([]string, len(a.terms))
	for i, t := range a.terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " + ")
}

func (a *OpAdd) LaTeX() string {
	parts := make([]string, len(a.terms))
	for i, t := range a.terms {
		parts[i] = t.LaTeX()
	}
	return strings.Join(parts, " + ")
}

func (a *OpAdd) Dag() Op {
	ds := make([]Op, len(a.terms))
	for i, t := range a.terms {
		ds[i] = t.Dag()
	}
	return AddOps(ds...)
}

func (a *OpAdd) Modes() []Mode {
	var out []Mode
	for _, t := range a.terms {
		out = append(out, t.Modes()...)
	}
	return out
}

func (a *OpAdd) SubScalar(name string, value Expr) Op {
	ts := make([]Op, len(a.terms))
	for i, t := range a.terms {
		ts[i] = t.SubScalar(name, value)
	}
	return AddOps(ts...)
}

func (a *OpAdd) Equal(other Op) bool {
	o, ok := other.(*OpAdd)
	if !ok || len(a.terms) != len(o.terms) {
		return false
	}
	for i := range a.terms {
		if !a.terms[i].Equal(o.terms[i]) {
			return false
		}
	}
	return true
}

func (a *OpAdd) opType() string { return "opadd" }
func (a *OpAdd) toJSON() map[string]interface{} {
	ts := make([]map[string]interface{}, len(a.terms))
	for i, t := range a.terms {
		ts[i] = t.toJSON()
	}
	return map[string]interface{}{"type": "opadd", "terms": ts}
}

// ============================================================
// OpMul — normal-ordered operator product
// ============================================================

type OpMul struct{ factors []Op }

func (m *OpMul) Factors() []Op { return m.factors }

// MulOps returns the simplified, normal-ordered product. Products
// distribute over sums; scalar coefficients hoist out; factors on
// disjoint modes commute into canonical order; a(q)·a†(q) rewrites to
// a†(q)·a(q) + 1.
func MulOps(ops ...Op) Op {
	coeff := Expr(N(1))
	atoms := []Op{}
	for _, op := range ops {
		c, base := splitOpCoeff(op)
		coeff = MulOf(coeff, c)
		switch v := base.(type) {
		case zeroOp:
			return ZeroOp
		case identOp:
			// neutral
		case *OpMul:
			atoms = append(atoms, v.factors...)
		default:
			atoms = append(atoms, base)
		}
	}
	if n, ok := coeff.(*Num); ok && n.IsZero() {
		return ZeroOp
	}
	// Distribute over the first sum factor, then recurse.
	for i, f := range atoms {
		if sum, ok := f.(*OpAdd); ok {
			terms := make([]Op, len(sum.terms))
			for j, t := range sum.terms {
				expanded := make([]Op, 0, len(atoms))
				expanded = append(expanded, atoms[:i]...)
				expanded = append(expanded, t)
				expanded = append(expanded, atoms[i+1:]...)
				terms[j] = MulOps(expanded...)
			}
			return Scale(coeff, AddOps(terms...))
		}
	}
	return Scale(coeff, normalOrder(atoms))
}

// atomOrderKey orders commuting atoms: by mode label first so factors
// group per mode, creators before annihilators within the printout.
func atomOrderKey(op Op) string {
	switch v := op.(type) {
	case *LadderOp:
		kind := "2"
		if v.create {
			kind = "1"
		}
		return v.mode.Label + "/" + kind
	case *OpSym:
		return v.mode.Label + "/0/" + v.String()
	}
	return "/" + op.String()
}

func sameMode(a, b Op) bool {
	am, bm := a.Modes(), b.Modes()
	if len(am) == 0 || len(bm) == 0 {
		return false
	}
	return am[0].Label == bm[0].Label
}

// normalOrder sorts a flat atom product. Atoms on distinct modes
// commute freely; on a shared mode only the canonical commutation
// relation a·a† = a†·a + 1 may reorder, which splits the product into
// a sum. Each split strictly lowers the number of annihilators to the
// left of creators, so the recursion terminates.
func normalOrder(atoms []Op) Op {
	fs := append([]Op(nil), atoms...)
	i := 0
	for i < len(fs)-1 {
		x, y := fs[i], fs[i+1]
		if !sameMode(x, y) {
			if atomOrderKey(y) < atomOrderKey(x) {
				fs[i], fs[i+1] = y, x
				if i > 0 {
					i--
				}
				continue
			}
			i++
			continue
		}
		lx, okx := x.(*LadderOp)
		ly, oky := y.(*LadderOp)
		if okx && oky && !lx.create && ly.create {
			ordered := make([]Op, 0, len(fs))
			ordered = append(ordered, fs[:i]...)
			ordered = append(ordered, ly, lx)
			ordered = append(ordered, fs[i+2:]...)
			dropped := make([]Op, 0, len(fs)-2)
			dropped = append(dropped, fs[:i]...)
			dropped = append(dropped, fs[i+2:]...)
			return AddOps(normalOrder(ordered), normalOrder(dropped))
		}
		i++
	}
	if len(fs) == 0 {
		return IdentityOp
	}
	if len(fs) == 1 {
		return fs[0]
	}
	return &OpMul{factors: fs}
}

func (m *OpMul) String() string {
	parts := make([]string, len(m.factors))
	for i, f := range m.factors {
		parts[i] = f.String()
	}
	return strings.Join(parts, "*")
}

func (m *OpMul) LaTeX() string {
	parts := make([]string, len(m.factors))
	for i, f := range m.factors {
		parts[i] = f.LaTeX()
	}
	return strings.Join(parts, " ")
}

func (m *OpMul) Dag() Op {
	ds := make([]Op, len(m.factors))
	for i, f := range m.factors {
		ds[len(m.factors)-1-i] = f.Dag()
	}
	return MulOps(ds...)
}

func (m *OpMul) Modes() []Mode {
	var out []Mode
	for _, f := range m.factors {
		out = append(out, f.Modes()...)
	}
	return out
}

func (m *OpMul) SubScalar(string, Expr) Op { return m }

func (m *OpMul) Equal(other Op) bool {
	o, ok := other.(*OpMul)
	if !ok || len(m.factors) != len(o.factors) {
		return false
	}
	for i := range m.factors {
		if !m.factors[i].Equal(o.factors[i]) {
			return false
		}
	}
	return true
}

func (m *OpMul) opType() string { return "opmul" }
func (m *OpMul) toJSON() map[string]interface{} {
	fs := make([]map[string]interface{}, len(m.factors))
	for i, f := range m.factors {
		fs[i] = f.toJSON()
	}
	return map[string]interface{}{"type": "opmul", "factors": fs}
}

// ============================================================
// ScaledOp — scalar multiple of an operator
// ============================================================

type ScaledOp struct {
	coeff Expr
	op    Op
}

func (s *ScaledOp) Coeff() Expr { return s.coeff }
func (s *ScaledOp) Term() Op    { return s.op }

// Scale returns coeff·op, folding nested scalings and distributing
// over sums so scaled forms stay canonical.
func Scale(coeff Expr, op Op) Op {
	c := coeff.Simplify()
	if n, ok := c.(*Num); ok {
		if n.IsZero() {
			return ZeroOp
		}
		if n.IsOne() {
			return op
		}
	}
	switch v := op.(type) {
	case zeroOp:
		return ZeroOp
	case *ScaledOp:
		return Scale(MulOf(c, v.coeff), v.op)
	case *OpAdd:
		ts := make([]Op, len(v.terms))
		for i, t := range v.terms {
			ts[i] = Scale(c, t)
		}
		return AddOps(ts...)
	}
	return &ScaledOp{coeff: c, op: op}
}

func (s *ScaledOp) String() string {
	cs := s.coeff.String()
	if _, isAdd := s.coeff.(*Add); isAdd {
		cs = "(" + cs + ")"
	}
	return cs + "*" + s.op.String()
}

func (s *ScaledOp) LaTeX() string {
	cs := s.coeff.LaTeX()
	if _, isAdd := s.coeff.(*Add); isAdd {
		cs = "\\left(" + cs + "\\right)"
	}
	return cs + " " + s.op.LaTeX()
}

func (s *ScaledOp) Dag() Op { return Scale(ConjOf(s.coeff), s.op.Dag()) }

func (s *ScaledOp) Modes() []Mode { return s.op.Modes() }

func (s *ScaledOp) SubScalar(name string, value Expr) Op {
	return Scale(s.coeff.Sub(name, value), s.op.SubScalar(name, value))
}

func (s *ScaledOp) Equal(other Op) bool {
	o, ok := other.(*ScaledOp)
	return ok && s.coeff.Equal(o.coeff) && s.op.Equal(o.op)
}

func (s *ScaledOp) opType() string { return "scaled" }
func (s *ScaledOp) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "scaled", "coeff": s.coeff.toJSON(), "op": s.op.toJSON()}
}

// ============================================================
// Operator helpers
// ============================================================

// NumberOp returns a†(m)·a(m), the photon number observable of a mode.
func NumberOp(mode Mode) Op { return MulOps(Create(mode), Destroy(mode)) }

// Commutator returns A·B - B·A in normal-ordered form.
func Commutator(a, b Op) Op {
	return AddOps(MulOps(a, b), Scale(N(-1), MulOps(b, a)))
}

// ImOp returns the anti-Hermitian part (X - X†)/(2i) as an operator.
// It is the operator analogue of taking an imaginary part and shows up
// in every interaction Hamiltonian produced by composition.
func ImOp(x Op) Op {
	diff := AddOps(x, Scale(N(-1), x.Dag()))
	return Scale(Imag(-1, 2), diff)
}

// OpModes returns the deduplicated, sorted mode set of an operator.
func OpModes(op Op) ([]Mode, error) { return unifyModes(op.Modes()) }

// MulOpsChecked is MulOps with eager mode validation: a product whose
// factors carry the same mode label with conflicting dimensions fails
// with ErrIncompatibleModeSpace instead of deferring the conflict to
// component construction or compilation.
func MulOpsChecked(ops ...Op) (Op, error) {
	if err := checkModes(ops); err != nil {
		return nil, err
	}
	return MulOps(ops...), nil
}

// AddOpsChecked is AddOps with the same eager mode validation.
func AddOpsChecked(ops ...Op) (Op, error) {
	if err := checkModes(ops); err != nil {
		return nil, err
	}
	return AddOps(ops...), nil
}

func checkModes(ops []Op) error {
	var modes []Mode
	for _, op := range ops {
		modes = append(modes, op.Modes()...)
	}
	_, err := unifyModes(modes)
	return err
}
