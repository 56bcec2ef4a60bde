package slh

import (
	"fmt"
	"strings"
)

// ============================================================
// Permutation — channel rewiring
// ============================================================

// Permutation maps channel i to channel p[i]. It is always a bijection
// on 0..n-1; NewPermutation rejects anything else.
type Permutation []int

func NewPermutation(image ...int) (Permutation, error) {
	seen := make([]bool, len(image))
	for _, v := range image {
		if v < 0 || v >= len(image) || seen[v] {
			return nil, fmt.Errorf("%w: %v is not a bijection on 0..%d",
				ErrInvalidPermutation, image, len(image)-1)
		}
		seen[v] = true
	}
	return Permutation(append([]int(nil), image...)), nil
}

func IdentityPermutation(n int) Permutation {
	p := make(Permutation, n)
	for i := range p {
		p[i] = i
	}
	return p
}

func (p Permutation) IsIdentity() bool {
	for i, v := range p {
		if v != i {
			return false
		}
	}
	return true
}

// Then composes: applying p, then q. (p.Then(q))[i] == q[p[i]].
func (p Permutation) Then(q Permutation) Permutation {
	if len(p) != len(q) {
		panic("slh: composing permutations of different sizes")
	}
	out := make(Permutation, len(p))
	for i, v := range p {
		out[i] = q[v]
	}
	return out
}

func (p Permutation) Inverse() Permutation {
	out := make(Permutation, len(p))
	for i, v := range p {
		out[v] = i
	}
	return out
}

func (p Permutation) Equal(q Permutation) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

func (p Permutation) String() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// blockDecompose tests whether p respects the block structure given by
// sizes: every block's image must be a contiguous run of the same
// length. On success it returns the block-level permutation (block b
// moves to block position blockPerm[b]) and the permutation acting
// inside each block.
func blockDecompose(p Permutation, sizes []int) (blockPerm Permutation, inner []Permutation, ok bool) {
	offsets := make([]int, len(sizes))
	total := 0
	for b, n := range sizes {
		offsets[b] = total
		total += n
	}
	if total != len(p) {
		return nil, nil, false
	}
	mins := make([]int, len(sizes))
	inner = make([]Permutation, len(sizes))
	for b, n := range sizes {
		min := len(p)
		for t := 0; t < n; t++ {
			if v := p[offsets[b]+t]; v < min {
				min = v
			}
		}
		img := make(Permutation, n)
		for t := 0; t < n; t++ {
			v := p[offsets[b]+t] - min
			if v < 0 || v >= n {
				return nil, nil, false
			}
			img[t] = v
		}
		mins[b] = min
		inner[b] = img
	}
	// Ranks of the block starting points give the block permutation.
	blockPerm = make(Permutation, len(sizes))
	for b := range sizes {
		rank := 0
		for c := range sizes {
			if mins[c] < mins[b] {
				rank++
			}
		}
		blockPerm[b] = rank
	}
	// The runs must tile 0..n-1 exactly.
	covered := 0
	order := blockPerm.Inverse()
	for pos := range sizes {
		b := order[pos]
		if mins[b] != covered {
			return nil, nil, false
		}
		covered += sizes[b]
	}
	return blockPerm, inner, true
}

// liftBlockPerm expands a block-level permutation to channel level.
func liftBlockPerm(blockPerm Permutation, sizes []int) Permutation {
	inOffsets := make([]int, len(sizes))
	total := 0
	for b, n := range sizes {
		inOffsets[b] = total
		total += n
	}
	outOffsets := make([]int, len(sizes))
	order := blockPerm.Inverse()
	at := 0
	for pos := range sizes {
		b := order[pos]
		outOffsets[b] = at
		at += sizes[b]
	}
	out := make(Permutation, total)
	for b, n := range sizes {
		for t := 0; t < n; t++ {
			out[inOffsets[b]+t] = outOffsets[b] + t
		}
	}
	return out
}

// ============================================================
// Circuit — composition tree
// ============================================================

type Circuit interface {
	ChannelCount() int
	String() string
	circuitType() string
	toJSON() map[string]interface{}
}

// ============================================================
// Component — concrete SLH leaf
// ============================================================

// Component is a concrete n-channel device: scattering matrix S (n×n
// scalar entries), coupling vector L (n operators), and Hamiltonian H.
type Component struct {
	name     string
	channels int
	S        *Matrix
	L        []Op
	H        Op
}

func NewComponent(name string, s *Matrix, l []Op, h Op) (*Component, error) {
	if s.Rows() != s.Cols() {
		return nil, fmt.Errorf("%w: scattering matrix is %dx%d, want square",
			ErrChannelMismatch, s.Rows(), s.Cols())
	}
	if len(l) != s.Rows() {
		return nil, fmt.Errorf("%w: %d coupling operators for %d channels",
			ErrChannelMismatch, len(l), s.Rows())
	}
	var modes []Mode
	for _, op := range l {
		modes = append(modes, op.Modes()...)
	}
	modes = append(modes, h.Modes()...)
	if _, err := unifyModes(modes); err != nil {
		return nil, err
	}
	return &Component{name: name, channels: s.Rows(), S: s, L: append([]Op(nil), l...), H: h}, nil
}

func (c *Component) Name() string        { return c.name }
func (c *Component) ChannelCount() int   { return c.channels }
func (c *Component) String() string      { return c.name }
func (c *Component) circuitType() string { return "component" }

// Scattering, Coupling, and Hamiltonian expose the triple read-only.
func (c *Component) Scattering() *Matrix { return c.S }
func (c *Component) Coupling() []Op      { return append([]Op(nil), c.L...) }
func (c *Component) Hamiltonian() Op     { return c.H }

// Modes returns the deduplicated mode set of the component.
func (c *Component) Modes() ([]Mode, error) {
	var modes []Mode
	for _, op := range c.L {
		modes = append(modes, op.Modes()...)
	}
	modes = append(modes, c.H.Modes()...)
	return unifyModes(modes)
}

// Substitute binds a scalar parameter throughout the triple: every S
// entry and every coefficient inside L and H. The result is a new
// component; symbolic components specialize this way before reduction
// or compilation.
func (c *Component) Substitute(name string, value Expr) *Component {
	l := make([]Op, len(c.L))
	for i, op := range c.L {
		l[i] = op.SubScalar(name, value)
	}
	return &Component{
		name: c.name, channels: c.channels,
		S: c.S.ApplySub(name, value), L: l, H: c.H.SubScalar(name, value),
	}
}

// EqualSLH compares two components entry by entry on their triples,
// ignoring names.
func (c *Component) EqualSLH(o *Component) bool {
	if c.channels != o.channels || !c.S.Equal(o.S) || !c.H.Equal(o.H) {
		return false
	}
	for i := range c.L {
		if !c.L[i].Equal(o.L[i]) {
			return false
		}
	}
	return true
}

func (c *Component) toJSON() map[string]interface{} {
	ls := make([]map[string]interface{}, len(c.L))
	for i, op := range c.L {
		ls[i] = op.toJSON()
	}
	srows := make([][]map[string]interface{}, c.channels)
	for i := 0; i < c.channels; i++ {
		srows[i] = make([]map[string]interface{}, c.channels)
		for j := 0; j < c.channels; j++ {
			srows[i][j] = c.S.Get(i, j).toJSON()
		}
	}
	return map[string]interface{}{
		"type": "component", "name": c.name, "channels": c.channels,
		"S": srows, "L": ls, "H": c.H.toJSON(),
	}
}

// ============================================================
// CircuitSymbol — opaque named placeholder
// ============================================================

// CircuitSymbol is an abstract n-channel device with no concrete
// triple. It participates in structural rewriting but cannot be
// evaluated to SLH form or compiled.
type CircuitSymbol struct {
	name     string
	channels int
}

func NewCircuitSymbol(name string, channels int) (*CircuitSymbol, error) {
	if channels < 1 {
		return nil, fmt.Errorf("%w: symbol %q needs at least one channel",
			ErrChannelMismatch, name)
	}
	return &CircuitSymbol{name: name, channels: channels}, nil
}

func (s *CircuitSymbol) Name() string        { return s.name }
func (s *CircuitSymbol) ChannelCount() int   { return s.channels }
func (s *CircuitSymbol) String() string      { return s.name }
func (s *CircuitSymbol) circuitType() string { return "symbol" }

func (s *CircuitSymbol) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "symbol", "name": s.name, "channels": s.channels}
}

// ============================================================
// SeriesProduct — signal flows through operands in order
// ============================================================

type SeriesProduct struct {
	operands []Circuit
	channels int
}

// Series chains circuits so the first operand sees the input field.
// Every junction must agree on channel count.
func Series(parts ...Circuit) (Circuit, error) {
	flat := make([]Circuit, 0, len(parts))
	for _, p := range parts {
		if inner, ok := p.(*SeriesProduct); ok {
			flat = append(flat, inner.operands...)
		} else {
			flat = append(flat, p)
		}
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("%w: empty series", ErrChannelMismatch)
	}
	n := flat[0].ChannelCount()
	for _, p := range flat[1:] {
		if p.ChannelCount() != n {
			return nil, fmt.Errorf("%w: series of %d-channel and %d-channel circuits",
				ErrChannelMismatch, n, p.ChannelCount())
		}
	}
	if len(flat) == 1 {
		return flat[0], nil
	}
	return &SeriesProduct{operands: flat, channels: n}, nil
}

func (s *SeriesProduct) Operands() []Circuit { return s.operands }
func (s *SeriesProduct) ChannelCount() int   { return s.channels }
func (s *SeriesProduct) circuitType() string { return "series" }

func (s *SeriesProduct) String() string {
	parts := make([]string, len(s.operands))
	for i, op := range s.operands {
		parts[i] = op.String()
	}
	return "(" + strings.Join(parts, " >> ") + ")"
}

func (s *SeriesProduct) toJSON() map[string]interface{} {
	ops := make([]map[string]interface{}, len(s.operands))
	for i, op := range s.operands {
		ops[i] = op.toJSON()
	}
	return map[string]interface{}{"type": "series", "operands": ops}
}

// ============================================================
// Concatenation — parallel stacking
// ============================================================

type Concatenation struct {
	operands []Circuit
	channels int
}

func Concat(parts ...Circuit) (Circuit, error) {
	flat := make([]Circuit, 0, len(parts))
	for _, p := range parts {
		if inner, ok := p.(*Concatenation); ok {
			flat = append(flat, inner.operands...)
		} else {
			flat = append(flat, p)
		}
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("%w: empty concatenation", ErrChannelMismatch)
	}
	if len(flat) == 1 {
		return flat[0], nil
	}
	n := 0
	for _, p := range flat {
		n += p.ChannelCount()
	}
	return &Concatenation{operands: flat, channels: n}, nil
}

func (c *Concatenation) Operands() []Circuit { return c.operands }
func (c *Concatenation) ChannelCount() int   { return c.channels }
func (c *Concatenation) circuitType() string { return "concat" }

func (c *Concatenation) blockSizes() []int {
	sizes := make([]int, len(c.operands))
	for i, op := range c.operands {
		sizes[i] = op.ChannelCount()
	}
	return sizes
}

func (c *Concatenation) String() string {
	parts := make([]string, len(c.operands))
	for i, op := range c.operands {
		parts[i] = op.String()
	}
	return "(" + strings.Join(parts, " + ") + ")"
}

func (c *Concatenation) toJSON() map[string]interface{} {
	ops := make([]map[string]interface{}, len(c.operands))
	for i, op := range c.operands {
		ops[i] = op.toJSON()
	}
	return map[string]interface{}{"type": "concat", "operands": ops}
}

// ============================================================
// CircuitPerm — pure channel rewiring
// ============================================================

type CircuitPerm struct{ perm Permutation }

func PermutationCircuit(p Permutation) *CircuitPerm {
	return &CircuitPerm{perm: append(Permutation(nil), p...)}
}

// Permute routes output channel i of c to channel p[i].
func Permute(c Circuit, p Permutation) (Circuit, error) {
	if len(p) != c.ChannelCount() {
		return nil, fmt.Errorf("%w: size %d permutation on %d-channel circuit",
			ErrInvalidPermutation, len(p), c.ChannelCount())
	}
	return Series(c, PermutationCircuit(p))
}

func (p *CircuitPerm) Perm() Permutation   { return p.perm }
func (p *CircuitPerm) ChannelCount() int   { return len(p.perm) }
func (p *CircuitPerm) String() string      { return "Perm" + p.perm.String() }
func (p *CircuitPerm) circuitType() string { return "perm" }

func (p *CircuitPerm) toJSON() map[string]interface{} {
	img := make([]interface{}, len(p.perm))
	for i, v := range p.perm {
		img[i] = v
	}
	return map[string]interface{}{"type": "perm", "image": img}
}

// ============================================================
// Feedback — close an output back onto an input
// ============================================================

type Feedback struct {
	inner Circuit
	out   int
	in    int
}

// FeedbackOf loops output channel out of c into its own input channel
// in, eliminating one channel.
func FeedbackOf(c Circuit, out, in int) (Circuit, error) {
	n := c.ChannelCount()
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 channels, have %d",
			ErrInvalidFeedbackArity, n)
	}
	if out < 0 || out >= n || in < 0 || in >= n {
		return nil, fmt.Errorf("%w: ports (%d,%d) out of range for %d channels",
			ErrInvalidFeedbackArity, out, in, n)
	}
	return &Feedback{inner: c, out: out, in: in}, nil
}

func (f *Feedback) Inner() Circuit      { return f.inner }
func (f *Feedback) Ports() (out, in int) { return f.out, f.in }
func (f *Feedback) ChannelCount() int   { return f.inner.ChannelCount() - 1 }
func (f *Feedback) circuitType() string { return "feedback" }

func (f *Feedback) String() string {
	return fmt.Sprintf("[%s]_{%d->%d}", f.inner.String(), f.out, f.in)
}

func (f *Feedback) toJSON() map[string]interface{} {
	return map[string]interface{}{
		"type": "feedback", "inner": f.inner.toJSON(), "out": f.out, "in": f.in,
	}
}
