package slh

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// ============================================================
// Compiled — numeric SLH matrices
// ============================================================

// Compiled is the numeric form of a circuit: the scattering matrix,
// one coupling matrix per channel, and the Hamiltonian, all realized
// on the truncated Fock space that is the ordered tensor product of
// Modes with per-mode dimensions Dims. This struct is the whole
// hand-off to an external integrator; nothing here evolves in time.
type Compiled struct {
	S        *mat.CDense
	L        []*mat.CDense
	H        *mat.CDense
	Channels int
	// ChannelNames maps each channel index to "<component>.<index>".
	ChannelNames []string
	Modes        []Mode
	Dims         []int
}

// Compile reduces the circuit to a single triple, binds every free
// scalar parameter, and realizes the triple numerically. Fock
// truncation dimensions come from the mode itself when set, otherwise
// from dims by label.
func Compile(c Circuit, bind Bindings, dims map[string]int) (*Compiled, error) {
	comp, err := ToSLH(c)
	if err != nil {
		return nil, err
	}
	modes, err := comp.Modes()
	if err != nil {
		return nil, err
	}

	modeDims := make([]int, len(modes))
	for i, m := range modes {
		d := m.Dim
		if d == 0 {
			d = dims[m.Label]
		}
		if d <= 0 {
			return nil, fmt.Errorf("%w: no Fock dimension for mode %q",
				ErrUnboundParameter, m.Label)
		}
		modeDims[i] = d
	}

	n := comp.ChannelCount()
	s := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v, err := evalScalar(comp.S.Get(i, j), bind)
			if err != nil {
				return nil, err
			}
			s.Set(i, j, v)
		}
	}

	l := make([]*mat.CDense, n)
	for i, op := range comp.L {
		m, err := opMatrix(op, modes, modeDims, bind)
		if err != nil {
			return nil, err
		}
		l[i] = m
	}

	h, err := opMatrix(comp.H, modes, modeDims, bind)
	if err != nil {
		return nil, err
	}

	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s.%d", comp.name, i)
	}

	return &Compiled{
		S: s, L: l, H: h,
		Channels: n, ChannelNames: names,
		Modes: modes, Dims: modeDims,
	}, nil
}

func evalScalar(e Expr, bind Bindings) (complex128, error) {
	v, err := e.Eval(bind)
	if errors.Is(err, errDivZero) {
		return 0, fmt.Errorf("%w: feedback denominator vanished at the given bindings",
			ErrSingularFeedback)
	}
	return v, err
}

// ============================================================
// Operator realization
// ============================================================

func opMatrix(op Op, modes []Mode, dims []int, bind Bindings) (*mat.CDense, error) {
	total := 1
	for _, d := range dims {
		total *= d
	}
	switch v := op.(type) {
	case zeroOp:
		return mat.NewCDense(total, total, nil), nil
	case identOp:
		return ceye(total), nil
	case *LadderOp:
		return ladderMatrix(v, modes, dims)
	case *OpSym:
		return nil, fmt.Errorf("%w: operator symbol %q has no numeric realization",
			ErrUnboundParameter, v.String())
	case *ScaledOp:
		c, err := evalScalar(v.coeff, bind)
		if err != nil {
			return nil, err
		}
		m, err := opMatrix(v.op, modes, dims, bind)
		if err != nil {
			return nil, err
		}
		cscale(m, c)
		return m, nil
	case *OpAdd:
		acc := mat.NewCDense(total, total, nil)
		for _, t := range v.terms {
			m, err := opMatrix(t, modes, dims, bind)
			if err != nil {
				return nil, err
			}
			caddInto(acc, m)
		}
		return acc, nil
	case *OpMul:
		acc := ceye(total)
		for _, f := range v.factors {
			m, err := opMatrix(f, modes, dims, bind)
			if err != nil {
				return nil, err
			}
			acc = cmul(acc, m)
		}
		return acc, nil
	}
	return nil, fmt.Errorf("slh: unknown operator node %T", op)
}

// ladderMatrix embeds a single-mode ladder operator into the full
// tensor product by Kronecker products with identities.
func ladderMatrix(l *LadderOp, modes []Mode, dims []int) (*mat.CDense, error) {
	slot := -1
	for i, m := range modes {
		if m.Label == l.mode.Label {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, fmt.Errorf("slh: mode %q not in compiled mode set", l.mode.Label)
	}
	var acc *mat.CDense
	for i, d := range dims {
		var factor *mat.CDense
		if i == slot {
			factor = destroyMatrix(d)
			if l.create {
				factor = cdagger(factor)
			}
		} else {
			factor = ceye(d)
		}
		if acc == nil {
			acc = factor
		} else {
			acc = ckron(acc, factor)
		}
	}
	return acc, nil
}

// destroyMatrix is the truncated annihilation operator: a|n⟩ = √n|n-1⟩.
func destroyMatrix(d int) *mat.CDense {
	m := mat.NewCDense(d, d, nil)
	for k := 1; k < d; k++ {
		m.Set(k-1, k, complex(math.Sqrt(float64(k)), 0))
	}
	return m
}

// ============================================================
// Complex dense helpers
// ============================================================

func ceye(n int) *mat.CDense {
	m := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func caddInto(dst, src *mat.CDense) {
	r, c := dst.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst.Set(i, j, dst.At(i, j)+src.At(i, j))
		}
	}
}

func cscale(m *mat.CDense, v complex128) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, v*m.At(i, j))
		}
	}
}

func cmul(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != br {
		panic("slh: complex matrix dimensions do not match for multiplication")
	}
	out := mat.NewCDense(ar, bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < bc; j++ {
			var sum complex128
			for k := 0; k < ac; k++ {
				sum += a.At(i, k) * b.At(k, j)
			}
			out.Set(i, j, sum)
		}
	}
	return out
}

func cdagger(m *mat.CDense) *mat.CDense {
	r, c := m.Dims()
	out := mat.NewCDense(c, r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(j, i, cmplx.Conj(m.At(i, j)))
		}
	}
	return out
}

func ckron(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	out := mat.NewCDense(ar*br, ac*bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			v := a.At(i, j)
			if v == 0 {
				continue
			}
			for k := 0; k < br; k++ {
				for l := 0; l < bc; l++ {
					out.Set(i*br+k, j*bc+l, v*b.At(k, l))
				}
			}
		}
	}
	return out
}

// UnitarityDefect measures how far S is from unitary: the largest
// entry magnitude of S·S† - I. Compiled scattering matrices of
// physical circuits should sit at numeric zero.
func UnitarityDefect(s *mat.CDense) float64 {
	prod := cmul(s, cdagger(s))
	n, _ := prod.Dims()
	defect := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			want := complex128(0)
			if i == j {
				want = 1
			}
			if d := cmplx.Abs(prod.At(i, j) - want); d > defect {
				defect = d
			}
		}
	}
	return defect
}
