package slh

import "fmt"

// ============================================================
// Component Library
// ============================================================
//
// Ready-made leaves. All constructors build shapes NewComponent
// accepts by construction, so they return the component directly.

func mustComponent(name string, s *Matrix, l []Op, h Op) *Component {
	c, err := NewComponent(name, s, l, h)
	if err != nil {
		panic("slh: component library produced an invalid triple: " + err.Error())
	}
	return c
}

// Beamsplitter mixes two channels with reflectivity r. The reflected
// amplitude carries the i phase so the device is unitary for any real
// 0 <= r <= 1:
//
//	S = [ ir  t ]      t = sqrt(1 - r²)
//	    [ t  ir ]
func Beamsplitter(r Expr) *Component {
	t := SqrtOf(SubOf(N(1), PowOf(r, N(2))))
	ir := MulOf(I(), r)
	s := MatrixFromSlice(2, 2, []Expr{
		ir, t,
		t, ir,
	})
	name := fmt.Sprintf("BS(%s)", r.String())
	return mustComponent(name, s, []Op{ZeroOp, ZeroOp}, ZeroOp)
}

// PhaseShifter multiplies one channel by e^(i·phi).
func PhaseShifter(phi Expr) *Component {
	s := MatrixFromSlice(1, 1, []Expr{ExpOf(MulOf(I(), phi))})
	name := fmt.Sprintf("Phase(%s)", phi.String())
	return mustComponent(name, s, []Op{ZeroOp}, ZeroOp)
}

// Cavity is a single-sided cavity mode: decay rate kappa, detuning
// delta.
//
//	S = [1]   L = [sqrt(kappa)·a]   H = delta·a†a
func Cavity(label string, kappa, delta Expr) *Component {
	mode := M(label)
	l := []Op{Scale(SqrtOf(kappa), Destroy(mode))}
	h := Scale(delta, NumberOp(mode))
	name := fmt.Sprintf("Cavity(%s)", label)
	return mustComponent(name, Identity(1), l, h)
}

// CIdentity is the n-channel pass-through wire.
func CIdentity(n int) *Component {
	l := make([]Op, n)
	for i := range l {
		l[i] = ZeroOp
	}
	name := fmt.Sprintf("cid(%d)", n)
	return mustComponent(name, Identity(n), l, ZeroOp)
}

// Displace is a coherent drive on one channel: W(alpha) with
// S = [1], L = [alpha], H = 0, where the coupling is the scalar alpha
// times the identity operator.
func Displace(alpha Expr) *Component {
	l := []Op{Scale(alpha, IdentityOp)}
	name := fmt.Sprintf("W(%s)", alpha.String())
	return mustComponent(name, Identity(1), l, ZeroOp)
}
