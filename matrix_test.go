package slh_test

import (
	"testing"

	slh "github.com/njchilds90/go-slh"
)

func TestMatrix_AddAndScale(t *testing.T) {
	a := slh.MatrixFromSlice(2, 2, []slh.Expr{
		slh.N(1), slh.N(2),
		slh.N(3), slh.N(4),
	})
	b := slh.MatrixFromSlice(2, 2, []slh.Expr{
		slh.N(4), slh.N(3),
		slh.N(2), slh.N(1),
	})
	got := a.MatAdd(b.Scale(slh.N(2)))
	want := slh.MatrixFromSlice(2, 2, []slh.Expr{
		slh.N(9), slh.N(8),
		slh.N(7), slh.N(6),
	})
	if !got.Equal(want) {
		t.Errorf("want\n%s\ngot\n%s", want.String(), got.String())
	}
}

func TestMatrix_TransposeAndDagger(t *testing.T) {
	m := slh.MatrixFromSlice(1, 2, []slh.Expr{slh.I(), slh.S("x")})

	tr := m.Transpose()
	if tr.Rows() != 2 || tr.Cols() != 1 {
		t.Fatalf("transpose shape is %dx%d, want 2x1", tr.Rows(), tr.Cols())
	}
	if !tr.Get(0, 0).Equal(slh.I()) {
		t.Errorf("transpose must not conjugate: got %s", tr.Get(0, 0).String())
	}

	dg := m.Dagger()
	if !dg.Get(0, 0).Equal(slh.Imag(-1, 1)) {
		t.Errorf("want -i, got %s", dg.Get(0, 0).String())
	}
	if !dg.Get(1, 0).Equal(slh.ConjOf(slh.S("x"))) {
		t.Errorf("want conj(x), got %s", dg.Get(1, 0).String())
	}
}

func TestMatrix_ApplySub(t *testing.T) {
	m := slh.MatrixFromSlice(1, 2, []slh.Expr{
		slh.SqrtOf(slh.S("kappa")), slh.N(1),
	})
	got := m.ApplySub("kappa", slh.N(4))
	if !got.Get(0, 0).Equal(slh.N(2)) {
		t.Errorf("want 2, got %s", got.Get(0, 0).String())
	}
	if !m.Get(0, 0).Equal(slh.SqrtOf(slh.S("kappa"))) {
		t.Errorf("substitution must not mutate the receiver")
	}
}

func TestMatrix_PermuteOutputs(t *testing.T) {
	m := slh.MatrixFromSlice(2, 2, []slh.Expr{
		slh.N(1), slh.N(2),
		slh.N(3), slh.N(4),
	})
	p, _ := slh.NewPermutation(1, 0)

	// Row i moves to row p[i]; equivalent to left-multiplying by the
	// permutation matrix with entries P[p[j],j] = 1.
	got := m.PermuteOutputs(p)
	pm := slh.MatrixFromSlice(2, 2, []slh.Expr{
		slh.N(0), slh.N(1),
		slh.N(1), slh.N(0),
	})
	if !got.Equal(pm.MatMul(m)) {
		t.Errorf("want\n%s\ngot\n%s", pm.MatMul(m).String(), got.String())
	}
}

func TestMatrix_PermuteInputs(t *testing.T) {
	m := slh.MatrixFromSlice(2, 2, []slh.Expr{
		slh.N(1), slh.N(2),
		slh.N(3), slh.N(4),
	})
	p, _ := slh.NewPermutation(1, 0)

	got := m.PermuteInputs(p)
	pm := slh.MatrixFromSlice(2, 2, []slh.Expr{
		slh.N(0), slh.N(1),
		slh.N(1), slh.N(0),
	})
	if !got.Equal(m.MatMul(pm)) {
		t.Errorf("want\n%s\ngot\n%s", m.MatMul(pm).String(), got.String())
	}
}

func TestScatteringDefect_NumericUnitary(t *testing.T) {
	defect := slh.ScatteringDefect(slh.Beamsplitter(slh.F(1, 2)).Scattering())
	if !defect.IsZero() {
		t.Errorf("beamsplitter defect should fold to zero, got\n%s", defect.String())
	}
}

func TestScatteringDefect_NonUnitary(t *testing.T) {
	s := slh.MatrixFromSlice(1, 1, []slh.Expr{slh.N(2)})
	defect := slh.ScatteringDefect(s)
	if defect.IsZero() {
		t.Error("2·2* - 1 should not be zero")
	}
	if !defect.Get(0, 0).Equal(slh.N(3)) {
		t.Errorf("want 3, got %s", defect.Get(0, 0).String())
	}
}
