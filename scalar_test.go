package slh_test

import (
	"encoding/json"
	"errors"
	"math/cmplx"
	"testing"

	slh "github.com/njchilds90/go-slh"
)

// ============================================================
// Num tests
// ============================================================

func TestNum_Integer(t *testing.T) {
	n := slh.N(42)
	if n.String() != "42" {
		t.Errorf("want 42, got %s", n.String())
	}
}

func TestNum_Rational(t *testing.T) {
	n := slh.F(1, 3)
	if n.String() != "1/3" {
		t.Errorf("want 1/3, got %s", n.String())
	}
}

func TestNum_Imaginary(t *testing.T) {
	if got := slh.I().String(); got != "i" {
		t.Errorf("want i, got %s", got)
	}
	if got := slh.Imag(-3, 2).String(); got != "-3/2i" {
		t.Errorf("want -3/2i, got %s", got)
	}
}

func TestNum_ComplexProduct(t *testing.T) {
	// (1+i)(1-i) = 2
	z := slh.AddOf(slh.N(1), slh.I())
	w := slh.ConjOf(z)
	if got := slh.MulOf(z, w).String(); got != "2" {
		t.Errorf("want 2, got %s", got)
	}
}

func TestNum_String_Complex(t *testing.T) {
	z := slh.AddOf(slh.F(1, 2), slh.MulOf(slh.I(), slh.F(3, 4)))
	if got := z.String(); got != "(1/2 + 3/4i)" {
		t.Errorf("want (1/2 + 3/4i), got %s", got)
	}
}

// ============================================================
// Simplification tests
// ============================================================

func TestAdd_LikeTerms(t *testing.T) {
	x := slh.S("x")
	got := slh.AddOf(x, x, x, slh.N(2))
	if got.String() != "3*x + 2" {
		t.Errorf("want 3*x + 2, got %s", got.String())
	}
}

func TestAdd_CollectsScaledTerms(t *testing.T) {
	x := slh.S("x")
	got := slh.AddOf(slh.MulOf(slh.F(1, 3), x), slh.MulOf(slh.F(5, 3), x))
	if got.String() != "2*x" {
		t.Errorf("want 2*x, got %s", got.String())
	}
}

func TestAdd_CancelsToZero(t *testing.T) {
	x := slh.S("x")
	got := slh.AddOf(x, slh.NegOf(x))
	if got.String() != "0" {
		t.Errorf("want 0, got %s", got.String())
	}
}

func TestMul_Determinism(t *testing.T) {
	a := slh.MulOf(slh.S("b"), slh.S("a"), slh.N(2))
	b := slh.MulOf(slh.N(2), slh.S("a"), slh.S("b"))
	if !a.Equal(b) {
		t.Errorf("products should canonicalize identically: %s vs %s", a.String(), b.String())
	}
}

func TestMul_RepeatedFactorsFoldToPower(t *testing.T) {
	got := slh.MulOf(slh.SqrtOf(slh.N(3)), slh.SqrtOf(slh.N(3)))
	if got.String() != "3" {
		t.Errorf("want 3, got %s", got.String())
	}
}

func TestPow_ExactSqrt(t *testing.T) {
	if got := slh.SqrtOf(slh.N(4)).String(); got != "2" {
		t.Errorf("want 2, got %s", got)
	}
	if got := slh.SqrtOf(slh.F(9, 4)).String(); got != "3/2" {
		t.Errorf("want 3/2, got %s", got)
	}
	if got := slh.SqrtOf(slh.N(3)).String(); got != "3^1/2" {
		t.Errorf("sqrt(3) should stay symbolic, got %s", got)
	}
}

func TestPow_IntegerFold(t *testing.T) {
	got := slh.PowOf(slh.AddOf(slh.N(1), slh.I()), slh.N(2))
	want := slh.Imag(2, 1) // (1+i)^2 = 2i
	if !got.Equal(want) {
		t.Errorf("want 2i, got %s", got.String())
	}
}

// ============================================================
// Conjugation tests
// ============================================================

func TestConj_Involution(t *testing.T) {
	x := slh.S("x")
	got := slh.ConjOf(slh.ConjOf(x))
	if !got.Equal(x) {
		t.Errorf("conj(conj(x)) should be x, got %s", got.String())
	}
}

func TestConj_DistributesOverSum(t *testing.T) {
	z := slh.AddOf(slh.S("x"), slh.I())
	got := slh.ConjOf(z)
	want := slh.AddOf(slh.ConjOf(slh.S("x")), slh.Imag(-1, 1))
	if !got.Equal(want) {
		t.Errorf("want %s, got %s", want.String(), got.String())
	}
}

func TestConj_RealPowerStaysPut(t *testing.T) {
	tt := slh.SqrtOf(slh.F(3, 4))
	if !slh.ConjOf(tt).Equal(tt) {
		t.Errorf("conjugate of a real radical should be itself")
	}
}

// ============================================================
// Evaluation tests
// ============================================================

func TestEval_Bindings(t *testing.T) {
	e := slh.AddOf(slh.MulOf(slh.N(2), slh.S("x")), slh.I())
	v, err := e.Eval(slh.Bindings{"x": 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmplx.Abs(v-complex(6, 1)) > 1e-12 {
		t.Errorf("want 6+i, got %v", v)
	}
}

func TestEval_UnboundParameter(t *testing.T) {
	_, err := slh.S("kappa").Eval(slh.Bindings{})
	if !errors.Is(err, slh.ErrUnboundParameter) {
		t.Errorf("want ErrUnboundParameter, got %v", err)
	}
}

func TestFreeParams(t *testing.T) {
	e := slh.MulOf(slh.SqrtOf(slh.S("kappa")), slh.ConjOf(slh.S("alpha")))
	got := slh.FreeParams(e)
	if len(got) != 2 || got[0] != "alpha" || got[1] != "kappa" {
		t.Errorf("want [alpha kappa], got %v", got)
	}
}

// ============================================================
// JSON round trip
// ============================================================

func TestExprJSON_RoundTrip(t *testing.T) {
	e := slh.AddOf(
		slh.MulOf(slh.F(2, 3), slh.S("x")),
		slh.PowOf(slh.S("y"), slh.N(2)),
		slh.ConjOf(slh.S("z")),
		slh.Imag(1, 2),
	)
	text, err := slh.ExprToJSON(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	back, err := slh.ExprFromJSON(m)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if !back.Equal(e) {
		t.Errorf("round trip changed expression: %s vs %s", e.String(), back.String())
	}
}

func TestDeterminism(t *testing.T) {
	build := func() string {
		return slh.AddOf(
			slh.MulOf(slh.S("c"), slh.S("a")),
			slh.MulOf(slh.S("b"), slh.N(3)),
			slh.S("a"),
		).String()
	}
	first := build()
	for i := 0; i < 10; i++ {
		if got := build(); got != first {
			t.Fatalf("output not stable: %s vs %s", first, got)
		}
	}
}
