package slh_test

import (
	"errors"
	"testing"

	slh "github.com/njchilds90/go-slh"
)

func TestMatch_BindsConsistently(t *testing.T) {
	pattern := slh.MulOf(slh.W("x"), slh.ConjOf(slh.W("x")))
	subject := slh.MulOf(slh.S("z"), slh.ConjOf(slh.S("z")))
	b, ok := slh.Match(pattern, subject)
	if !ok {
		t.Fatalf("pattern should match %s", subject.String())
	}
	if !b["x"].Equal(slh.S("z")) {
		t.Errorf("want x bound to z, got %s", b["x"].String())
	}
}

func TestMatch_RejectsInconsistentBinding(t *testing.T) {
	pattern := slh.MulOf(slh.W("x"), slh.ConjOf(slh.W("x")))
	subject := slh.MulOf(slh.S("z"), slh.ConjOf(slh.S("w")))
	if _, ok := slh.Match(pattern, subject); ok {
		t.Errorf("pattern should not match mixed conjugate pair")
	}
}

func TestRewrite_AppliesInnermost(t *testing.T) {
	// Linearize the exponential: exp(x) -> 1 + x.
	rule := slh.Rule{
		Name:    "linearize-exp",
		Pattern: slh.ExpOf(slh.W("x")),
		Replace: slh.AddOf(slh.N(1), slh.W("x")),
	}
	subject := slh.MulOf(slh.N(2), slh.ExpOf(slh.S("t")))
	got, err := slh.RewriteFixpoint(subject, []slh.Rule{rule}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := slh.MulOf(slh.N(2), slh.AddOf(slh.N(1), slh.S("t")))
	if !got.Equal(want) {
		t.Errorf("want %s, got %s", want.String(), got.String())
	}
}

func TestRewriteFixpoint_Diverges(t *testing.T) {
	// y -> y + 1 grows without bound.
	rule := slh.Rule{
		Name:    "grow",
		Pattern: slh.S("y"),
		Replace: slh.AddOf(slh.S("y"), slh.N(1)),
	}
	_, err := slh.RewriteFixpoint(slh.S("y"), []slh.Rule{rule}, 25)
	if !errors.Is(err, slh.ErrRewriteDivergence) {
		t.Errorf("want ErrRewriteDivergence, got %v", err)
	}
}

func TestInstantiate_FillsBindings(t *testing.T) {
	template := slh.AddOf(slh.W("x"), slh.ConjOf(slh.W("x")))
	got := slh.Instantiate(template, slh.MatchBindings{"x": slh.I()})
	if got.String() != "0" {
		t.Errorf("i + conj(i) should be 0, got %s", got.String())
	}
}
