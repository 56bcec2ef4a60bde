package slh

import "fmt"

// ============================================================
// Wild — pattern wildcard
// ============================================================

// Wild stands for an arbitrary subexpression inside a rewrite pattern.
// It never appears in simplified expressions; evaluating one is an error.
type Wild struct{ name string }

func W(name string) *Wild { return &Wild{name: name} }

func (w *Wild) Simplify() Expr        { return w }
func (w *Wild) String() string        { return "_" + w.name }
func (w *Wild) LaTeX() string         { return "\\_" + w.name }
func (w *Wild) Sub(string, Expr) Expr { return w }
func (w *Wild) Conjugate() Expr       { return &Conj{arg: w} }
func (w *Wild) Name() string          { return w.name }

func (w *Wild) Eval(Bindings) (complex128, error) {
	return 0, fmt.Errorf("slh: cannot evaluate pattern wildcard %q", w.name)
}

func (w *Wild) Equal(other Expr) bool { o, ok := other.(*Wild); return ok && w.name == o.name }
func (w *Wild) exprType() string      { return "wild" }
func (w *Wild) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "wild", "name": w.name}
}

// ============================================================
// Structural Matching
// ============================================================

// MatchBindings maps wildcard names to the subexpressions they captured.
type MatchBindings map[string]Expr

// Match tests subject against pattern. Wildcards bind consistently: a
// name that appears twice must capture equal subexpressions. Sums and
// products match positionally on the canonical operand order.
func Match(pattern, subject Expr) (MatchBindings, bool) {
	b := MatchBindings{}
	if matchInto(pattern, subject, b) {
		return b, true
	}
	return nil, false
}

func matchInto(pattern, subject Expr, b MatchBindings) bool {
	if w, ok := pattern.(*Wild); ok {
		if prev, seen := b[w.name]; seen {
			return prev.Equal(subject)
		}
		b[w.name] = subject
		return true
	}
	switch p := pattern.(type) {
	case *Num, *Sym:
		return pattern.Equal(subject)
	case *Add:
		s, ok := subject.(*Add)
		if !ok || len(p.terms) != len(s.terms) {
			return false
		}
		for i := range p.terms {
			if !matchInto(p.terms[i], s.terms[i], b) {
				return false
			}
		}
		return true
	case *Mul:
		s, ok := subject.(*Mul)
		if !ok || len(p.factors) != len(s.factors) {
			return false
		}
		for i := range p.factors {
			if !matchInto(p.factors[i], s.factors[i], b) {
				return false
			}
		}
		return true
	case *Pow:
		s, ok := subject.(*Pow)
		return ok && matchInto(p.base, s.base, b) && matchInto(p.exp, s.exp, b)
	case *Conj:
		s, ok := subject.(*Conj)
		return ok && matchInto(p.arg, s.arg, b)
	case *Func:
		s, ok := subject.(*Func)
		return ok && p.name == s.name && matchInto(p.arg, s.arg, b)
	}
	return false
}

// Instantiate substitutes captured bindings into a pattern template.
func Instantiate(template Expr, b MatchBindings) Expr {
	switch t := template.(type) {
	case *Wild:
		if e, ok := b[t.name]; ok {
			return e
		}
		return t
	case *Num, *Sym:
		return template
	case *Add:
		terms := make([]Expr, len(t.terms))
		for i, x := range t.terms {
			terms[i] = Instantiate(x, b)
		}
		return AddOf(terms...)
	case *Mul:
		factors := make([]Expr, len(t.factors))
		for i, x := range t.factors {
			factors[i] = Instantiate(x, b)
		}
		return MulOf(factors...)
	case *Pow:
		return PowOf(Instantiate(t.base, b), Instantiate(t.exp, b))
	case *Conj:
		return ConjOf(Instantiate(t.arg, b))
	case *Func:
		return funcOf(t.name, Instantiate(t.arg, b)).Simplify()
	}
	return template
}

// ============================================================
// Rules and Fixpoint Rewriting
// ============================================================

// Rule rewrites subexpressions matching Pattern into Replace with the
// captured wildcards substituted.
type Rule struct {
	Name    string
	Pattern Expr
	Replace Expr
}

// Rewrite applies each rule once, innermost first, over the whole tree.
// The result is simplified but not necessarily a fixed point.
func Rewrite(e Expr, rules []Rule) Expr {
	rewritten := rewriteChildren(e, rules)
	for _, r := range rules {
		if b, ok := Match(r.Pattern, rewritten); ok {
			rewritten = Instantiate(r.Replace, b)
		}
	}
	return rewritten.Simplify()
}

func rewriteChildren(e Expr, rules []Rule) Expr {
	switch v := e.(type) {
	case *Add:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			terms[i] = Rewrite(t, rules)
		}
		return AddOf(terms...)
	case *Mul:
		factors := make([]Expr, len(v.factors))
		for i, f := range v.factors {
			factors[i] = Rewrite(f, rules)
		}
		return MulOf(factors...)
	case *Pow:
		return PowOf(Rewrite(v.base, rules), Rewrite(v.exp, rules))
	case *Conj:
		return ConjOf(Rewrite(v.arg, rules))
	case *Func:
		return funcOf(v.name, Rewrite(v.arg, rules)).Simplify()
	}
	return e
}

// RewriteFixpoint iterates Rewrite until the expression stabilizes. If
// no fixed point is reached within maxPasses it fails with
// ErrRewriteDivergence rather than loop forever.
func RewriteFixpoint(e Expr, rules []Rule, maxPasses int) (Expr, error) {
	prev := e.Simplify()
	for i := 0; i < maxPasses; i++ {
		next := Rewrite(prev, rules)
		if next.Equal(prev) {
			return next, nil
		}
		prev = next
	}
	return nil, fmt.Errorf("%w: after %d passes", ErrRewriteDivergence, maxPasses)
}
