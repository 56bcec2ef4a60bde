// Package slh is a deterministic circuit algebra kernel for quantum
// input-output networks.
//
// Design goals:
//   - Exact complex rational arithmetic (math/big.Rat pairs)
//   - Deterministic simplification and stable output
//   - Closed-form SLH composition: series, concatenation, permutation, feedback
//   - A compiler from circuits to numeric matrices (gonum) for external solvers
package slh

import (
	"fmt"
	"math/big"
	"math/cmplx"
	"sort"
	"strings"

	"golang.org/x/exp/maps"
)

// ============================================================
// Core Interface
// ============================================================

// Bindings maps parameter names to numeric values for evaluation.
type Bindings map[string]complex128

type Expr interface {
	Simplify() Expr
	String() string
	LaTeX() string
	Sub(name string, value Expr) Expr
	Conjugate() Expr
	Eval(bind Bindings) (complex128, error)
	Equal(other Expr) bool
	exprType() string
	toJSON() map[string]interface{}
}

// ============================================================
// Num — exact complex rational number
// ============================================================

type Num struct{ re, im *big.Rat }

func N(n int64) *Num { return &Num{re: new(big.Rat).SetInt64(n), im: new(big.Rat)} }
func F(p, q int64) *Num {
	if q == 0 {
		panic("slh: denominator is zero")
	}
	return &Num{re: new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q)), im: new(big.Rat)}
}

// Imag returns the pure imaginary rational (p/q)i.
func Imag(p, q int64) *Num {
	if q == 0 {
		panic("slh: denominator is zero")
	}
	return &Num{re: new(big.Rat), im: new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q))}
}

// I is the imaginary unit.
func I() *Num { return Imag(1, 1) }

func newNum(re, im *big.Rat) *Num {
	return &Num{re: new(big.Rat).Set(re), im: new(big.Rat).Set(im)}
}

func (n *Num) Simplify() Expr        { return n }
func (n *Num) Sub(string, Expr) Expr { return n }
func (n *Num) Conjugate() Expr       { return numConj(n) }
func (n *Num) exprType() string      { return "num" }
func (n *Num) IsZero() bool          { return n.re.Sign() == 0 && n.im.Sign() == 0 }
func (n *Num) IsReal() bool          { return n.im.Sign() == 0 }
func (n *Num) Re() *big.Rat          { return new(big.Rat).Set(n.re) }
func (n *Num) Im() *big.Rat          { return new(big.Rat).Set(n.im) }

func (n *Num) IsOne() bool {
	return n.im.Sign() == 0 && n.re.Cmp(new(big.Rat).SetInt64(1)) == 0
}

func (n *Num) IsNegOne() bool {
	return n.im.Sign() == 0 && n.re.Cmp(new(big.Rat).SetInt64(-1)) == 0
}

func (n *Num) Equal(other Expr) bool {
	o, ok := other.(*Num)
	return ok && n.re.Cmp(o.re) == 0 && n.im.Cmp(o.im) == 0
}

func (n *Num) Eval(Bindings) (complex128, error) {
	re, _ := n.re.Float64()
	im, _ := n.im.Float64()
	return complex(re, im), nil
}

func (n *Num) Complex128() complex128 {
	re, _ := n.re.Float64()
	im, _ := n.im.Float64()
	return complex(re, im)
}

func ratString(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	return r.RatString()
}

func (n *Num) String() string {
	switch {
	case n.im.Sign() == 0:
		return ratString(n.re)
	case n.re.Sign() == 0:
		switch {
		case n.im.Cmp(new(big.Rat).SetInt64(1)) == 0:
			return "i"
		case n.im.Cmp(new(big.Rat).SetInt64(-1)) == 0:
			return "-i"
		default:
			return ratString(n.im) + "i"
		}
	default:
		sign := "+"
		im := new(big.Rat).Set(n.im)
		if im.Sign() < 0 {
			sign = "-"
			im.Neg(im)
		}
		return fmt.Sprintf("(%s %s %si)", ratString(n.re), sign, ratString(im))
	}
}

func (n *Num) LaTeX() string {
	ratTeX := func(r *big.Rat) string {
		if r.IsInt() {
			return r.Num().String()
		}
		sign := ""
		v := new(big.Rat).Set(r)
		if v.Sign() < 0 {
			sign = "-"
			v.Neg(v)
		}
		return fmt.Sprintf("%s\\frac{%s}{%s}", sign, v.Num().String(), v.Denom().String())
	}
	switch {
	case n.im.Sign() == 0:
		return ratTeX(n.re)
	case n.re.Sign() == 0:
		return ratTeX(n.im) + "i"
	default:
		return fmt.Sprintf("\\left(%s + %si\\right)", ratTeX(n.re), ratTeX(n.im))
	}
}

func (n *Num) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "num", "re": ratString(n.re), "im": ratString(n.im)}
}

func numAdd(a, b *Num) *Num {
	return &Num{re: new(big.Rat).Add(a.re, b.re), im: new(big.Rat).Add(a.im, b.im)}
}

func numNeg(a *Num) *Num {
	return &Num{re: new(big.Rat).Neg(a.re), im: new(big.Rat).Neg(a.im)}
}

func numConj(a *Num) *Num {
	return &Num{re: new(big.Rat).Set(a.re), im: new(big.Rat).Neg(a.im)}
}

func numMul(a, b *Num) *Num {
	// (a+bi)(c+di) = (ac-bd) + (ad+bc)i
	ac := new(big.Rat).Mul(a.re, b.re)
	bd := new(big.Rat).Mul(a.im, b.im)
	ad := new(big.Rat).Mul(a.re, b.im)
	bc := new(big.Rat).Mul(a.im, b.re)
	return &Num{re: ac.Sub(ac, bd), im: ad.Add(ad, bc)}
}

func numRecip(a *Num) *Num {
	if a.IsZero() {
		panic("slh: division by zero")
	}
	// 1/z = conj(z) / |z|^2
	mag := new(big.Rat).Mul(a.re, a.re)
	mag.Add(mag, new(big.Rat).Mul(a.im, a.im))
	inv := new(big.Rat).Inv(mag)
	return &Num{
		re: new(big.Rat).Mul(a.re, inv),
		im: new(big.Rat).Mul(new(big.Rat).Neg(a.im), inv),
	}
}

// ============================================================
// Sym — symbolic scalar parameter
// ============================================================

type Sym struct{ name string }

func S(name string) *Sym      { return &Sym{name: name} }
func (s *Sym) Simplify() Expr { return s }
func (s *Sym) String() string { return s.name }
func (s *Sym) LaTeX() string  { return s.name }
func (s *Sym) Name() string   { return s.name }

// Conjugate stays symbolic: nothing marks a parameter as real.
func (s *Sym) Conjugate() Expr { return &Conj{arg: s} }

func (s *Sym) Equal(other Expr) bool { o, ok := other.(*Sym); return ok && s.name == o.name }
func (s *Sym) exprType() string      { return "sym" }
func (s *Sym) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "sym", "name": s.name}
}

func (s *Sym) Sub(name string, value Expr) Expr {
	if s.name == name {
		return value
	}
	return s
}

func (s *Sym) Eval(bind Bindings) (complex128, error) {
	if v, ok := bind[s.name]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnboundParameter, s.name)
}

// ============================================================
// Add — sum of terms
// ============================================================

type Add struct{ terms []Expr }

func AddOf(terms ...Expr) Expr { return (&Add{terms: terms}).Simplify() }

// splitCoeff peels a leading numeric coefficient off a term, so that
// like terms collect regardless of how the coefficient was attached.
func splitCoeff(e Expr) (*Num, Expr) {
	switch v := e.(type) {
	case *Num:
		return v, nil
	case *Mul:
		if len(v.factors) > 1 {
			if c, ok := v.factors[0].(*Num); ok {
				rest := v.factors[1:]
				if len(rest) == 1 {
					return c, rest[0]
				}
				return c, &Mul{factors: rest}
			}
		}
		return N(1), v
	default:
		return N(1), e
	}
}

func (a *Add) Simplify() Expr {
	flat := make([]Expr, 0, len(a.terms))
	for _, t := range a.terms {
		s := t.Simplify()
		if inner, ok := s.(*Add); ok {
			flat = append(flat, inner.terms...)
		} else {
			flat = append(flat, s)
		}
	}
	numAccum := N(0)
	coeffs := map[string]*Num{}
	bases := map[string]Expr{}
	for _, t := range flat {
		c, rest := splitCoeff(t)
		if rest == nil {
			numAccum = numAdd(numAccum, c)
			continue
		}
		key := rest.String()
		if _, seen := coeffs[key]; !seen {
			coeffs[key] = N(0)
			bases[key] = rest
		}
		coeffs[key] = numAdd(coeffs[key], c)
	}
	keys := maps.Keys(coeffs)
	sort.Strings(keys)
	result := []Expr{}
	for _, key := range keys {
		c := coeffs[key]
		if c.IsZero() {
			continue
		}
		if c.IsOne() {
			result = append(result, bases[key])
		} else {
			result = append(result, MulOf(c, bases[key]))
		}
	}
	if !numAccum.IsZero() {
		result = append(result, numAccum)
	}
	if len(result) == 0 {
		return N(0)
	}
	if len(result) == 1 {
		return result[0]
	}
	return &Add{terms: result}
}

func (a *Add) String() string {
	if len(a.terms) == 0 {
		return "0"
	}
	parts := make([]string, len(a.terms))
	for i, t := range a.terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " + ")
}

func (a *Add) LaTeX() string {
	parts := make([]string, len(a.terms))
	for i, t := range a.terms {
		parts[i] = t.LaTeX()
	}
	return strings.Join(parts, " + ")
}

func (a *Add) Sub(name string, value Expr) Expr {
	newTerms := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		newTerms[i] = t.Sub(name, value)
	}
	return AddOf(newTerms...)
}

func (a *Add) Conjugate() Expr {
	cs := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		cs[i] = t.Conjugate()
	}
	return AddOf(cs...)
}

func (a *Add) Eval(bind Bindings) (complex128, error) {
	acc := complex128(0)
	for _, t := range a.terms {
		v, err := t.Eval(bind)
		if err != nil {
			return 0, err
		}
		acc += v
	}
	return acc, nil
}

func (a *Add) Equal(other Expr) bool {
	o, ok := other.(*Add)
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

func (a *Add) exprType() string { return "add" }
func (a *Add) toJSON() map[string]interface{} {
	ts := make([]map[string]interface{}, len(a.terms))
	for i, t := range a.terms {
		ts[i] = t.toJSON()
	}
	return map[string]interface{}{"type": "add", "terms": ts}
}
func (a *Add) Terms() []Expr { return a.terms }

// ============================================================
// Mul — product of factors
// ============================================================

type Mul struct{ factors []Expr }

func MulOf(factors ...Expr) Expr { return (&Mul{factors: factors}).Simplify() }

func (m *Mul) Simplify() Expr {
	flat := make([]Expr, 0, len(m.factors))
	for _, f := range m.factors {
		s := f.Simplify()
		if inner, ok := s.(*Mul); ok {
			flat = append(flat, inner.factors...)
		} else {
			flat = append(flat, s)
		}
	}
	coeff := N(1)
	others := []Expr{}
	for _, f := range flat {
		if v, ok := f.(*Num); ok {
			coeff = numMul(coeff, v)
		} else {
			others = append(others, f)
		}
	}
	if coeff.IsZero() {
		return N(0)
	}
	if len(others) == 0 {
		return coeff
	}

	// Precompute sort keys to avoid repeated String() calls in comparator.
	type keyed struct {
		e   Expr
		key string
	}
	ks := make([]keyed, len(others))
	for i, e := range others {
		ks[i] = keyed{e: e, key: e.String()}
	}
	sort.Slice(ks, func(i, j int) bool { return ks[i].key < ks[j].key })
	sortedOthers := make([]Expr, len(ks))
	for i := range ks {
		sortedOthers[i] = ks[i].e
	}
	others = sortedOthers

	// Runs of equal factors fold into powers, which in turn may fold
	// numerically (e.g. sqrt(x)*sqrt(x) -> x).
	merged := make([]Expr, 0, len(others))
	didMerge := false
	for idx := 0; idx < len(others); {
		j := idx
		for j < len(others) && others[j].Equal(others[idx]) {
			j++
		}
		if j-idx > 1 {
			merged = append(merged, PowOf(others[idx], N(int64(j-idx))))
			didMerge = true
		} else {
			merged = append(merged, others[idx])
		}
		idx = j
	}
	if didMerge {
		return MulOf(append([]Expr{coeff}, merged...)...)
	}

	if coeff.IsOne() {
		if len(others) == 1 {
			return others[0]
		}
		return &Mul{factors: others}
	}
	return &Mul{factors: append([]Expr{coeff}, others...)}
}

func (m *Mul) String() string {
	if len(m.factors) == 0 {
		return "1"
	}
	parts := make([]string, len(m.factors))
	for i, f := range m.factors {
		_, isAdd := f.(*Add)
		if isAdd {
			parts[i] = "(" + f.String() + ")"
		} else {
			parts[i] = f.String()
		}
	}
	return strings.Join(parts, "*")
}

func (m *Mul) LaTeX() string {
	parts := make([]string, len(m.factors))
	for i, f := range m.factors {
		_, isAdd := f.(*Add)
		if isAdd {
			parts[i] = "\\left(" + f.LaTeX() + "\\right)"
		} else {
			parts[i] = f.LaTeX()
		}
	}
	return strings.Join(parts, " ")
}

func (m *Mul) Sub(name string, value Expr) Expr {
	newFactors := make([]Expr, len(m.factors))
	for i, f := range m.factors {
		newFactors[i] = f.Sub(name, value)
	}
	return MulOf(newFactors...)
}

func (m *Mul) Conjugate() Expr {
	cs := make([]Expr, len(m.factors))
	for i, f := range m.factors {
		cs[i] = f.Conjugate()
	}
	return MulOf(cs...)
}

func (m *Mul) Eval(bind Bindings) (complex128, error) {
	acc := complex128(1)
	for _, f := range m.factors {
		v, err := f.Eval(bind)
		if err != nil {
			return 0, err
		}
		acc *= v
	}
	return acc, nil
}

func (m *Mul) Equal(other Expr) bool {
	o, ok := other.(*Mul)
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

func (m *Mul) exprType() string { return "mul" }
func (m *Mul) toJSON() map[string]interface{} {
	fs := make([]map[string]interface{}, len(m.factors))
	for i, f := range m.factors {
		fs[i] = f.toJSON()
	}
	return map[string]interface{}{"type": "mul", "factors": fs}
}
func (m *Mul) Factors() []Expr { return m.factors }

// ============================================================
// Pow — base^exponent
// ============================================================

type Pow struct{ base, exp Expr }

func PowOf(base, exp Expr) Expr { return (&Pow{base: base, exp: exp}).Simplify() }

// SqrtOf returns base^(1/2).
func SqrtOf(base Expr) Expr { return PowOf(base, F(1, 2)) }

func (p *Pow) Simplify() Expr {
	base := p.base.Simplify()
	exp := p.exp.Simplify()

	if en, ok := exp.(*Num); ok && en.IsZero() {
		return N(1)
	}
	if en, ok := exp.(*Num); ok && en.IsOne() {
		return base
	}

	// Handle 0^exp carefully.
	if bn, ok := base.(*Num); ok && bn.IsZero() {
		if en, ok2 := exp.(*Num); ok2 {
			// 0^0 is indeterminate; 0^negative is division by zero.
			if en.IsZero() || (en.IsReal() && en.re.Sign() < 0) {
				return &Pow{base: base, exp: exp}
			}
		}
		return N(0)
	}

	if bn, ok := base.(*Num); ok && bn.IsOne() {
		return N(1)
	}
	// Half-integer powers of nonnegative rationals fold when the square
	// root is exact: 4^(1/2) -> 2, (9/4)^(3/2) -> 27/8.
	if bn, ok := base.(*Num); ok && bn.IsReal() && bn.re.Sign() >= 0 {
		if en, ok2 := exp.(*Num); ok2 && en.IsReal() && !en.re.IsInt() &&
			en.re.Denom().Cmp(big.NewInt(2)) == 0 {
			if root, exact := ratSqrt(bn.re); exact {
				p := en.re.Num().Int64()
				return PowOf(&Num{re: root, im: new(big.Rat)}, N(p))
			}
		}
	}
	if bn, ok := base.(*Num); ok {
		if en, ok2 := exp.(*Num); ok2 && en.IsReal() && en.re.IsInt() {
			e := en.re.Num().Int64()
			if e >= 0 && e <= 20 {
				result := N(1)
				for i := int64(0); i < e; i++ {
					result = numMul(result, bn)
				}
				return result
			}
			if e < 0 && e >= -20 {
				posE := -e
				result := N(1)
				for i := int64(0); i < posE; i++ {
					result = numMul(result, bn)
				}
				// Will panic if result == 0, but base==0 was handled above.
				return numRecip(result)
			}
		}
	}
	if inner, ok := base.(*Pow); ok {
		newExp := MulOf(inner.exp, exp).Simplify()
		return PowOf(inner.base, newExp)
	}
	return &Pow{base: base, exp: exp}
}

func (p *Pow) String() string {
	baseStr := p.base.String()
	expStr := p.exp.String()
	_, baseIsAdd := p.base.(*Add)
	_, baseIsMul := p.base.(*Mul)
	if baseIsAdd || baseIsMul {
		baseStr = "(" + baseStr + ")"
	}
	if _, isNum := p.exp.(*Num); !isNum {
		expStr = "(" + expStr + ")"
	}
	return baseStr + "^" + expStr
}

func (p *Pow) LaTeX() string {
	baseStr := p.base.LaTeX()
	_, baseIsAdd := p.base.(*Add)
	_, baseIsMul := p.base.(*Mul)
	if baseIsAdd || baseIsMul {
		baseStr = "\\left(" + baseStr + "\\right)"
	}
	return baseStr + "^{" + p.exp.LaTeX() + "}"
}

func (p *Pow) Sub(name string, value Expr) Expr {
	return PowOf(p.base.Sub(name, value), p.exp.Sub(name, value))
}

func (p *Pow) Conjugate() Expr {
	// A nonnegative real base raised to a real power is real.
	if bn, ok := p.base.(*Num); ok && bn.IsReal() && bn.re.Sign() >= 0 {
		if en, ok2 := p.exp.(*Num); ok2 && en.IsReal() {
			return p
		}
	}
	// Integer exponents commute with conjugation.
	if en, ok := p.exp.(*Num); ok && en.IsReal() && en.re.IsInt() {
		return PowOf(p.base.Conjugate(), p.exp)
	}
	return &Conj{arg: p}
}

func (p *Pow) Eval(bind Bindings) (complex128, error) {
	b, err := p.base.Eval(bind)
	if err != nil {
		return 0, err
	}
	e, err := p.exp.Eval(bind)
	if err != nil {
		return 0, err
	}
	if b == 0 && real(e) < 0 {
		return 0, errDivZero
	}
	if b == 0 && e == 0 {
		return 0, fmt.Errorf("slh: 0^0 is indeterminate")
	}
	return cmplx.Pow(b, e), nil
}

func (p *Pow) Equal(other Expr) bool {
	o, ok := other.(*Pow)
	return ok && p.base.Equal(o.base) && p.exp.Equal(o.exp)
}

func (p *Pow) exprType() string { return "pow" }
func (p *Pow) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "pow", "base": p.base.toJSON(), "exp": p.exp.toJSON()}
}
func (p *Pow) Base() Expr    { return p.base }
func (p *Pow) ExpExpr() Expr { return p.exp }

// ============================================================
// Conj — complex conjugate
// ============================================================

type Conj struct{ arg Expr }

func ConjOf(arg Expr) Expr { return arg.Simplify().Conjugate() }

func (c *Conj) Simplify() Expr { return ConjOf(c.arg) }
func (c *Conj) String() string { return "conj(" + c.arg.String() + ")" }
func (c *Conj) LaTeX() string  { return "\\overline{" + c.arg.LaTeX() + "}" }
func (c *Conj) Arg() Expr      { return c.arg }

func (c *Conj) Sub(name string, value Expr) Expr {
	return ConjOf(c.arg.Sub(name, value))
}

func (c *Conj) Conjugate() Expr { return c.arg }

func (c *Conj) Eval(bind Bindings) (complex128, error) {
	v, err := c.arg.Eval(bind)
	if err != nil {
		return 0, err
	}
	return cmplx.Conj(v), nil
}

func (c *Conj) Equal(other Expr) bool {
	o, ok := other.(*Conj)
	return ok && c.arg.Equal(o.arg)
}

func (c *Conj) exprType() string { return "conj" }
func (c *Conj) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "conj", "arg": c.arg.toJSON()}
}

// ============================================================
// Func — named scalar function
// ============================================================

type Func struct {
	name string
	arg  Expr
}

func funcOf(name string, arg Expr) *Func { return &Func{name: name, arg: arg} }

func ExpOf(arg Expr) Expr { return funcOf("exp", arg).Simplify() }
func SinOf(arg Expr) Expr { return funcOf("sin", arg).Simplify() }
func CosOf(arg Expr) Expr { return funcOf("cos", arg).Simplify() }

func (f *Func) Simplify() Expr {
	arg := f.arg.Simplify()
	if n, ok := arg.(*Num); ok && n.IsZero() {
		switch f.name {
		case "exp", "cos":
			return N(1)
		case "sin":
			return N(0)
		}
	}
	return &Func{name: f.name, arg: arg}
}

func (f *Func) String() string { return f.name + "(" + f.arg.String() + ")" }

func (f *Func) LaTeX() string {
	switch f.name {
	case "exp":
		return "e^{" + f.arg.LaTeX() + "}"
	default:
		return "\\" + f.name + "\\left(" + f.arg.LaTeX() + "\\right)"
	}
}

func (f *Func) Sub(name string, value Expr) Expr {
	return funcOf(f.name, f.arg.Sub(name, value)).Simplify()
}

func (f *Func) Conjugate() Expr {
	// exp, sin, cos commute with conjugation.
	switch f.name {
	case "exp", "sin", "cos":
		return funcOf(f.name, f.arg.Conjugate()).Simplify()
	}
	return &Conj{arg: f}
}

func (f *Func) Eval(bind Bindings) (complex128, error) {
	v, err := f.arg.Eval(bind)
	if err != nil {
		return 0, err
	}
	switch f.name {
	case "exp":
		return cmplx.Exp(v), nil
	case "sin":
		return cmplx.Sin(v), nil
	case "cos":
		return cmplx.Cos(v), nil
	}
	return 0, fmt.Errorf("slh: unknown function %q", f.name)
}

func (f *Func) Equal(other Expr) bool {
	o, ok := other.(*Func)
	return ok && f.name == o.name && f.arg.Equal(o.arg)
}

func (f *Func) exprType() string { return "func" }
func (f *Func) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "func", "name": f.name, "arg": f.arg.toJSON()}
}
func (f *Func) FuncName() string { return f.name }
func (f *Func) Arg() Expr        { return f.arg }

// ============================================================
// Utilities
// ============================================================

// NegOf returns -e.
func NegOf(e Expr) Expr { return MulOf(N(-1), e) }

// SubOf returns a - b.
func SubOf(a, b Expr) Expr { return AddOf(a, NegOf(b)) }

// FreeParams lists the symbolic parameter names in e, sorted.
func FreeParams(e Expr) []string {
	set := map[string]struct{}{}
	collectParams(e, set)
	names := maps.Keys(set)
	sort.Strings(names)
	return names
}

func collectParams(e Expr, out map[string]struct{}) {
	switch v := e.(type) {
	case *Sym:
		out[v.name] = struct{}{}
	case *Add:
		for _, t := range v.terms {
			collectParams(t, out)
		}
	case *Mul:
		for _, f := range v.factors {
			collectParams(f, out)
		}
	case *Pow:
		collectParams(v.base, out)
		collectParams(v.exp, out)
	case *Conj:
		collectParams(v.arg, out)
	case *Func:
		collectParams(v.arg, out)
	case *Wild:
		// patterns carry no parameters
	}
}

// ratSqrt returns the exact square root of a nonnegative rational, or
// false when no exact root exists.
func ratSqrt(r *big.Rat) (*big.Rat, bool) {
	sqrtInt := func(x *big.Int) (*big.Int, bool) {
		s := new(big.Int).Sqrt(x)
		check := new(big.Int).Mul(s, s)
		return s, check.Cmp(x) == 0
	}
	num, okN := sqrtInt(r.Num())
	if !okN {
		return nil, false
	}
	den, okD := sqrtInt(r.Denom())
	if !okD {
		return nil, false
	}
	return new(big.Rat).SetFrac(num, den), true
}

// DeepSimplify applies Simplify until a fixed point, bounded at 10 passes.
func DeepSimplify(e Expr) Expr {
	prev := e
	for i := 0; i < 10; i++ {
		next := prev.Simplify()
		if next.Equal(prev) {
			return next
		}
		prev = next
	}
	return prev
}
