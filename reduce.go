package slh

import "fmt"

// ============================================================
// Composition Laws
// ============================================================

// permComponent realizes a pure rewiring as a concrete triple: a 0/1
// scattering matrix, no coupling, no Hamiltonian.
func permComponent(p Permutation) *Component {
	n := len(p)
	s := NewMatrix(n, n)
	l := make([]Op, n)
	for j := 0; j < n; j++ {
		s.Set(p[j], j, N(1))
		l[j] = ZeroOp
	}
	return &Component{name: "Perm" + p.String(), channels: n, S: s, L: l, H: ZeroOp}
}

// seriesSLH feeds a into b:
//
//	S = S_b·S_a
//	L = L_b + S_b·L_a
//	H = H_a + H_b + Im{L_b† S_b L_a}
func seriesSLH(a, b *Component) *Component {
	s := b.S.MatMul(a.S)
	l := addOpVecs(b.S.ApplyToOps(a.L), b.L)
	n := a.channels
	cross := make([]Op, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			cross = append(cross, Scale(b.S.Get(i, j), MulOps(b.L[i].Dag(), a.L[j])))
		}
	}
	h := AddOps(a.H, b.H, ImOp(AddOps(cross...)))
	name := "(" + a.name + " >> " + b.name + ")"
	return &Component{name: name, channels: n, S: s, L: l, H: h}
}

// concatSLH stacks a above b: block-diagonal S, stacked L, summed H.
func concatSLH(a, b *Component) *Component {
	s := BlockDiag(a.S, b.S)
	l := append(append([]Op(nil), a.L...), b.L...)
	h := AddOps(a.H, b.H)
	name := "(" + a.name + " + " + b.name + ")"
	return &Component{name: name, channels: a.channels + b.channels, S: s, L: l, H: h}
}

// feedbackSLH eliminates the loop from output k into input l:
//
//	x = 1 - S[k,l]
//	S'[i,j] = S[i,j] + S[i,l]·x⁻¹·S[k,j]
//	L'[i]   = L[i] + S[i,l]·x⁻¹·L[k]
//	H'      = H + Im{(Σ_i L_i† S[i,l])·x⁻¹·L[k]}
//
// over the surviving rows i != k and columns j != l. A numerically
// zero denominator is rejected; a symbolic one stays as x⁻¹ and can
// still fail at compile time.
func feedbackSLH(c *Component, out, in int) (*Component, error) {
	n := c.channels
	x := SubOf(N(1), c.S.Get(out, in))
	var inv Expr
	if xn, ok := x.(*Num); ok {
		if xn.IsZero() {
			return nil, fmt.Errorf("%w: 1 - S[%d,%d] = 0", ErrSingularFeedback, out, in)
		}
		inv = numRecip(xn)
	} else {
		inv = PowOf(x, N(-1))
	}

	// Surviving block, plus the eliminated column and row as a
	// rank-one correction: S' = S_sub + x⁻¹·(S[·,in] ⊗ S[out,·]).
	sub := NewMatrix(n-1, n-1)
	col := NewMatrix(n-1, 1)
	fedRow := NewMatrix(1, n-1)
	kept := make([]Op, 0, n-1)
	ci := 0
	for j := 0; j < n; j++ {
		if j == in {
			continue
		}
		fedRow.Set(0, ci, c.S.Get(out, j))
		ci++
	}
	ri := 0
	for i := 0; i < n; i++ {
		if i == out {
			continue
		}
		col.Set(ri, 0, c.S.Get(i, in))
		kept = append(kept, c.L[i])
		ci = 0
		for j := 0; j < n; j++ {
			if j == in {
				continue
			}
			sub.Set(ri, ci, c.S.Get(i, j))
			ci++
		}
		ri++
	}
	s := sub.MatAdd(col.MatMul(fedRow).Scale(inv))

	l := addOpVecs(kept, col.Scale(inv).ApplyToOps([]Op{c.L[out]}))

	cross := make([]Op, 0, n)
	for i := 0; i < n; i++ {
		cross = append(cross, Scale(c.S.Get(i, in), MulOps(c.L[i].Dag(), c.L[out])))
	}
	h := AddOps(c.H, ImOp(Scale(inv, AddOps(cross...))))

	name := fmt.Sprintf("[%s]_{%d->%d}", c.name, out, in)
	return &Component{name: name, channels: n - 1, S: s, L: l, H: h}, nil
}

// ============================================================
// ToSLH — full evaluation to a single triple
// ============================================================

// ToSLH folds every composition law and returns the single concrete
// component equivalent to the circuit.
func ToSLH(c Circuit) (*Component, error) {
	switch v := c.(type) {
	case *Component:
		return v, nil
	case *CircuitPerm:
		return permComponent(v.perm), nil
	case *SeriesProduct:
		acc, err := ToSLH(v.operands[0])
		if err != nil {
			return nil, err
		}
		for _, op := range v.operands[1:] {
			next, err := ToSLH(op)
			if err != nil {
				return nil, err
			}
			acc = seriesSLH(acc, next)
		}
		return acc, nil
	case *Concatenation:
		acc, err := ToSLH(v.operands[0])
		if err != nil {
			return nil, err
		}
		for _, op := range v.operands[1:] {
			next, err := ToSLH(op)
			if err != nil {
				return nil, err
			}
			acc = concatSLH(acc, next)
		}
		return acc, nil
	case *Feedback:
		inner, err := ToSLH(v.inner)
		if err != nil {
			return nil, err
		}
		return feedbackSLH(inner, v.out, v.in)
	case *CircuitSymbol:
		return nil, fmt.Errorf("slh: abstract circuit %q has no SLH realization", v.name)
	}
	return nil, fmt.Errorf("slh: unknown circuit node %T", c)
}

// ============================================================
// Reduce — canonical form by bounded fixpoint
// ============================================================

const maxReducePasses = 1000

// Reduce rewrites a circuit to canonical form: nested compositions
// flatten, adjacent concrete components fuse, permutations compose,
// split across concatenation boundaries, and vanish when trivial. A
// fully concrete circuit reduces to a single component. The fixpoint
// is bounded; exhaustion reports ErrRewriteDivergence.
func Reduce(c Circuit) (Circuit, error) {
	cur := c
	for i := 0; i < maxReducePasses; i++ {
		next, changed, err := reduceOnce(cur)
		if err != nil {
			return nil, err
		}
		if !changed {
			return next, nil
		}
		cur = next
	}
	return nil, fmt.Errorf("%w: circuit reduction after %d passes",
		ErrRewriteDivergence, maxReducePasses)
}

func reduceOnce(c Circuit) (Circuit, bool, error) {
	switch v := c.(type) {
	case *Component:
		return v, false, nil

	case *CircuitPerm:
		return v, false, nil

	case *CircuitSymbol:
		return v, false, nil

	case *Feedback:
		inner, changed, err := reduceOnce(v.inner)
		if err != nil {
			return nil, false, err
		}
		if comp, ok := inner.(*Component); ok {
			fused, err := feedbackSLH(comp, v.out, v.in)
			if err != nil {
				return nil, false, err
			}
			return fused, true, nil
		}
		if !changed {
			return v, false, nil
		}
		next, err := FeedbackOf(inner, v.out, v.in)
		if err != nil {
			return nil, false, err
		}
		return next, true, nil

	case *Concatenation:
		return reduceConcat(v)

	case *SeriesProduct:
		return reduceSeries(v)
	}
	return nil, false, fmt.Errorf("slh: unknown circuit node %T", c)
}

func reduceConcat(c *Concatenation) (Circuit, bool, error) {
	changed := false
	ops := make([]Circuit, len(c.operands))
	for i, op := range c.operands {
		r, ch, err := reduceOnce(op)
		if err != nil {
			return nil, false, err
		}
		ops[i] = r
		changed = changed || ch
	}
	// Fuse adjacent concrete blocks.
	i := 0
	for i < len(ops)-1 {
		a, okA := ops[i].(*Component)
		b, okB := ops[i+1].(*Component)
		if okA && okB {
			ops[i] = concatSLH(a, b)
			ops = append(ops[:i+1], ops[i+2:]...)
			changed = true
			continue
		}
		i++
	}
	next, err := Concat(ops...)
	if err != nil {
		return nil, false, err
	}
	if _, still := next.(*Concatenation); !still {
		changed = true
	}
	return next, changed, nil
}

func reduceSeries(s *SeriesProduct) (Circuit, bool, error) {
	changed := false
	ops := []Circuit{}
	for _, op := range s.operands {
		r, ch, err := reduceOnce(op)
		if err != nil {
			return nil, false, err
		}
		changed = changed || ch
		if inner, ok := r.(*SeriesProduct); ok {
			ops = append(ops, inner.operands...)
			changed = true
		} else {
			ops = append(ops, r)
		}
	}

	i := 0
	for i < len(ops) {
		// Identity rewirings vanish.
		if p, ok := ops[i].(*CircuitPerm); ok && p.perm.IsIdentity() {
			ops = append(ops[:i], ops[i+1:]...)
			changed = true
			if i > 0 {
				i--
			}
			continue
		}
		if i == len(ops)-1 {
			break
		}

		// Adjacent rewirings compose.
		if p, ok := ops[i].(*CircuitPerm); ok {
			if q, ok2 := ops[i+1].(*CircuitPerm); ok2 {
				ops[i] = PermutationCircuit(p.perm.Then(q.perm))
				ops = append(ops[:i+1], ops[i+2:]...)
				changed = true
				continue
			}
		}

		// A rewiring downstream of a concatenation trades places with
		// it when it respects the block boundaries: per-block shuffles
		// sink into the blocks and the block swap moves upstream.
		if cc, ok := ops[i].(*Concatenation); ok {
			if p, ok2 := ops[i+1].(*CircuitPerm); ok2 {
				replaced, ok3, err := splitPermOverConcat(cc, p.perm)
				if err != nil {
					return nil, false, err
				}
				if ok3 {
					ops = append(ops[:i], append(replaced, ops[i+2:]...)...)
					changed = true
					if i > 0 {
						i--
					}
					continue
				}
			}
		}

		// A rewiring downstream of a component reorders its rows; one
		// upstream reorders its columns. Either way the rewiring is
		// absorbed without a full series fuse.
		if comp, ok := ops[i].(*Component); ok {
			if p, ok2 := ops[i+1].(*CircuitPerm); ok2 {
				ops[i] = permuteOutputsSLH(comp, p.perm)
				ops = append(ops[:i+1], ops[i+2:]...)
				changed = true
				if i > 0 {
					i--
				}
				continue
			}
		}
		if p, ok := ops[i].(*CircuitPerm); ok {
			if comp, ok2 := ops[i+1].(*Component); ok2 {
				ops[i] = permuteInputsSLH(comp, p.perm)
				ops = append(ops[:i+1], ops[i+2:]...)
				changed = true
				if i > 0 {
					i--
				}
				continue
			}
		}

		// Adjacent concrete components fuse through the series law.
		a, okA := ops[i].(*Component)
		b, okB := ops[i+1].(*Component)
		if okA && okB {
			ops[i] = seriesSLH(a, b)
			ops = append(ops[:i+1], ops[i+2:]...)
			changed = true
			if i > 0 {
				i--
			}
			continue
		}
		i++
	}

	if len(ops) == 0 {
		// A series of identity rewirings: nothing remains but a wire.
		return PermutationCircuit(IdentityPermutation(s.channels)), true, nil
	}
	next, err := Series(ops...)
	if err != nil {
		return nil, false, err
	}
	if _, still := next.(*SeriesProduct); !still {
		changed = true
	}
	return next, changed, nil
}

// permuteOutputsSLH absorbs a rewiring that follows c: output channel
// i of c becomes channel p[i], so S rows and L entries move with it
// and H is untouched.
func permuteOutputsSLH(c *Component, p Permutation) *Component {
	l := make([]Op, c.channels)
	for i, op := range c.L {
		l[p[i]] = op
	}
	name := "(" + c.name + " >> Perm" + p.String() + ")"
	return &Component{
		name: name, channels: c.channels,
		S: c.S.PermuteOutputs(p), L: l, H: c.H,
	}
}

// permuteInputsSLH absorbs a rewiring that precedes c: input channel j
// of the result feeds input p[j] of c, so S' columns read
// S'[i,j] = S[i,p[j]] while L and H are untouched.
func permuteInputsSLH(c *Component, p Permutation) *Component {
	name := "(Perm" + p.String() + " >> " + c.name + ")"
	return &Component{
		name: name, channels: c.channels,
		S: c.S.PermuteInputs(p.Inverse()), L: c.L, H: c.H,
	}
}

// splitPermOverConcat rewrites Concat(A_1..A_m) >> Perm(σ), when σ is
// a block permutation over the concatenation's channel blocks, into
// Perm(τ) >> Concat(blocks in output order, each followed by its
// inner shuffle). τ is the block swap lifted to channel level.
func splitPermOverConcat(c *Concatenation, p Permutation) ([]Circuit, bool, error) {
	sizes := c.blockSizes()
	blockPerm, inner, ok := blockDecompose(p, sizes)
	if !ok {
		return nil, false, nil
	}
	allTrivial := blockPerm.IsIdentity()
	for _, in := range inner {
		if !in.IsIdentity() {
			allTrivial = false
		}
	}
	if allTrivial {
		return []Circuit{c}, true, nil
	}
	order := blockPerm.Inverse()
	parts := make([]Circuit, len(sizes))
	for pos := range sizes {
		b := order[pos]
		block := c.operands[b]
		if !inner[b].IsIdentity() {
			wired, err := Series(block, PermutationCircuit(inner[b]))
			if err != nil {
				return nil, false, err
			}
			block = wired
		}
		parts[pos] = block
	}
	reordered, err := Concat(parts...)
	if err != nil {
		return nil, false, err
	}
	out := []Circuit{}
	tau := liftBlockPerm(blockPerm, sizes)
	if !tau.IsIdentity() {
		out = append(out, PermutationCircuit(tau))
	}
	out = append(out, reordered)
	return out, true, nil
}
