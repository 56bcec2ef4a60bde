package slh

import "errors"

// ============================================================
// Error Taxonomy
// ============================================================
//
// All failures of circuit construction, reduction, and compilation
// unwrap (errors.Is) to exactly one of the sentinels below. Callers
// should branch on the sentinel, not on message text.

var (
	// ErrChannelMismatch reports a series composition whose upstream
	// output arity differs from the downstream input arity, or an SLH
	// triple whose S, L shapes disagree.
	ErrChannelMismatch = errors.New("slh: channel count mismatch")

	// ErrInvalidPermutation reports an index sequence that is not a
	// bijection on 0..n-1, or a permutation applied to a circuit of a
	// different channel count.
	ErrInvalidPermutation = errors.New("slh: invalid permutation")

	// ErrInvalidFeedbackArity reports a feedback loop requested on a
	// circuit with fewer than two channels, or with port indices out
	// of range.
	ErrInvalidFeedbackArity = errors.New("slh: invalid feedback arity")

	// ErrSingularFeedback reports a feedback elimination whose scattering
	// denominator 1 - S[out,in] is zero, either exactly at reduction
	// time or numerically at compile time.
	ErrSingularFeedback = errors.New("slh: singular feedback loop")

	// ErrIncompatibleModeSpace reports two operators that claim the same
	// mode label with conflicting truncation dimensions.
	ErrIncompatibleModeSpace = errors.New("slh: incompatible mode spaces")

	// ErrUnboundParameter reports a numeric evaluation that reached a
	// symbolic parameter or operator symbol with no binding.
	ErrUnboundParameter = errors.New("slh: unbound parameter")

	// ErrRewriteDivergence reports a rewrite fixpoint that did not
	// stabilize within its pass budget.
	ErrRewriteDivergence = errors.New("slh: rewrite did not converge")
)

// errDivZero marks an exact or numeric division by zero during scalar
// evaluation. Compile translates it to ErrSingularFeedback, since the
// only reciprocals the algebra itself produces are feedback denominators.
var errDivZero = errors.New("slh: division by zero")
