package slh_test

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	slh "github.com/njchilds90/go-slh"
)

func grid(m *mat.CDense) [][]complex128 {
	r, c := m.Dims()
	out := make([][]complex128, r)
	for i := 0; i < r; i++ {
		out[i] = make([]complex128, c)
		for j := 0; j < c; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

var approxC = cmp.Comparer(func(a, b complex128) bool {
	return cmplx.Abs(a-b) < 1e-12
})

func TestCompile_CavityNumberOperator(t *testing.T) {
	res, err := slh.Compile(slh.Cavity("q", slh.N(4), slh.N(1)), nil, map[string]int{"q": 3})
	require.NoError(t, err)
	require.Equal(t, 1, res.Channels)
	require.Len(t, res.ChannelNames, 1)
	require.Equal(t, []int{3}, res.Dims)

	wantH := [][]complex128{
		{0, 0, 0},
		{0, 1, 0},
		{0, 0, 2},
	}
	if diff := cmp.Diff(wantH, grid(res.H), approxC); diff != "" {
		t.Errorf("Hamiltonian mismatch (-want +got):\n%s", diff)
	}

	// L = sqrt(4) a: entries √1·2 and √2·2 on the superdiagonal.
	wantL := [][]complex128{
		{0, 2, 0},
		{0, 0, complex(2*math.Sqrt2, 0)},
		{0, 0, 0},
	}
	if diff := cmp.Diff(wantL, grid(res.L[0]), approxC); diff != "" {
		t.Errorf("coupling mismatch (-want +got):\n%s", diff)
	}

	require.Less(t, cmplx.Abs(res.S.At(0, 0)-1), 1e-12)
}

func TestCompile_BeamsplitterUnitary(t *testing.T) {
	res, err := slh.Compile(slh.Beamsplitter(slh.F(1, 2)), nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, res.Channels)
	require.Less(t, slh.UnitarityDefect(res.S), 1e-12)
	require.Less(t, cmplx.Abs(res.S.At(0, 0)-complex(0, 0.5)), 1e-12)
	require.Less(t, cmplx.Abs(res.S.At(0, 1)-complex(math.Sqrt(0.75), 0)), 1e-12)
}

func TestCompile_PhaseShifterBinding(t *testing.T) {
	res, err := slh.Compile(slh.PhaseShifter(slh.S("phi")),
		slh.Bindings{"phi": complex(math.Pi, 0)}, nil)
	require.NoError(t, err)
	require.Less(t, cmplx.Abs(res.S.At(0, 0)-(-1)), 1e-12)
}

func TestCompile_FeedbackLoop(t *testing.T) {
	blocks, err := slh.Concat(slh.Cavity("q", slh.N(4), slh.S("Delta")), slh.CIdentity(1))
	require.NoError(t, err)
	chain, err := slh.Series(slh.Beamsplitter(slh.F(1, 2)), blocks)
	require.NoError(t, err)
	loop, err := slh.FeedbackOf(chain, 0, 0)
	require.NoError(t, err)

	res, err := slh.Compile(loop, slh.Bindings{"Delta": 0}, map[string]int{"q": 4})
	require.NoError(t, err)
	require.Equal(t, 1, res.Channels)

	require.Less(t, slh.UnitarityDefect(res.S), 1e-12)
	require.Less(t, cmplx.Abs(res.S.At(0, 0)-complex(0.6, 0.8)), 1e-12)

	// H = (8/5) a†a on the closed loop.
	for k := 0; k < 4; k++ {
		want := complex(1.6*float64(k), 0)
		require.Less(t, cmplx.Abs(res.H.At(k, k)-want), 1e-12, "H[%d,%d]", k, k)
	}

	// The loop renormalizes the coupling to magnitude 2√(3/5) per photon.
	require.InDelta(t, 2*math.Sqrt(3.0/5.0), cmplx.Abs(res.L[0].At(0, 1)), 1e-12)
}

func TestCompile_SingularAtBindings(t *testing.T) {
	s := slh.MatrixFromSlice(2, 2, []slh.Expr{
		slh.S("r"), slh.N(1),
		slh.N(1), slh.S("r"),
	})
	comp, err := slh.NewComponent("relay", s, []slh.Op{slh.ZeroOp, slh.ZeroOp}, slh.ZeroOp)
	require.NoError(t, err)
	loop, err := slh.FeedbackOf(comp, 0, 0)
	require.NoError(t, err)

	// The eliminated-channel inverse is (1-r)^{-1}; at r=1 it blows up.
	_, err = slh.Compile(loop, slh.Bindings{"r": 1}, nil)
	require.ErrorIs(t, err, slh.ErrSingularFeedback)

	res, err := slh.Compile(loop, slh.Bindings{"r": 0.5}, nil)
	require.NoError(t, err)
	require.Less(t, cmplx.Abs(res.S.At(0, 0)-complex(2.5, 0)), 1e-12)
}

func TestCompile_UnboundScalar(t *testing.T) {
	_, err := slh.Compile(slh.Cavity("q", slh.S("kappa"), slh.N(0)), nil, map[string]int{"q": 2})
	require.ErrorIs(t, err, slh.ErrUnboundParameter)
}

func TestCompile_MissingFockDimension(t *testing.T) {
	_, err := slh.Compile(slh.Cavity("q", slh.N(4), slh.N(0)), nil, nil)
	require.ErrorIs(t, err, slh.ErrUnboundParameter)
}

func TestCompile_OperatorSymbolHasNoRealization(t *testing.T) {
	h := slh.HermitianSymbol("V", slh.M("q"))
	comp, err := slh.NewComponent("box", slh.Identity(1), []slh.Op{slh.ZeroOp}, h)
	require.NoError(t, err)
	_, err = slh.Compile(comp, nil, map[string]int{"q": 2})
	require.ErrorIs(t, err, slh.ErrUnboundParameter)
}

func TestCompile_TwoModeTensorProduct(t *testing.T) {
	blocks, err := slh.Concat(
		slh.Cavity("q", slh.N(1), slh.N(1)),
		slh.Cavity("r", slh.N(1), slh.N(2)),
	)
	require.NoError(t, err)

	res, err := slh.Compile(blocks, nil, map[string]int{"q": 2, "r": 3})
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, res.Dims)

	// H = n_q ⊗ 1 + 2·(1 ⊗ n_r) on the 6-dimensional product space,
	// diagonal (0,2,4,1,3,5) in lexicographic Fock order.
	want := []complex128{0, 2, 4, 1, 3, 5}
	for k, w := range want {
		require.Less(t, cmplx.Abs(res.H.At(k, k)-w), 1e-12, "H[%d,%d]", k, k)
	}

	// a_q acts on the first slot: ⟨0,j|a_q|1,j⟩ = 1.
	require.Less(t, cmplx.Abs(res.L[0].At(0, 3)-1), 1e-12)
	// a_r acts on the second slot: ⟨i,0|a_r|i,1⟩ = 1.
	require.Less(t, cmplx.Abs(res.L[1].At(0, 1)-1), 1e-12)
}

func TestCompile_AbstractCircuitFails(t *testing.T) {
	sym, err := slh.NewCircuitSymbol("X", 1)
	require.NoError(t, err)
	_, err = slh.Compile(sym, nil, nil)
	require.Error(t, err)
}
