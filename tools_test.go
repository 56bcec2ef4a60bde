package slh_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	slh "github.com/njchilds90/go-slh"
)

func callTool(t *testing.T, raw string) slh.ToolResponse {
	t.Helper()
	var req slh.ToolRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	return slh.HandleToolCall(req)
}

func TestHandleToolCall_SLH(t *testing.T) {
	resp := callTool(t, `{
		"tool": "slh",
		"params": {"circuit": {"type": "cavity", "mode": "q", "kappa": "4", "delta": "Delta"}}
	}`)
	require.Empty(t, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	ls, ok := result["L"].([]string)
	require.True(t, ok)
	require.Len(t, ls, 1)
	require.Contains(t, ls[0], "a(q)")
	require.Contains(t, result["H"].(string), "a†(q)")

	// S = [1] is exactly unitary, so the symbolic defect vanishes.
	require.Equal(t, true, result["unitary_exact"])
	require.Equal(t, []string{"[0]"}, result["unitary_defect"].([]string))
}

func TestHandleToolCall_CompileFeedbackNetlist(t *testing.T) {
	resp := callTool(t, `{
		"tool": "compile",
		"params": {
			"circuit": {
				"type": "feedback",
				"inner": {
					"type": "series",
					"operands": [
						{"type": "beamsplitter", "r": "1/2"},
						{"type": "concat", "operands": [
							{"type": "cavity", "mode": "q", "kappa": "4", "delta": "0"},
							{"type": "cid", "n": 1}
						]}
					]
				},
				"out": 0,
				"in": 0
			},
			"dims": {"q": 4}
		}
	}`)
	require.Empty(t, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	require.Less(t, result["unitarity"].(float64), 1e-12)
	require.Equal(t, []string{"q"}, result["modes"].([]string))

	s := result["S"].([][][2]float64)
	require.InDelta(t, 0.6, s[0][0][0], 1e-12)
	require.InDelta(t, 0.8, s[0][0][1], 1e-12)

	h := result["H"].([][][2]float64)
	require.InDelta(t, 1.6, h[1][1][0], 1e-12)
	require.InDelta(t, 0, h[1][1][1], 1e-12)
}

func TestHandleToolCall_ReduceMovesPermThroughAbstractBlocks(t *testing.T) {
	resp := callTool(t, `{
		"tool": "reduce",
		"params": {"circuit": {
			"type": "series",
			"operands": [
				{"type": "concat", "operands": [
					{"type": "symbol", "name": "A", "channels": 1},
					{"type": "symbol", "name": "B", "channels": 1}
				]},
				{"type": "perm", "image": [1, 0]}
			]
		}}
	}`)
	require.Empty(t, resp.Error)
	require.Equal(t, "(Perm(1,0) >> (B + A))", resp.String)
}

func TestHandleToolCall_RoundTripNetlist(t *testing.T) {
	netlist := `{
		"tool": "to_json",
		"params": {"circuit": {
			"type": "series",
			"operands": [
				{"type": "beamsplitter", "r": "1/2"},
				{"type": "concat", "operands": [
					{"type": "cavity", "mode": "q", "kappa": "4", "delta": "1"},
					{"type": "phaseshifter", "phi": "0"}
				]}
			]
		}}
	}`
	resp := callTool(t, netlist)
	require.Empty(t, resp.Error)

	tree, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	back, err := slh.CircuitFromJSON(tree)
	require.NoError(t, err)

	var req slh.ToolRequest
	require.NoError(t, json.Unmarshal([]byte(netlist), &req))
	orig, err := slh.CircuitFromJSON(req.Params["circuit"].(map[string]interface{}))
	require.NoError(t, err)

	a, err := slh.ToSLH(orig)
	require.NoError(t, err)
	b, err := slh.ToSLH(back)
	require.NoError(t, err)
	require.True(t, a.EqualSLH(b))
}

func TestHandleToolCall_Errors(t *testing.T) {
	resp := callTool(t, `{"tool": "transmogrify", "params": {}}`)
	require.Contains(t, resp.Error, "unknown tool")

	resp = callTool(t, `{"tool": "slh", "params": {}}`)
	require.Contains(t, resp.Error, "missing param")

	resp = callTool(t, `{"tool": "compile", "params": {
		"circuit": {"type": "cavity", "mode": "q", "kappa": "4", "delta": "0"},
		"bindings": {"kappa": "loud"}
	}}`)
	require.Contains(t, resp.Error, "must be a number")
}

func TestCircuitFromJSON_Rejects(t *testing.T) {
	cases := []struct {
		name string
		data map[string]interface{}
	}{
		{"unknown type", map[string]interface{}{"type": "wormhole"}},
		{"missing type", map[string]interface{}{"r": "1/2"}},
		{"bad scalar", map[string]interface{}{"type": "beamsplitter", "r": 0.5}},
		{"bad image", map[string]interface{}{
			"type": "perm", "image": []interface{}{float64(0), float64(0)},
		}},
		{"bad symbol", map[string]interface{}{
			"type": "symbol", "name": "A", "channels": float64(0),
		}},
	}
	for _, tc := range cases {
		if _, err := slh.CircuitFromJSON(tc.data); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestToolSpec_ListsAllTools(t *testing.T) {
	spec := slh.ToolSpec()
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(spec), &parsed))
	for _, name := range []string{"reduce", "slh", "compile", "to_json"} {
		if !strings.Contains(spec, `"name": "`+name+`"`) {
			t.Errorf("spec missing tool %q", name)
		}
	}
}
