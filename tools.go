package slh

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ============================================================
// Tool Interface
// ============================================================
//
// A small JSON-call surface so agent frameworks and diagram tools can
// drive the kernel without linking Go: build a circuit from a netlist,
// reduce it, print its triple, or compile it to numbers.

type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func errResponse(err error) ToolResponse { return ToolResponse{Error: err.Error()} }

func HandleToolCall(req ToolRequest) ToolResponse {
	getCircuit := func() (Circuit, error) {
		v, ok := req.Params["circuit"]
		if !ok {
			return nil, fmt.Errorf("missing param: circuit")
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("param circuit must be an object")
		}
		return CircuitFromJSON(m)
	}

	switch req.Tool {
	case "reduce":
		c, err := getCircuit()
		if err != nil {
			return errResponse(err)
		}
		reduced, err := Reduce(c)
		if err != nil {
			return errResponse(err)
		}
		tree, err := CircuitToJSON(reduced)
		if err != nil {
			return errResponse(err)
		}
		var result interface{}
		if err := json.Unmarshal([]byte(tree), &result); err != nil {
			return errResponse(err)
		}
		return ToolResponse{Result: result, String: reduced.String()}

	case "slh":
		c, err := getCircuit()
		if err != nil {
			return errResponse(err)
		}
		comp, err := ToSLH(c)
		if err != nil {
			return errResponse(err)
		}
		ls := make([]string, len(comp.L))
		for i, op := range comp.L {
			ls[i] = op.String()
		}
		defect := ScatteringDefect(comp.Scattering())
		return ToolResponse{
			Result: map[string]interface{}{
				"S": strings.Split(comp.S.String(), "\n"),
				"L": ls,
				"H": comp.H.String(),
				// Exact symbolic S·S† − I; the zero matrix for
				// fully numeric physical scattering matrices.
				"unitary_defect": strings.Split(defect.String(), "\n"),
				"unitary_exact":  defect.IsZero(),
			},
			String: comp.String(),
		}

	case "compile":
		c, err := getCircuit()
		if err != nil {
			return errResponse(err)
		}
		bind := Bindings{}
		if raw, ok := req.Params["bindings"].(map[string]interface{}); ok {
			for name, v := range raw {
				f, ok := v.(float64)
				if !ok {
					return errResponse(fmt.Errorf("binding %q must be a number", name))
				}
				bind[name] = complex(f, 0)
			}
		}
		dims := map[string]int{}
		if raw, ok := req.Params["dims"].(map[string]interface{}); ok {
			for label, v := range raw {
				f, ok := v.(float64)
				if !ok {
					return errResponse(fmt.Errorf("dim %q must be a number", label))
				}
				dims[label] = int(f)
			}
		}
		compiled, err := Compile(c, bind, dims)
		if err != nil {
			return errResponse(err)
		}
		toGrid := func(rows, cols int, at func(i, j int) complex128) [][][2]float64 {
			out := make([][][2]float64, rows)
			for i := 0; i < rows; i++ {
				out[i] = make([][2]float64, cols)
				for j := 0; j < cols; j++ {
					v := at(i, j)
					out[i][j] = [2]float64{real(v), imag(v)}
				}
			}
			return out
		}
		n := compiled.Channels
		hr, hc := compiled.H.Dims()
		ls := make([]interface{}, len(compiled.L))
		for i, lm := range compiled.L {
			lr, lc := lm.Dims()
			ls[i] = toGrid(lr, lc, lm.At)
		}
		labels := make([]string, len(compiled.Modes))
		for i, m := range compiled.Modes {
			labels[i] = m.Label
		}
		return ToolResponse{Result: map[string]interface{}{
			"S":         toGrid(n, n, compiled.S.At),
			"L":         ls,
			"H":         toGrid(hr, hc, compiled.H.At),
			"channels":  compiled.ChannelNames,
			"modes":     labels,
			"dims":      compiled.Dims,
			"unitarity": UnitarityDefect(compiled.S),
		}}

	case "to_json":
		c, err := getCircuit()
		if err != nil {
			return errResponse(err)
		}
		tree, err := CircuitToJSON(c)
		if err != nil {
			return errResponse(err)
		}
		var result interface{}
		if err := json.Unmarshal([]byte(tree), &result); err != nil {
			return errResponse(err)
		}
		return ToolResponse{Result: result, String: c.String()}
	}
	return errResponse(fmt.Errorf("unknown tool: %s", req.Tool))
}

// ToolSpec returns the JSON schema of the tool surface for agent
// registration.
func ToolSpec() string {
	spec := map[string]interface{}{
		"tools": []map[string]interface{}{
			ts("reduce", "Rewrite a circuit netlist to canonical form",
				[]string{"circuit"}, map[string]string{"circuit": "object"}),
			ts("slh", "Evaluate a circuit netlist to a single (S, L, H) triple",
				[]string{"circuit"}, map[string]string{"circuit": "object"}),
			ts("compile", "Bind parameters and compile a circuit to numeric matrices",
				[]string{"circuit"}, map[string]string{
					"circuit": "object", "bindings": "object", "dims": "object",
				}),
			ts("to_json", "Export a circuit netlist as a JSON tree",
				[]string{"circuit"}, map[string]string{"circuit": "object"}),
		},
	}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, v := range props {
		properties[k] = map[string]string{"type": v}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
