package codec

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
)

// #region encode
// encodeCases renders cases as plain values accepted by structpb.NewStruct.
func encodeCases(cases []*parse.ParseCase) []any {
	out := make([]any, len(cases))
	for i, c := range cases {
		choices := make([]any, len(c.Choices))
		for j, p := range c.Choices {
			choices[j] = p.Name
		}
		var decision any
		if c.Decided() {
			decision = c.Decision().Name
		}
		out[i] = map[string]any{
			"tokens":   stringsToAny(c.Context.Tokens()),
			"depth":    c.Depth,
			"previous": stringsToAny(c.Previous),
			"choices":  choices,
			"decision": decision,
		}
	}
	return out
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func matrixToAny(m [][]float64) []any {
	out := make([]any, len(m))
	for i, row := range m {
		r := make([]any, len(row))
		for j, v := range row {
			r[j] = v
		}
		out[i] = r
	}
	return out
}

func tensorToAny(t [][][]float64) []any {
	out := make([]any, len(t))
	for i, m := range t {
		out[i] = matrixToAny(m)
	}
	return out
}

// #endregion encode

// #region decode
func vector(v *structpb.Value) ([]float64, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("expected list, got %T", v.GetKind())
	}
	out := make([]float64, len(list.GetValues()))
	for i, x := range list.GetValues() {
		if _, ok := x.GetKind().(*structpb.Value_NumberValue); !ok {
			return nil, fmt.Errorf("element %d: expected number", i)
		}
		out[i] = x.GetNumberValue()
	}
	return out, nil
}

func matrix(v *structpb.Value) ([][]float64, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("expected list of rows")
	}
	out := make([][]float64, len(list.GetValues()))
	for i, row := range list.GetValues() {
		r, err := vector(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

func tensor3(v *structpb.Value) ([][][]float64, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("expected list of matrices")
	}
	out := make([][][]float64, len(list.GetValues()))
	for i, m := range list.GetValues() {
		mat, err := matrix(m)
		if err != nil {
			return nil, fmt.Errorf("matrix %d: %w", i, err)
		}
		out[i] = mat
	}
	return out, nil
}

// #endregion decode
