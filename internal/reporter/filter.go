package reporter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/setevik/droidtriage/internal/analyzer"
	"github.com/setevik/droidtriage/internal/heuristic"
)

// filterEnv is what a filter expression sees for one failure.
type filterEnv struct {
	Type     string
	Name     string
	Summary  string
	Device   string
	Evidence map[string]any
}

// Filter decides per failure whether it is notified. The zero Filter and a
// nil *Filter keep everything.
type Filter struct {
	src     string
	program *vm.Program
}

// NewFilter compiles a boolean expression. An empty expression keeps every
// failure.
func NewFilter(src string) (*Filter, error) {
	if src == "" {
		return &Filter{}, nil
	}
	program, err := expr.Compile(src, expr.Env(filterEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling ntfy filter %q: %w", src, err)
	}
	return &Filter{src: src, program: program}, nil
}

// Keep reports whether f should be notified. Evaluation errors keep the
// failure so that a bad expression never hides one.
func (f *Filter) Keep(r *analyzer.Report, res heuristic.Result) (bool, error) {
	if f == nil || f.program == nil {
		return true, nil
	}
	out, err := expr.Run(f.program, filterEnv{
		Type:     res.Type,
		Name:     res.Name,
		Summary:  res.Summary,
		Device:   r.Device,
		Evidence: res.Evidence,
	})
	if err != nil {
		return true, fmt.Errorf("evaluating ntfy filter %q: %w", f.src, err)
	}
	keep, _ := out.(bool)
	return keep, nil
}
