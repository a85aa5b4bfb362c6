// Package condition compiles the free-text condition attached to a
// permission rule. Conditions are expr expressions over the request
// environment. They are validated when a rule is written and can be
// re-checked in bulk, but the decision pipeline does not evaluate them:
// a stored condition has no effect on authorization outcomes.
package condition

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Env is the environment a condition expression is compiled against.
type Env struct {
	// AgentID, Action and Resource mirror the authorization request.
	AgentID  string `expr:"agent_id"`
	Action   string `expr:"action"`
	Resource string `expr:"resource"`

	// Now is the wall-clock time of the (hypothetical) evaluation.
	Now time.Time `expr:"now"`
}

// Compile parses and type-checks the condition text. An empty condition
// is valid and compiles to nil.
func Compile(text string) (*vm.Program, error) {
	if text == "" {
		return nil, nil
	}
	program, err := expr.Compile(text, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling condition %q: %w", text, err)
	}
	return program, nil
}

// Validate reports whether the condition text would compile.
func Validate(text string) error {
	_, err := Compile(text)
	return err
}

// Evaluate runs a compiled condition against env. It exists for tooling
// and tests; nothing on the authorization path calls it.
func Evaluate(program *vm.Program, env Env) (bool, error) {
	if program == nil {
		return true, nil
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("evaluating condition: %w", err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition returned %T, want bool", out)
	}
	return b, nil
}
