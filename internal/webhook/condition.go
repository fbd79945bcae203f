package webhook

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Condition is an optional boolean expression that further restricts which
// publish events are sent. It can refer to post (the payload, by JSON field
// names), new_status and old_status.
type Condition struct {
	source  string
	program *vm.Program
}

// CompileCondition compiles src. An empty source yields a nil condition,
// which allows everything.
func CompileCondition(src string) (*Condition, error) {
	if src == "" {
		return nil, nil
	}
	prog, err := expr.Compile(src, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile webhook condition: %w", err)
	}
	return &Condition{source: src, program: prog}, nil
}

func (c *Condition) String() string {
	if c == nil {
		return ""
	}
	return c.source
}

// Allows evaluates the condition against a publish event.
func (c *Condition) Allows(newStatus, oldStatus string, payload *Payload) (bool, error) {
	if c == nil {
		return true, nil
	}
	env := map[string]any{
		"post":       payload.asMap(),
		"new_status": newStatus,
		"old_status": oldStatus,
	}
	result, err := expr.Run(c.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate webhook condition: %w", err)
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("webhook condition did not return bool")
	}
	return b, nil
}
