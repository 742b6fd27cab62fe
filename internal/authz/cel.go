package authz

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// newCELEnvironment creates the CEL environment shared by expression
// requirements. Expressions see the caller as `subject` and the call
// descriptor as `call`.
func newCELEnvironment() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("subject", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("call", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// compileExpression compiles a CEL expression into a program.
func compileExpression(env *cel.Env, expression string) (cel.Program, error) {
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must evaluate to bool, got %s", ast.OutputType())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program: %w", err)
	}
	return program, nil
}

// activation builds the CEL evaluation input for one call.
func activation(ctx *CallContext) map[string]interface{} {
	return map[string]interface{}{
		"subject": map[string]interface{}{
			"name":         ctx.Subject,
			"capabilities": ctx.Capabilities,
		},
		"call": map[string]interface{}{
			"service": ctx.Service,
			"method":  ctx.Method,
		},
	}
}
