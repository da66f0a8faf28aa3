package query

import (
	"fmt"
	"strings"
)

// Variables is the builder-owned table consulted when a function argument is
// a `$name` reference. Functions hold the map itself, not a copy, so bindings
// made after a function was applied are still visible when it renders.
type Variables map[string]any

// Function applies a named transformation to its first argument, which is a
// selector or another Function.
type Function struct {
	name string
	args []any
	vars Variables
}

// NewFunction creates a function application. args[0] is normally the wrapped
// selector or function.
func NewFunction(name string, args []any, vars Variables) *Function {
	return &Function{
		name: name,
		args: args,
		vars: vars,
	}
}

// Name returns the function name.
func (f *Function) Name() string {
	return f.name
}

// Render returns `name(arg, arg, ...)`.
func (f *Function) Render() (string, error) {
	encoded := make([]string, len(f.args))
	for i, arg := range f.args {
		s, err := f.encodeArg(arg)
		if err != nil {
			return "", fmt.Errorf("cannot render argument %d of %s: %w", i, f.name, err)
		}
		encoded[i] = s
	}
	return f.name + "(" + strings.Join(encoded, ", ") + ")", nil
}

// String implements fmt.Stringer. A function that fails to render yields an
// empty string; use Render to get the error.
func (f *Function) String() string {
	s, _ := f.Render()
	return s
}

func (f *Function) encodeArg(arg any) (string, error) {
	if s, ok := arg.(string); ok && strings.HasPrefix(s, "$") {
		name := s[1:]
		v, declared := f.vars[name]
		if !declared {
			return "", &UndeclaredVariableError{Name: name}
		}
		arg = v
	}
	if r, ok := arg.(Renderable); ok {
		return r.Render()
	}
	return FormatValue(arg), nil
}
