package tmpl

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/getsentry/callprof/internal/errorutil"
	"github.com/getsentry/callprof/internal/profiler"
)

// ContextName is the name under which expressions see the render context.
// Model methods taking a context.Context first receive it without the
// template having to pass it.
const ContextName = "ctx"

type (
	Template struct {
		name  string
		parts []part
	}

	part struct {
		expression string
		line       int
		text       string
	}
)

// Parse splits src into literal text and ${expression} placeholders. name is
// used in frame signatures and error messages, usually the template file name.
func Parse(name, src string) (*Template, error) {
	t := Template{name: name}
	line := 1
	for len(src) > 0 {
		i := strings.Index(src, "${")
		if i < 0 {
			t.parts = append(t.parts, part{text: src})
			break
		}
		if i > 0 {
			t.parts = append(t.parts, part{text: src[:i]})
			line += strings.Count(src[:i], "\n")
		}
		end, err := closingBrace(src[i+2:])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
		expression := strings.TrimSpace(src[i+2 : i+2+end])
		if expression == "" {
			return nil, fmt.Errorf("%s:%d: %w", name, line, errorutil.ErrEmptyExpression)
		}
		t.parts = append(t.parts, part{expression: expression, line: line})
		line += strings.Count(src[i:i+2+end], "\n")
		src = src[i+2+end+1:]
	}
	return &t, nil
}

// closingBrace returns the index of the brace closing a placeholder, skipping
// nested braces and string literals.
func closingBrace(s string) (int, error) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case c == '\\' && quote != '`':
				i++
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i, nil
			}
			depth--
		}
	}
	return 0, errorutil.ErrUnterminatedExpression
}

func (t *Template) Name() string {
	return t.name
}

// Signature returns the frame signature of the expression at line:
// <name>:<line>#<expression>.
func (t *Template) Signature(line int, expression string) string {
	return t.name + ":" + strconv.Itoa(line) + "#" + expression
}

// Execute renders the template with data. Every placeholder is evaluated in
// its own profiling frame when ctx carries an active session.
func (t *Template) Execute(ctx context.Context, w io.Writer, data map[string]any) error {
	env := make(map[string]any, len(data)+1)
	for k, v := range data {
		env[k] = v
	}
	env[ContextName] = ctx

	programs := make([]*vm.Program, len(t.parts))
	for i, p := range t.parts {
		if p.expression == "" {
			continue
		}
		program, err := expr.Compile(p.expression, expr.Env(env), expr.Patch(newContextPatcher(env)))
		if err != nil {
			return fmt.Errorf("%s:%d: %w", t.name, p.line, err)
		}
		programs[i] = program
	}

	for i, p := range t.parts {
		if programs[i] == nil {
			if _, err := io.WriteString(w, p.text); err != nil {
				return err
			}
			continue
		}
		if err := t.evaluate(ctx, w, p, programs[i], env); err != nil {
			return err
		}
	}
	return nil
}

func (t *Template) evaluate(ctx context.Context, w io.Writer, p part, program *vm.Program, env map[string]any) error {
	profiler.Start(ctx, t.Signature(p.line, p.expression))
	defer profiler.Stop(ctx)

	out, err := expr.Run(program, env)
	if err != nil {
		return fmt.Errorf("%s:%d: %w", t.name, p.line, err)
	}
	_, err = io.WriteString(w, format(out))
	return err
}

func format(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}

// Render parses and executes src in one go.
func Render(ctx context.Context, name, src string, data map[string]any) (string, error) {
	t, err := Parse(name, src)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := t.Execute(ctx, &b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
