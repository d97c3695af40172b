package tmpl

import (
	"context"
	"reflect"
	"unicode"
	"unicode/utf8"

	"github.com/expr-lang/expr/ast"
)

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// contextPatcher gives expressions bean-style access to models:
//
//   - model.foo reads the Foo field, or calls GetFoo when there is no such field
//   - model.getFoo() calls GetFoo
//   - methods whose first parameter is a context.Context get the render
//     context as their first argument
type contextPatcher struct {
	env     map[string]any
	patched bool
}

func newContextPatcher(env map[string]any) *contextPatcher {
	return &contextPatcher{env: env}
}

// Visit implements ast.Visitor.
func (p *contextPatcher) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.MemberNode:
		p.patchProperty(node, n)
	case *ast.CallNode:
		p.patchCall(n)
	}
}

// ShouldRepeat asks for another pass once something was patched, chained
// property reads only get their type after the inner read was patched.
func (p *contextPatcher) ShouldRepeat() bool {
	patched := p.patched
	p.patched = false
	return patched
}

func (p *contextPatcher) patchProperty(node *ast.Node, n *ast.MemberNode) {
	if n.Method {
		return
	}
	prop, ok := n.Property.(*ast.StringNode)
	if !ok || prop.Value == "" {
		return
	}
	t := p.typeOf(n.Node)
	if t == nil || hasField(t, prop.Value) {
		return
	}
	name := "Get" + upperFirst(prop.Value)
	m, ok := t.MethodByName(name)
	if !ok {
		return
	}
	var args []ast.Node
	switch params(t, m) {
	case 0:
	case 1:
		if firstParam(t, m) != contextType {
			return
		}
		args = []ast.Node{&ast.IdentifierNode{Value: ContextName}}
	default:
		return
	}
	ast.Patch(node, &ast.CallNode{
		Callee: &ast.MemberNode{
			Node:     n.Node,
			Property: &ast.StringNode{Value: name},
			Method:   true,
		},
		Arguments: args,
	})
	p.patched = true
}

func (p *contextPatcher) patchCall(n *ast.CallNode) {
	member, ok := n.Callee.(*ast.MemberNode)
	if !ok {
		return
	}
	prop, ok := member.Property.(*ast.StringNode)
	if !ok || prop.Value == "" {
		return
	}
	t := p.typeOf(member.Node)
	if t == nil {
		return
	}
	m, ok := t.MethodByName(prop.Value)
	if !ok {
		m, ok = t.MethodByName(upperFirst(prop.Value))
		if !ok {
			return
		}
		prop.Value = m.Name
		p.patched = true
	}
	if params(t, m) != len(n.Arguments)+1 || firstParam(t, m) != contextType {
		return
	}
	n.Arguments = append([]ast.Node{&ast.IdentifierNode{Value: ContextName}}, n.Arguments...)
	p.patched = true
}

func (p *contextPatcher) typeOf(node ast.Node) reflect.Type {
	if ident, ok := node.(*ast.IdentifierNode); ok {
		if v := p.env[ident.Value]; v != nil {
			return reflect.TypeOf(v)
		}
	}
	t := node.Type()
	if t == nil || (t.Kind() == reflect.Interface && t.NumMethod() == 0) {
		return nil
	}
	return t
}

// params returns the number of parameters of m, receiver excluded.
func params(t reflect.Type, m reflect.Method) int {
	if t.Kind() == reflect.Interface {
		return m.Type.NumIn()
	}
	return m.Type.NumIn() - 1
}

func firstParam(t reflect.Type, m reflect.Method) reflect.Type {
	if t.Kind() == reflect.Interface {
		return m.Type.In(0)
	}
	return m.Type.In(1)
}

func hasField(t reflect.Type, name string) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Map:
		return true
	case reflect.Struct:
		_, ok := t.FieldByName(name)
		return ok
	}
	return false
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
