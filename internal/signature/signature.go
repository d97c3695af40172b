package signature

import (
	"regexp"
	"strconv"
	"strings"
)

type Kind int

const (
	// KindOpaque is a signature none of the rules recognize, e.g. a session name.
	KindOpaque Kind = iota
	// KindTemplate is a template engine frame: <file>.<ext>:<line>#<expression>.
	KindTemplate
	// KindMethod is a method descriptor: [return type ]pkg.Class$Inner.method(args).
	KindMethod
	// KindFunc is a Go function name as reported by runtime.FuncForPC.
	KindFunc
)

var (
	templatePattern = regexp.MustCompile(`(\S+\.[A-Za-z0-9]+):(\d+)#`)

	// The optional return type is everything up to the last blank before the
	// qualified name, arguments are kept opaque.
	methodPattern = regexp.MustCompile(`^(?:[^(]*\s)?((?:[\w$]+\.)*[\w$]+)\.([\w$<>]+)\([^()]*\)$`)

	funcPattern = regexp.MustCompile(`^(?:[\w.~\-]+/)*([\w\-]+)\.((?:\(\*?\w+(?:\[[^\]]*\])?\)|\w+)(?:\.\w+)*)$`)
)

func (k Kind) String() string {
	switch k {
	case KindTemplate:
		return "template"
	case KindMethod:
		return "method"
	case KindFunc:
		return "func"
	}
	return "opaque"
}

// Classify returns the rule a signature falls under. Template signatures win
// over every other rule since their expression part may look like a call.
func Classify(sig string) Kind {
	switch {
	case templatePattern.MatchString(sig):
		return KindTemplate
	case methodPattern.MatchString(sig):
		return KindMethod
	case funcPattern.MatchString(sig):
		return KindFunc
	}
	return KindOpaque
}

// Shorten returns the display form of a signature. The second return value is
// false for template signatures: they are already as short as they can get
// without losing the file, line and expression needed to find the code.
// Signatures that match no rule are returned unchanged.
func Shorten(sig string) (string, bool) {
	switch Classify(sig) {
	case KindTemplate:
		return "", false
	case KindMethod:
		return shortenMethod(sig), true
	case KindFunc:
		return shortenFunc(sig), true
	}
	return sig, true
}

func shortenMethod(sig string) string {
	m := methodPattern.FindStringSubmatch(sig)
	class := m[1]
	if i := strings.LastIndexByte(class, '.'); i >= 0 {
		class = class[i+1:]
	}
	if i := strings.LastIndexByte(class, '$'); i >= 0 && i < len(class)-1 {
		class = class[i+1:]
	}
	return class + "." + m[2] + "()"
}

func shortenFunc(sig string) string {
	m := funcPattern.FindStringSubmatch(sig)
	pkg, rest := m[1], m[2]
	if strings.HasPrefix(rest, "(") {
		end := strings.IndexByte(rest, ')')
		recv := strings.TrimPrefix(rest[1:end], "*")
		if i := strings.IndexByte(recv, '['); i >= 0 {
			recv = recv[:i]
		}
		rest = recv + rest[end+1:]
	}
	if !strings.Contains(rest, ".") {
		rest = pkg + "." + rest
	}
	return rest + "()"
}

// TemplateLocation returns the file and line of a template signature.
func TemplateLocation(sig string) (file string, line int, ok bool) {
	m := templatePattern.FindStringSubmatch(sig)
	if m == nil {
		return "", 0, false
	}
	line, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], line, true
}
