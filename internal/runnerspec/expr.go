package runnerspec

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// parseExpr parses an inline expression in the hosted surface syntax:
// a single call terminated by the statement terminator '.', e.g.
// "sleep(1)." or "strong_rand_bytes(2).". A module-qualified call
// ("rand.uniform(10).") addresses the registry by module.function.
func parseExpr(raw string) (Call, error) {
	body := strings.TrimSuffix(strings.TrimSpace(raw), ".")
	body = strings.TrimSpace(body)

	open := strings.IndexByte(body, '(')
	if open < 0 || !strings.HasSuffix(body, ")") {
		return Call{}, errors.Errorf("runnerspec: %q is not a call expression", raw)
	}
	name := strings.TrimSpace(body[:open])
	argsText := strings.TrimSpace(body[open+1 : len(body)-1])

	module, function, err := splitName(name)
	if err != nil {
		return Call{}, errors.Wrapf(err, "runnerspec: invalid call name %q", name)
	}

	args, err := splitArgs(argsText)
	if err != nil {
		return Call{}, errors.Wrapf(err, "runnerspec: invalid arguments in %q", raw)
	}

	literals := make([]any, 0, len(args))
	for _, a := range args {
		v, err := parseLiteral(a)
		if err != nil {
			return Call{}, errors.Wrapf(err, "runnerspec: invalid argument %q", a)
		}
		literals = append(literals, v)
	}

	return Call{Module: module, Function: function, Args: literals}, nil
}

func splitName(name string) (module, function string, err error) {
	if name == "" {
		return "", "", errors.New("empty call name")
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:], nil
	}
	return "", name, nil
}

// splitArgs splits a comma-separated argument list at top level,
// respecting nested (), [] and quoted strings.
func splitArgs(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	var (
		out      []string
		depth    int
		inQuote  bool
		escaped  bool
		start    int
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case inQuote:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inQuote = false
			}
		case c == '"':
			inQuote = true
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
			if depth < 0 {
				return nil, errors.New("unbalanced brackets")
			}
		case c == ',' && depth == 0:
			out = append(out, strings.TrimSpace(text[start:i]))
			start = i + 1
		}
	}
	if inQuote {
		return nil, errors.New("unterminated string literal")
	}
	if depth != 0 {
		return nil, errors.New("unbalanced brackets")
	}
	out = append(out, strings.TrimSpace(text[start:]))
	return out, nil
}

// parseLiteral converts one argument token into a bool, int64, float64,
// string, or []any (for bracketed lists), following the surface syntax
// a reader would expect from a call expression.
func parseLiteral(tok string) (any, error) {
	tok = strings.TrimSpace(tok)
	switch {
	case tok == "":
		return nil, errors.New("empty argument")
	case tok == "true":
		return true, nil
	case tok == "false":
		return false, nil
	case strings.HasPrefix(tok, `"`) && strings.HasSuffix(tok, `"`) && len(tok) >= 2:
		return strconv.Unquote(tok)
	case strings.HasPrefix(tok, "[") && strings.HasSuffix(tok, "]"):
		inner := strings.TrimSpace(tok[1 : len(tok)-1])
		parts, err := splitArgs(inner)
		if err != nil {
			return nil, err
		}
		list := make([]any, 0, len(parts))
		for _, p := range parts {
			if p == "" {
				continue
			}
			v, err := parseLiteral(p)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	default:
		if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return f, nil
		}
		// Bare identifier (an atom, in the hosted language's terms):
		// treated as a string naming it, e.g. foo in create_group(foo).
		return tok, nil
	}
}
