package runnerspec

import (
	"strings"

	"github.com/pkg/errors"
)

// parseTriple parses the structured "{module, function, [args]}" shape:
// a brace-delimited, comma-separated triple where the module may be
// the empty atom (written '' or left empty before the first comma, as
// in "{, sleep, [1]}"), mirroring erlperf's {Module, Function, Args}
// MFA tuple.
func parseTriple(raw string) (Call, error) {
	body := strings.TrimSpace(raw)
	if !strings.HasPrefix(body, "{") || !strings.HasSuffix(body, "}") {
		return Call{}, errors.Errorf("runnerspec: %q is not a structured triple", raw)
	}
	body = strings.TrimSpace(body[1 : len(body)-1])

	parts, err := splitArgs(body)
	if err != nil {
		return Call{}, errors.Wrapf(err, "runnerspec: malformed triple %q", raw)
	}
	if len(parts) != 3 {
		return Call{}, errors.Errorf("runnerspec: triple %q must have exactly 3 elements, got %d", raw, len(parts))
	}

	module := unquoteAtom(parts[0])
	function := unquoteAtom(parts[1])
	if function == "" {
		return Call{}, errors.Errorf("runnerspec: triple %q has an empty function name", raw)
	}

	argsText := strings.TrimSpace(parts[2])
	if !strings.HasPrefix(argsText, "[") || !strings.HasSuffix(argsText, "]") {
		return Call{}, errors.Errorf("runnerspec: triple %q's argument list must be bracketed", raw)
	}
	argv, err := parseLiteral(argsText)
	if err != nil {
		return Call{}, errors.Wrapf(err, "runnerspec: invalid argument list in %q", raw)
	}
	args, _ := argv.([]any)

	return Call{Module: module, Function: function, Args: args}, nil
}

func unquoteAtom(tok string) string {
	tok = strings.TrimSpace(tok)
	if tok == "''" || tok == "" {
		return ""
	}
	if strings.HasPrefix(tok, `"`) && strings.HasSuffix(tok, `"`) && len(tok) >= 2 {
		return tok[1 : len(tok)-1]
	}
	return strings.Trim(tok, "'")
}
