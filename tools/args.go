package tools

import (
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/jonwraymond/notebookmcp/jupyter"
)

// Length limits, in characters.
const (
	maxSessionID    = 200
	maxKernelID     = 100
	maxKernelName   = 100
	maxVariableName = 100
	maxListPath     = 500
	maxConnectPath  = 500
	maxNotebookPath = 255
	maxResourceURI  = 500
	maxCode         = 1_000_000
	maxSource       = 1_000_000
	maxTimeout      = 300
	defaultTimeout  = 30
	defaultHeadRows = 5
)

type stringRule struct {
	required   bool
	allowEmpty bool
	maxLen     int
}

// stringArg validates args[name]. A missing or null value is reported as
// present == false unless the rule requires it.
func stringArg(args map[string]any, name string, rule stringRule) (value string, present bool, err error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		if rule.required {
			return "", false, jupyter.NewValidationError("%s is required", name)
		}
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", false, jupyter.NewValidationError("%s must be a string", name)
	}
	if s == "" && rule.required {
		return "", false, jupyter.NewValidationError("%s is required", name)
	}
	if !rule.allowEmpty && strings.TrimSpace(s) == "" {
		return "", false, jupyter.NewValidationError("%s is empty", name)
	}
	if rule.maxLen > 0 && utf8.RuneCountInString(s) > rule.maxLen {
		return "", false, jupyter.NewValidationError("%s is too long (max %d characters)", name, rule.maxLen)
	}
	if strings.ContainsRune(s, 0) {
		return "", false, jupyter.NewValidationError("%s contains invalid characters", name)
	}
	return s, true, nil
}

func requiredString(args map[string]any, name string, maxLen int) (string, error) {
	s, _, err := stringArg(args, name, stringRule{required: true, maxLen: maxLen})
	return s, err
}

// intArg reads an optional integral number.
func intArg(args map[string]any, name string) (value int, present bool, err error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return 0, false, nil
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		return 0, false, jupyter.NewValidationError("%s must be a number", name)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false, jupyter.NewValidationError("%s must be an integer", name)
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false, jupyter.NewValidationError("%s is out of range", name)
	}
	return int(f), true, nil
}

func boolArg(args map[string]any, name string, def bool) (bool, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return def, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, jupyter.NewValidationError("%s must be a boolean", name)
	}
	return b, nil
}

// validateNotebookPath accepts relative ".ipynb" paths without traversal.
func validateNotebookPath(p string) error {
	switch {
	case strings.TrimSpace(p) == "":
		return jupyter.NewValidationError("notebook path is empty")
	case strings.Contains(p, ".."):
		return jupyter.NewValidationError("notebook path must not contain '..'")
	case strings.HasPrefix(p, "/"):
		return jupyter.NewValidationError("notebook path must be relative")
	case strings.ContainsRune(p, 0):
		return jupyter.NewValidationError("notebook path contains invalid characters")
	case !strings.HasSuffix(p, ".ipynb"):
		return jupyter.NewValidationError("notebook path must end with '.ipynb'")
	case utf8.RuneCountInString(p) > maxNotebookPath:
		return jupyter.NewValidationError("notebook path is too long (max %d characters)", maxNotebookPath)
	}
	return nil
}

// normalizeListPath strips leading slashes and returns the NFC form; the
// empty result is the root.
func normalizeListPath(p string) (string, error) {
	if strings.Contains(p, "..") {
		return "", jupyter.NewValidationError("path must not contain '..'")
	}
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "/", nil
	}
	return norm.NFC.String(p), nil
}

// notebookFullPath joins a directory and a notebook name, adding the
// ".ipynb" suffix when missing.
func notebookFullPath(dir, name string) string {
	if !strings.HasSuffix(name, ".ipynb") {
		name += ".ipynb"
	}
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return norm.NFC.String(name)
	}
	return norm.NFC.String(dir + "/" + name)
}
