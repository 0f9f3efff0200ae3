package lifecycle

import (
	"regexp"
	"strings"
)

var scorePattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// NormalizeScore trims a score and accepts a comma as decimal separator.
// Blank scores become nil; "0" stays "0". Anything that is not a plain
// decimal number is rejected.
func NormalizeScore(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return nil, nil
	}
	value = strings.Replace(value, ",", ".", 1)
	if !scorePattern.MatchString(value) {
		return nil, Invalid(CodeInvalidScore, "score must be a decimal number")
	}
	return &value, nil
}
