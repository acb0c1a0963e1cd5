// decision/parse.go
package decision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoDecision reports that no well-formed decision object could be
// extracted from a backend response.
var ErrNoDecision = errors.New("no decision object in response")

// Extract pulls exactly one valid Decision out of free-form backend text.
// The text may wrap the JSON object in prose or markdown fences; anything
// that does not yield a schema-valid object is a parse failure, never a
// best-effort guess.
func Extract(text string) (Decision, error) {
	for start := 0; ; {
		i := strings.IndexByte(text[start:], '{')
		if i < 0 {
			return Decision{}, ErrNoDecision
		}
		i += start

		obj, ok := balancedObject(text[i:])
		if !ok {
			return Decision{}, ErrNoDecision
		}

		var d Decision
		if err := json.Unmarshal([]byte(obj), &d); err == nil && d.Action != "" {
			if verr := d.Validate(); verr != nil {
				return Decision{}, fmt.Errorf("%w: %v", ErrNoDecision, verr)
			}
			return d, nil
		}

		start = i + 1
	}
}

// balancedObject returns the shortest brace-balanced prefix of s, which must
// start with '{'. String literals are respected so braces inside reasoning
// text do not unbalance the scan.
func balancedObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}
