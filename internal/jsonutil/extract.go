// Package jsonutil provides best-effort extraction of JSON values embedded
// in model output text.
package jsonutil

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractFirstJSON locates and parses the first complete JSON object or
// array in the text. The scan counts opening and closing brackets without
// string or escape awareness, so brackets inside string literals can confuse
// it; this is an accepted trade-off for recovery of well-behaved output.
// Returns the parsed value and true on success.
func ExtractFirstJSON(text string) (any, bool) {
	candidate := strings.TrimSpace(text)
	if candidate == "" {
		return nil, false
	}

	if (strings.HasPrefix(candidate, "{") && strings.HasSuffix(candidate, "}")) ||
		(strings.HasPrefix(candidate, "[") && strings.HasSuffix(candidate, "]")) {
		if v, ok := tryParse(candidate); ok {
			return v, true
		}
	}

	start, opener := firstOpener(candidate)
	if start < 0 {
		return nil, false
	}
	closer := byte('}')
	if opener == '[' {
		closer = ']'
	}

	depth := 0
	for i := start; i < len(candidate); i++ {
		switch candidate[i] {
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return tryParse(candidate[start : i+1])
			}
		}
	}
	return nil, false
}

func firstOpener(s string) (int, byte) {
	obj := strings.IndexByte(s, '{')
	arr := strings.IndexByte(s, '[')
	switch {
	case obj < 0 && arr < 0:
		return -1, 0
	case obj < 0:
		return arr, '['
	case arr < 0 || obj < arr:
		return obj, '{'
	default:
		return arr, '['
	}
}

func tryParse(candidate string) (any, bool) {
	if !gjson.Valid(candidate) {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return nil, false
	}
	return v, true
}
