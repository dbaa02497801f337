package clinical

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedPayload reports that a field could not be parsed even by the fallback heuristic.
// The caller still gets a usable value: the raw text as a single literal entry.
var ErrMalformedPayload = errors.New("malformed payload")

var allergySeparator = regexp.MustCompile(`(?i)\s*(?:,|;|\band\b)\s*`)

const artifactChars = "[]\"' \t\r\n"

// ParseAllergies turns any stored allergy representation into a clean list of names.
func ParseAllergies(raw any) []string {
	names, _ := DecodeAllergies(raw)
	return names
}

// DecodeAllergies accepts a native list, a JSON array, a JSON string that itself encodes an
// array, or free text separated by commas, semicolons or the word "and".
// ErrMalformedPayload accompanies a non-empty result only when every heuristic failed.
func DecodeAllergies(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return cleanNames(v), nil
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			names = append(names, fmt.Sprint(item))
		}
		return cleanNames(names), nil
	case json.RawMessage:
		return decodeAllergyText(string(v))
	case []byte:
		return decodeAllergyText(string(v))
	case string:
		return decodeAllergyText(v)
	case *string:
		if v == nil {
			return nil, nil
		}
		return decodeAllergyText(*v)
	default:
		return cleanNames([]string{fmt.Sprint(v)}), nil
	}
}

func decodeAllergyText(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var list []any
	if err := json.Unmarshal([]byte(s), &list); err == nil {
		return DecodeAllergies(list)
	}

	var inner string
	if err := json.Unmarshal([]byte(s), &inner); err == nil {
		return decodeAllergyText(inner)
	}

	names := cleanNames(allergySeparator.Split(s, -1))
	if len(names) == 0 {
		return []string{s}, ErrMalformedPayload
	}
	return names, nil
}

func cleanNames(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, artifactChars)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
