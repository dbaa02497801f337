package notification

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// innermost [...] with no nested brackets
var arrayLiteral = regexp.MustCompile(`\[[^\[\]]*\]`)

var bracketStripper = strings.NewReplacer("[", "", "]", "", `"`, "", "'", "")

// NormalizeMessage rewrites list payloads embedded in a message into a comma-joined list and
// collapses whitespace. NormalizeMessage(NormalizeMessage(s)) == NormalizeMessage(s).
func NormalizeMessage(msg string) string {
	out := msg
	// every rewrite removes at least one bracket, so this terminates
	for arrayLiteral.MatchString(out) {
		out = arrayLiteral.ReplaceAllStringFunc(out, rewriteArrayLiteral)
	}
	return strings.Join(strings.Fields(out), " ")
}

func rewriteArrayLiteral(raw string) string {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return bracketStripper.Replace(raw)
	}

	parts := make([]string, 0, len(items))
	for _, item := range items {
		s, err := renderItem(item)
		if err != nil {
			return bracketStripper.Replace(raw)
		}
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// renderItem prints scalars as text and anything else (objects) as compact JSON.
func renderItem(item any) (string, error) {
	switch v := item.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(item); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
