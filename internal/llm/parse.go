package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"councilofbots.ai/internal/sim/voting"
)

const defaultOllamaPort = 11434

// ParseHost splits "http://host:port" or "host[:port]" into host and port, defaulting the
// port to Ollama's.
func ParseHost(host string) (string, int, error) {
	h := strings.TrimPrefix(strings.TrimSpace(host), "http://")
	h = strings.TrimSuffix(h, "/")
	name, portStr, hasPort := strings.Cut(h, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", 0, fmt.Errorf("llm: missing host in %q", host)
	}
	if !hasPort {
		return name, defaultOllamaPort, nil
	}
	port, err := strconv.ParseUint(strings.TrimSpace(portStr), 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("llm: invalid port in %q", host)
	}
	return name, int(port), nil
}

// ExtractFirstJSONObject returns the span from the first '{' to the last '}'.
func ExtractFirstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

type choiceJSON struct {
	Choice  *int   `json:"choice"`
	Reason  string `json:"reason"`
	Comment string `json:"comment"`
}

func decodeChoice(response string) (choiceJSON, error) {
	var c choiceJSON
	raw, ok := ExtractFirstJSONObject(response)
	if !ok {
		return c, ErrNoJSON
	}
	if err := json.Unmarshal([]byte(escapeControlInStrings(raw)), &c); err != nil {
		return c, fmt.Errorf("%w: %v", ErrBadChoice, err)
	}
	if c.Choice == nil {
		return c, fmt.Errorf("%w: missing choice", ErrBadChoice)
	}
	if *c.Choice < 0 {
		return c, fmt.Errorf("%w: negative choice %d", ErrBadChoice, *c.Choice)
	}
	return c, nil
}

// ParseChoice reads {"choice": n} out of a model response and clamps n to the options.
func ParseChoice(response string, numOptions int) (int, error) {
	c, err := decodeChoice(response)
	if err != nil {
		return 0, err
	}
	return voting.ClampChoice(*c.Choice, numOptions), nil
}

// ParseComment reads {"choice": n, "comment": "..."} out of a deliberation response. The
// reason field is accepted in place of comment.
func ParseComment(response string, numOptions int) (int, string, error) {
	c, err := decodeChoice(response)
	if err != nil {
		return 0, "", err
	}
	text := strings.TrimSpace(c.Comment)
	if text == "" {
		text = strings.TrimSpace(c.Reason)
	}
	if text == "" {
		text = NoComment
	}
	return voting.ClampChoice(*c.Choice, numOptions), oneLine(text), nil
}

// NoComment stands in for a deliberation answer that carried a choice but no words.
const NoComment = "(no comment)"

// escapeControlInStrings escapes raw control characters inside JSON string literals.
// Local models often break long comments across lines without escaping them.
func escapeControlInStrings(s string) string {
	var b strings.Builder
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString && c < 0x20:
			switch c {
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				fmt.Fprintf(&b, `\u%04x`, c)
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
