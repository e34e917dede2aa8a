package command

import (
	"fmt"
	"strconv"
	"strings"
)

// Command represents a parsed slash command.
type Command struct {
	Name      string
	Args      []string
	Raw       string
	Remainder string
}

// Parse parses a line and returns a Command if it starts with "/".
func Parse(input string) (Command, bool) {
	trimmed := strings.TrimLeft(input, " \t")
	if !strings.HasPrefix(trimmed, "/") {
		return Command{}, false
	}
	raw := strings.TrimSpace(trimmed[1:])
	if raw == "" {
		return Command{Name: "", Raw: ""}, true
	}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Command{Name: "", Raw: raw}, true
	}
	name := strings.ToLower(fields[0])
	args := []string{}
	if len(fields) > 1 {
		args = fields[1:]
	}
	remainder := remainderAfterTokens(raw, 1)
	return Command{
		Name:      name,
		Args:      args,
		Raw:       raw,
		Remainder: remainder,
	}, true
}

// QuotedArgs splits s into arguments. Double-quoted arguments may contain
// spaces and Go escape sequences such as \n.
func QuotedArgs(s string) ([]string, error) {
	var args []string
	i := 0
	for i < len(s) {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			break
		}
		if s[i] == '"' {
			end := i + 1
			for end < len(s) && s[end] != '"' {
				if s[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(s) {
				return nil, fmt.Errorf("unterminated quote")
			}
			value, err := strconv.Unquote(s[i : end+1])
			if err != nil {
				return nil, fmt.Errorf("invalid quoted argument: %w", err)
			}
			args = append(args, value)
			i = end + 1
			continue
		}
		start := i
		for i < len(s) && !isSpace(s[i]) {
			i++
		}
		args = append(args, s[start:i])
	}
	return args, nil
}

func remainderAfterTokens(raw string, count int) string {
	i := 0
	remaining := count
	for remaining > 0 && i < len(raw) {
		for i < len(raw) && isSpace(raw[i]) {
			i++
		}
		for i < len(raw) && !isSpace(raw[i]) {
			i++
		}
		remaining--
	}
	if i >= len(raw) {
		return ""
	}
	return strings.TrimSpace(raw[i:])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
