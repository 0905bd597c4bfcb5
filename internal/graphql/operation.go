package graphql

import "strings"

type operation struct {
	kind string
	name string
}

// operationType reports the kind of operation ("query", "mutation" or
// "subscription") that document runs for operationName, or "" when it cannot
// be selected. Only top-level definitions are inspected.
func operationType(document, operationName string) string {
	var (
		ops      []operation
		pending  *operation
		named    bool
		fragment bool
		depth    int
	)
	for i := 0; i < len(document); {
		c := document[i]
		switch {
		case c == '#':
			for i < len(document) && document[i] != '\n' && document[i] != '\r' {
				i++
			}
			continue
		case c == '"':
			i = skipString(document, i)
			continue
		case isNameStart(c):
			j := i
			for j < len(document) && isNameChar(document[j]) {
				j++
			}
			word := document[i:j]
			i = j
			if depth > 0 {
				continue
			}
			switch {
			case pending != nil:
				if !named {
					pending.name = word
					named = true
				}
			case fragment:
			case word == "query" || word == "mutation" || word == "subscription":
				pending = &operation{kind: word}
				named = false
			case word == "fragment":
				fragment = true
			}
			continue
		case c == '{' || c == '(' || c == '[':
			if depth == 0 {
				named = true
				if c == '{' {
					switch {
					case pending != nil:
						ops = append(ops, *pending)
						pending = nil
					case fragment:
						fragment = false
					default:
						ops = append(ops, operation{kind: "query"})
					}
				}
			}
			depth++
		case c == '}' || c == ')' || c == ']':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 && !isIgnored(c) {
				named = true
			}
		}
		i++
	}

	if operationName != "" {
		for _, op := range ops {
			if op.name == operationName {
				return op.kind
			}
		}
		return ""
	}
	if len(ops) == 1 {
		return ops[0].kind
	}
	return ""
}

// skipString returns the index just past the string literal starting at i.
func skipString(s string, i int) int {
	if strings.HasPrefix(s[i:], `"""`) {
		for j := i + 3; j < len(s); j++ {
			if strings.HasPrefix(s[j:], `\"""`) {
				j += 3
				continue
			}
			if strings.HasPrefix(s[j:], `"""`) {
				return j + 3
			}
		}
		return len(s)
	}
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		case '\n', '\r':
			return j
		}
	}
	return len(s)
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

func isIgnored(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ','
}
