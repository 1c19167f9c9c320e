package jsfmt

import "strings"

type kind uint8

const (
	tokWord kind = iota
	tokStr
	tokTemplate
	tokComment
	tokLineComment
	tokPunct
	tokNewline
	tokBlank
)

type token struct {
	kind kind
	text string
}

// multi-character operators, longest first
var operators = []string{
	"===", "!==", "...", "**=", ">>>",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.",
	"++", "--", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
	"**", "<<", ">>",
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}

// tokenize splits source into tokens. It returns false when the source
// cannot be tokenized (unterminated string, template or comment) or when its
// brackets do not balance; callers fall back to the original text.
func tokenize(source string) ([]token, bool) {
	var (
		tokens []token
		depth  []byte
	)

	i := 0
	n := len(source)

scan:
	for i < n {
		c := source[i]

		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++

		case c == '\n':
			// collapse runs of newlines, remembering whether a blank line was present
			count := 0
			for i < n && (source[i] == '\n' || source[i] == '\r' || source[i] == ' ' || source[i] == '\t') {
				if source[i] == '\n' {
					count++
				}
				i++
			}

			if count > 1 {
				tokens = append(tokens, token{kind: tokBlank})
			} else {
				tokens = append(tokens, token{kind: tokNewline})
			}

		case c == '\'' || c == '"':
			end, ok := scanString(source, i, c)
			if !ok {
				return nil, false
			}

			tokens = append(tokens, token{kind: tokStr, text: source[i:end]})
			i = end

		case c == '`':
			end, ok := scanString(source, i, '`')
			if !ok {
				return nil, false
			}

			tokens = append(tokens, token{kind: tokTemplate, text: source[i:end]})
			i = end

		case c == '/' && i+1 < n && source[i+1] == '/':
			end := strings.IndexByte(source[i:], '\n')
			if end == -1 {
				end = n
			} else {
				end += i
			}

			tokens = append(tokens, token{kind: tokLineComment, text: strings.TrimRight(source[i:end], " \t\r")})
			i = end

		case c == '/' && i+1 < n && source[i+1] == '*':
			end := strings.Index(source[i+2:], "*/")
			if end == -1 {
				return nil, false
			}

			tokens = append(tokens, token{kind: tokComment, text: source[i : i+2+end+2]})
			i += 2 + end + 2

		case isWordByte(c):
			start := i
			for i < n && isWordByte(source[i]) {
				i++
			}

			tokens = append(tokens, token{kind: tokWord, text: source[start:i]})

		default:
			// bracket balance check
			switch c {
			case '(', '[', '{':
				depth = append(depth, c)
			case ')', ']', '}':
				if len(depth) == 0 || depth[len(depth)-1] != opener(c) {
					return nil, false
				}
				depth = depth[:len(depth)-1]
			}

			for _, op := range operators {
				if strings.HasPrefix(source[i:], op) {
					tokens = append(tokens, token{kind: tokPunct, text: op})
					i += len(op)

					continue scan
				}
			}

			tokens = append(tokens, token{kind: tokPunct, text: string(c)})
			i++
		}
	}

	if len(depth) != 0 {
		return nil, false
	}

	return tokens, true
}

func opener(closer byte) byte {
	switch closer {
	case ')':
		return '('
	case ']':
		return '['
	default:
		return '{'
	}
}

// scanString scans a quoted literal starting at source[start] and returns the
// index just past the closing quote. Backtick literals may span lines.
func scanString(source string, start int, quote byte) (int, bool) {
	i := start + 1
	n := len(source)

	for i < n {
		switch source[i] {
		case '\\':
			i += 2
		case quote:
			return i + 1, true
		case '\n':
			if quote != '`' {
				return 0, false
			}
			i++
		default:
			i++
		}
	}

	return 0, false
}
