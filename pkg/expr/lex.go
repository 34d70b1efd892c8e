package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type kind uint8

const (
	kField kind = iota + 1
	kString
	kNumber
	kTrue
	kFalse
	kNull
	kOp // == != < <= > >=
	kAnd
	kOr
	kNot
	kOpen
	kClose
)

type token struct {
	kind kind
	text string
	pos  int
	num  float64
}

var symbols = []struct {
	text string
	kind kind
}{
	// two-rune symbols first
	{"==", kOp}, {"!=", kOp}, {"<=", kOp}, {">=", kOp},
	{"&&", kAnd}, {"||", kOr},
	{"<", kOp}, {">", kOp}, {"!", kNot}, {"(", kOpen}, {")", kClose},
}

func lex(src string) ([]token, error) {
	var out []token
	for pos := 0; pos < len(src); {
		r, width := utf8.DecodeRuneInString(src[pos:])
		rest := src[pos:]
		switch {
		case unicode.IsSpace(r):
			pos += width
			continue
		case r == '"' || r == '`':
			text, n, err := quoted(rest)
			if err != nil {
				return nil, fmt.Errorf("%w: %v at %d", ErrSyntax, err, pos)
			}
			out = append(out, token{kind: kString, text: text, pos: pos})
			pos += n
			continue
		case unicode.IsDigit(r) || (r == '-' && len(rest) > 1 && unicode.IsDigit(rune(rest[1]))):
			n := 1
			for n < len(rest) && (unicode.IsDigit(rune(rest[n])) || rest[n] == '.') {
				n++
			}
			num, err := strconv.ParseFloat(rest[:n], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q at %d", ErrSyntax, rest[:n], pos)
			}
			out = append(out, token{kind: kNumber, text: rest[:n], pos: pos, num: num})
			pos += n
			continue
		case unicode.IsLetter(r) || r == '_':
			n := strings.IndexFunc(rest, func(c rune) bool {
				return !(unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '.')
			})
			if n < 0 {
				n = len(rest)
			}
			word := rest[:n]
			if strings.HasSuffix(word, ".") || strings.Contains(word, "..") {
				return nil, fmt.Errorf("%w: bad field path %q at %d", ErrSyntax, word, pos)
			}
			tok := token{kind: kField, text: word, pos: pos}
			switch word {
			case "true":
				tok.kind = kTrue
			case "false":
				tok.kind = kFalse
			case "null", "nil":
				tok.kind = kNull
			}
			out = append(out, tok)
			pos += n
			continue
		}

		matched := false
		for _, sym := range symbols {
			if strings.HasPrefix(rest, sym.text) {
				out = append(out, token{kind: sym.kind, text: sym.text, pos: pos})
				pos += len(sym.text)
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, r, pos)
		}
	}
	return out, nil
}

// quoted reads a string literal at the start of s and returns its value and
// the number of bytes consumed.
func quoted(s string) (string, int, error) {
	if s[0] == '`' {
		end := strings.IndexByte(s[1:], '`')
		if end < 0 {
			return "", 0, fmt.Errorf("unterminated string")
		}
		return s[1 : end+1], end + 2, nil
	}
	prefix, err := strconv.QuotedPrefix(s)
	if err != nil {
		return "", 0, fmt.Errorf("unterminated string")
	}
	text, err := strconv.Unquote(prefix)
	if err != nil {
		return "", 0, err
	}
	return text, len(prefix), nil
}
