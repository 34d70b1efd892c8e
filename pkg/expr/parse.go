package expr

import "fmt"

type parser struct {
	toks []token
	at   int
	seen map[string]bool
}

func (p *parser) peek() (token, bool) {
	if p.at >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.at], true
}

func (p *parser) accept(k kind) (token, bool) {
	tok, ok := p.peek()
	if !ok || tok.kind != k {
		return token{}, false
	}
	p.at++
	return tok, true
}

func (p *parser) unexpected(want string) error {
	tok, ok := p.peek()
	if !ok {
		return fmt.Errorf("%w: expected %s, got end of input", ErrSyntax, want)
	}
	return fmt.Errorf("%w: expected %s, got %q at %d", ErrSyntax, want, tok.text, tok.pos)
}

// or := and { "||" and }
func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(kOr); !ok {
			return left, nil
		}
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = anyOf{left, right}
	}
}

// and := unary { "&&" unary }
func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(kAnd); !ok {
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = allOf{left, right}
	}
}

// unary := "!" unary | "(" or ")" | comparison
func (p *parser) unary() (node, error) {
	if _, ok := p.accept(kNot); ok {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return not{inner}, nil
	}
	if _, ok := p.accept(kOpen); ok {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if _, ok := p.accept(kClose); !ok {
			return nil, p.unexpected(`")"`)
		}
		return inner, nil
	}
	return p.comparison()
}

// comparison := operand [ op operand ]
func (p *parser) comparison() (node, error) {
	left, err := p.operand()
	if err != nil {
		return nil, err
	}
	op, ok := p.accept(kOp)
	if !ok {
		return set{left}, nil
	}
	right, err := p.operand()
	if err != nil {
		return nil, err
	}
	return compare{op: op.text, left: left, right: right}, nil
}

func (p *parser) operand() (operand, error) {
	tok, ok := p.peek()
	if !ok {
		return operand{}, p.unexpected("a field or value")
	}
	p.at++
	switch tok.kind {
	case kField:
		p.seen[tok.text] = true
		return operand{field: tok.text}, nil
	case kString:
		return operand{value: tok.text}, nil
	case kNumber:
		return operand{value: tok.num}, nil
	case kTrue:
		return operand{value: true}, nil
	case kFalse:
		return operand{value: false}, nil
	case kNull:
		return operand{}, nil
	}
	p.at--
	return operand{}, p.unexpected("a field or value")
}
