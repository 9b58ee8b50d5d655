package nodeeval

import (
	"fmt"
	"strings"
)

// evalBoolExpr evaluates a boolean grammar of literal true/false tokens
// combined with &, |, !, and parentheses (spec §4.5 "Condition" open
// question: evaluate condition.parameters.logic as a small boolean grammar,
// not dynamic code, once every node id has been substituted for its
// true/false literal).
//
//	expr   := term ('|' term)*
//	term   := factor ('&' factor)*
//	factor := '!' factor | '(' expr ')' | 'true' | 'false'
func evalBoolExpr(src string) (bool, error) {
	p := &boolParser{tokens: tokenizeBool(src)}
	result, err := p.parseExpr()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.tokens) {
		return false, fmt.Errorf("unexpected token %q in logic expression", p.tokens[p.pos])
	}
	return result, nil
}

func tokenizeBool(src string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range src {
		switch r {
		case '&', '|', '!', '(', ')':
			flush()
			tokens = append(tokens, string(r))
		case ' ', '\t', '\n':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

type boolParser struct {
	tokens []string
	pos    int
}

func (p *boolParser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *boolParser) next() string {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *boolParser) parseExpr() (bool, error) {
	left, err := p.parseTerm()
	if err != nil {
		return false, err
	}
	for p.peek() == "|" {
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return false, err
		}
		left = left || right
	}
	return left, nil
}

func (p *boolParser) parseTerm() (bool, error) {
	left, err := p.parseFactor()
	if err != nil {
		return false, err
	}
	for p.peek() == "&" {
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return false, err
		}
		left = left && right
	}
	return left, nil
}

func (p *boolParser) parseFactor() (bool, error) {
	tok := p.peek()
	switch tok {
	case "!":
		p.next()
		val, err := p.parseFactor()
		if err != nil {
			return false, err
		}
		return !val, nil
	case "(":
		p.next()
		val, err := p.parseExpr()
		if err != nil {
			return false, err
		}
		if p.peek() != ")" {
			return false, fmt.Errorf("expected closing parenthesis in logic expression")
		}
		p.next()
		return val, nil
	case "true":
		p.next()
		return true, nil
	case "false":
		p.next()
		return false, nil
	default:
		return false, fmt.Errorf("unexpected token %q in logic expression", tok)
	}
}
