package lql

import (
	"strconv"

	"github.com/repldef/repldef/syncerr"
)

// Parse compiles an LQL expression string into an Expr tree.
// Grammar:
//
//	expr       := pipeline
//	pipeline   := primary ( '|>' pipeStep )*
//	pipeStep   := IDENT '(' (expr (',' expr)*)? ')'   -- implicit first arg is the pipeline's current value
//	primary    := literal | call | columnRef
//	call       := IDENT '(' (expr (',' expr)*)? ')'
//	literal    := STRING | NUMBER | 'true' | 'false'
//	columnRef  := IDENT
func Parse(expr string) (Expr, error) {
	toks, err := newLexer(expr).tokens()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, syncerr.Invalid("lql: unexpected trailing input after expression")
	}
	return e, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	if p.peek().kind != k {
		return token{}, syncerr.Invalid("lql: expected %s", what)
	}
	return p.next(), nil
}

func (p *parser) parsePipeline() (Expr, error) {
	cur, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokPipe {
		p.next() // consume |>
		name, err := p.expect(tokIdent, "function name after |>")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokLParen, "'(' after pipe function name"); err != nil {
			return nil, err
		}
		args := []Expr{cur}
		if p.peek().kind != tokRParen {
			extra, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			args = append(args, extra...)
		}
		if _, err := p.expect(tokRParen, "')' to close pipe function call"); err != nil {
			return nil, err
		}
		cur = call{fn: name.text, args: args}
	}
	return cur, nil
}

func (p *parser) parseArgs() ([]Expr, error) {
	var args []Expr
	for {
		arg, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek().kind == tokComma {
			p.next()
			continue
		}
		return args, nil
	}
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokString:
		p.next()
		return literal{value: t.text}, nil
	case tokNumber:
		p.next()
		n, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, syncerr.Invalid("lql: invalid number %q", t.text)
		}
		return literal{value: n}, nil
	case tokTrue:
		p.next()
		return literal{value: true}, nil
	case tokFalse:
		p.next()
		return literal{value: false}, nil
	case tokIdent:
		name := p.next()
		if p.peek().kind == tokLParen {
			p.next()
			var args []Expr
			if p.peek().kind != tokRParen {
				var err error
				args, err = p.parseArgs()
				if err != nil {
					return nil, err
				}
			}
			if _, err := p.expect(tokRParen, "')' to close function call"); err != nil {
				return nil, err
			}
			return call{fn: name.text, args: args}, nil
		}
		return columnRef{name: name.text}, nil
	default:
		return nil, syncerr.Invalid("lql: unexpected token in expression")
	}
}

// Eval parses and evaluates expr against row in one call, for one-shot use.
func Eval(expr string, row map[string]any) (any, error) {
	compiled, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return compiled.Eval(row)
}
