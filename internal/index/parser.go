// Package index implements spec §4.4's expression grammar — field paths
// and transforms compiled into getter trees that evaluate over JSON
// documents — plus the index registry and tuple-key query surface built
// on top of it.
//
// Grammar (concrete syntax, preserved verbatim as an external contract):
//
//	expr      := field | transform '(' expr (',' arg)* ')'
//	field     := ident ('.' ident)*
//	transform ∈ { lower, split_words, number, bool, is_null }
package index

import (
	"strconv"
	"strings"

	"github.com/kazade/syncdb/internal/document"
)

// Getter is a parsed, tagged-variant node (spec §9) that evaluates over a
// decoded JSON document to produce zero or more string keys.
type Getter interface {
	// Get returns the keys this node yields for doc. Any node along the
	// path may legitimately yield an empty slice (spec §4.4 "returns []").
	Get(doc map[string]interface{}) []string
}

// transformCtor builds a Getter for a parsed transform call given its
// parsed inner node and any trailing literal args (currently only
// number's width). Keeping constructors in a table (rather than a type
// switch on the parser) is what makes the grammar extensible without
// runtime type inspection (spec §9).
type transformCtor func(inner Getter, args []string) (Getter, error)

var transforms = map[string]transformCtor{
	"lower":       func(inner Getter, args []string) (Getter, error) { return &lowerNode{inner}, nil },
	"split_words": func(inner Getter, args []string) (Getter, error) { return &splitWordsNode{inner}, nil },
	"bool":        func(inner Getter, args []string) (Getter, error) { return &boolNode{inner}, nil },
	"is_null":     func(inner Getter, args []string) (Getter, error) { return &isNullNode{inner}, nil },
	"number": func(inner Getter, args []string) (Getter, error) {
		if len(args) != 1 {
			return nil, document.Newf(document.KindIndexDefinitionParseError, "number() requires a width argument")
		}
		w, err := strconv.Atoi(args[0])
		if err != nil || w <= 0 {
			return nil, document.Newf(document.KindIndexDefinitionParseError, "number() width must be a positive integer, got %q", args[0])
		}
		return &numberNode{inner: inner, width: w}, nil
	},
}

// Parse compiles a single index expression string into a Getter.
func Parse(expr string) (Getter, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks)-1 { // last token is always eof
		return nil, document.Newf(document.KindIndexDefinitionParseError, "trailing characters after expression %q", expr)
	}
	return node, nil
}

type tokKind int

const (
	tokIdent tokKind = iota
	tokLParen
	tokRParen
	tokComma
	tokEOF
)

type token struct {
	kind tokKind
	text string
}

func lex(s string) ([]token, error) {
	var toks []token
	i := 0
	n := len(s)
	for i < n {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma})
			i++
		case isIdentRune(rune(c)):
			j := i
			for j < n && isIdentRune(rune(s[j])) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: s[i:j]})
			i = j
		default:
			return nil, document.Newf(document.KindIndexDefinitionParseError, "unexpected character %q in expression %q", c, s)
		}
	}
	toks = append(toks, token{kind: tokEOF})
	return toks, nil
}

func isIdentRune(r rune) bool {
	return r == '.' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
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

func (p *parser) parseExpr() (Getter, error) {
	t := p.peek()
	if t.kind != tokIdent {
		return nil, document.Newf(document.KindIndexDefinitionParseError, "expected field or transform name")
	}
	name := t.text
	// A transform call is "name(" — anything else is a field reference.
	if p.toks[p.pos+1].kind == tokLParen {
		p.next() // consume name
		p.next() // consume '('
		ctor, ok := transforms[name]
		if !ok {
			return nil, document.Newf(document.KindIndexDefinitionParseError, "unknown transform %q", name)
		}
		if p.peek().kind == tokRParen {
			return nil, document.Newf(document.KindIndexDefinitionParseError, "%s(...) requires an argument", name)
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		var literalArgs []string
		for p.peek().kind == tokComma {
			p.next()
			a := p.peek()
			if a.kind != tokIdent {
				return nil, document.Newf(document.KindIndexDefinitionParseError, "expected literal argument in %s(...)", name)
			}
			p.next()
			literalArgs = append(literalArgs, a.text)
		}
		if p.peek().kind != tokRParen {
			return nil, document.Newf(document.KindIndexDefinitionParseError, "missing closing paren in %s(...)", name)
		}
		p.next() // consume ')'
		return ctor(inner, literalArgs)
	}

	p.next() // consume field ident
	path, err := splitFieldPath(name)
	if err != nil {
		return nil, err
	}
	return &fieldNode{path: path}, nil
}

func splitFieldPath(s string) ([]string, error) {
	if s == "" {
		return nil, document.Newf(document.KindIndexDefinitionParseError, "empty field path")
	}
	parts := strings.Split(s, ".")
	for _, p := range parts {
		if p == "" {
			return nil, document.Newf(document.KindIndexDefinitionParseError, "dangling dot in field path %q", s)
		}
	}
	return parts, nil
}
