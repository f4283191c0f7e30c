package scenario

import (
	"github.com/crytic/symheap/expr"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"strconv"
	"strings"
)

// termNode is a parsed but untyped term: either an atom or a parenthesized operator application.
type termNode struct {
	atom string
	list []termNode
}

func (n termNode) isAtom() bool {
	return n.list == nil
}

// tokenizeTerm splits a term into parentheses and atoms.
func tokenizeTerm(text string) []string {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for _, r := range text {
		switch {
		case r == '(' || r == ')':
			flush()
			tokens = append(tokens, string(r))
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// parseTermNode parses the s-expression text into a termNode.
func parseTermNode(text string) (termNode, error) {
	tokens := tokenizeTerm(text)
	if len(tokens) == 0 {
		return termNode{}, errors.Errorf("empty term")
	}
	node, rest, err := parseTokens(tokens)
	if err != nil {
		return termNode{}, errors.Wrapf(err, "invalid term %q", text)
	}
	if len(rest) != 0 {
		return termNode{}, errors.Errorf("invalid term %q: unexpected %q", text, rest[0])
	}
	return node, nil
}

func parseTokens(tokens []string) (termNode, []string, error) {
	if len(tokens) == 0 {
		return termNode{}, nil, errors.Errorf("unexpected end of term")
	}
	switch tokens[0] {
	case ")":
		return termNode{}, nil, errors.Errorf("unexpected )")
	case "(":
		node := termNode{list: []termNode{}}
		rest := tokens[1:]
		for {
			if len(rest) == 0 {
				return termNode{}, nil, errors.Errorf("missing )")
			}
			if rest[0] == ")" {
				if len(node.list) == 0 {
					return termNode{}, nil, errors.Errorf("empty application")
				}
				return node, rest[1:], nil
			}
			var child termNode
			var err error
			child, rest, err = parseTokens(rest)
			if err != nil {
				return termNode{}, nil, err
			}
			node.list = append(node.list, child)
		}
	}
	return termNode{atom: tokens[0]}, tokens[1:], nil
}

// termParser builds terms for one heap of a scenario. Names resolve first to the references bound by allocations on
// the heap, then to the declared variables of the scenario. Any other name becomes a free constant of the sort
// expected at its position.
type termParser struct {
	ctx  *expr.Context
	vars map[string]expr.Sort
	refs map[string]*expr.Expr
}

// parse parses text as a term of the given sort.
func (p *termParser) parse(text string, sort expr.Sort) (*expr.Expr, error) {
	node, err := parseTermNode(text)
	if err != nil {
		return nil, err
	}
	return p.build(node, sort)
}

// infer returns the sort of node when it can be determined without context.
func (p *termParser) infer(node termNode) (expr.Sort, bool) {
	if node.isAtom() {
		switch {
		case node.atom == "true" || node.atom == "false":
			return expr.BoolSort, true
		case node.atom == "null" || strings.HasPrefix(node.atom, "#"):
			return expr.AddressSort, true
		}
		if _, ok := p.refs[node.atom]; ok {
			return expr.AddressSort, true
		}
		sort, ok := p.vars[node.atom]
		return sort, ok
	}

	switch node.list[0].atom {
	case "and", "or", "not", "=", "bvule", "bvult":
		return expr.BoolSort, true
	case "ite":
		for _, branch := range node.list[2:] {
			if sort, ok := p.infer(branch); ok {
				return sort, true
			}
		}
	case "bvadd", "bvsub":
		for _, arg := range node.list[1:] {
			if sort, ok := p.infer(arg); ok {
				return sort, true
			}
		}
	}
	return expr.Sort{}, false
}

// inferArgs returns the common sort of the operands of a comparison or arithmetic operator.
func (p *termParser) inferArgs(node termNode) (expr.Sort, error) {
	for _, arg := range node.list[1:] {
		if sort, ok := p.infer(arg); ok {
			return sort, nil
		}
	}
	return expr.Sort{}, errors.Errorf("cannot infer the operand sort of %s", node.list[0].atom)
}

func (p *termParser) build(node termNode, sort expr.Sort) (*expr.Expr, error) {
	var e *expr.Expr
	var err error
	if node.isAtom() {
		e, err = p.buildAtom(node.atom, sort)
	} else {
		e, err = p.buildApplication(node, sort)
	}
	if err != nil {
		return nil, err
	}
	if e.Sort() != sort {
		return nil, errors.Errorf("term %v has sort %v, expected %v", e, e.Sort(), sort)
	}
	return e, nil
}

func (p *termParser) buildAtom(atom string, sort expr.Sort) (*expr.Expr, error) {
	switch {
	case atom == "true":
		return p.ctx.True(), nil
	case atom == "false":
		return p.ctx.False(), nil
	case atom == "null":
		return p.ctx.NullRef(), nil
	case strings.HasPrefix(atom, "#"):
		address, err := strconv.ParseUint(atom[1:], 10, 64)
		if err != nil {
			return nil, errors.Errorf("invalid address %q", atom)
		}
		return p.ctx.ConcreteRef(address), nil
	case atom[0] >= '0' && atom[0] <= '9':
		if !sort.IsBitVec() {
			return nil, errors.Errorf("literal %s used as %v", atom, sort)
		}
		value, err := uint256.FromDecimal(atom)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid literal %q", atom)
		}
		return p.ctx.BitVecInt(sort.Width, value), nil
	}

	if ref, ok := p.refs[atom]; ok {
		return ref, nil
	}
	if declared, ok := p.vars[atom]; ok {
		return p.ctx.Const(atom, declared), nil
	}
	return p.ctx.Const(atom, sort), nil
}

func (p *termParser) buildApplication(node termNode, sort expr.Sort) (*expr.Expr, error) {
	op := node.list[0]
	if !op.isAtom() {
		return nil, errors.Errorf("operator must be a name")
	}
	args := node.list[1:]
	arity := func(n int) error {
		if len(args) != n {
			return errors.Errorf("%s takes %d operands, got %d", op.atom, n, len(args))
		}
		return nil
	}

	switch op.atom {
	case "ite":
		if err := arity(3); err != nil {
			return nil, err
		}
		built, err := p.buildAll(args, expr.BoolSort, sort, sort)
		if err != nil {
			return nil, err
		}
		return p.ctx.Ite(built[0], built[1], built[2]), nil
	case "and", "or":
		built, err := p.buildAll(args, repeat(expr.BoolSort, len(args))...)
		if err != nil {
			return nil, err
		}
		if op.atom == "and" {
			return p.ctx.And(built...), nil
		}
		return p.ctx.Or(built...), nil
	case "not":
		if err := arity(1); err != nil {
			return nil, err
		}
		a, err := p.build(args[0], expr.BoolSort)
		if err != nil {
			return nil, err
		}
		return p.ctx.Not(a), nil
	case "=", "bvule", "bvult", "bvadd", "bvsub":
		if err := arity(2); err != nil {
			return nil, err
		}
		argSort, err := p.inferArgs(node)
		if err != nil {
			if op.atom != "bvadd" && op.atom != "bvsub" {
				return nil, err
			}
			argSort = sort
		}
		if op.atom != "=" && !argSort.IsBitVec() {
			return nil, errors.Errorf("%s takes bit-vector operands, got %v", op.atom, argSort)
		}
		built, err := p.buildAll(args, argSort, argSort)
		if err != nil {
			return nil, err
		}
		switch op.atom {
		case "=":
			return p.ctx.Eq(built[0], built[1]), nil
		case "bvule":
			return p.ctx.Ule(built[0], built[1]), nil
		case "bvult":
			return p.ctx.Ult(built[0], built[1]), nil
		case "bvadd":
			return p.ctx.Add(built[0], built[1]), nil
		default:
			return p.ctx.Sub(built[0], built[1]), nil
		}
	}
	return nil, errors.Errorf("unknown operator %q", op.atom)
}

func (p *termParser) buildAll(nodes []termNode, sorts ...expr.Sort) ([]*expr.Expr, error) {
	built := make([]*expr.Expr, len(nodes))
	for i, node := range nodes {
		e, err := p.build(node, sorts[i])
		if err != nil {
			return nil, err
		}
		built[i] = e
	}
	return built, nil
}

func repeat(sort expr.Sort, n int) []expr.Sort {
	sorts := make([]expr.Sort, n)
	for i := range sorts {
		sorts[i] = sort
	}
	return sorts
}
