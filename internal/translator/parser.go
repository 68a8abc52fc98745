package translator

import (
	"errors"
	"fmt"
	"time"

	"github.com/telhawk-systems/segmenter/pkg/model"
)

// Parser converts a segment tree into a backend fragment using a Registry for
// leaf semantics and an Adapter for backend syntax. Parser is stateless and
// safe for concurrent use.
type Parser[F any] struct {
	registry Registry
	adapter  Adapter[F]
	now      func() time.Time
}

// NewParser creates a parser that resolves time periods against the wall clock.
func NewParser[F any](registry Registry, adapter Adapter[F]) *Parser[F] {
	return &Parser[F]{registry: registry, adapter: adapter, now: time.Now}
}

// WithClock returns a copy of p that resolves time periods against now.
func (p *Parser[F]) WithClock(now func() time.Time) *Parser[F] {
	cp := *p
	cp.now = now
	return &cp
}

// Parse lowers the tree rooted at node. Time periods are resolved against a
// single instant captured at the start of the call.
func (p *Parser[F]) Parse(node *model.Segment) (F, error) {
	return p.parseNode(node, p.now())
}

func (p *Parser[F]) parseNode(node *model.Segment, now time.Time) (F, error) {
	var zero F
	if node == nil {
		return zero, &AdapterError{Node: "", Reason: "empty segment"}
	}

	switch node.Type {
	case model.NodeDefault:
		return p.parseDefault(node)
	case model.NodeComposed:
		return p.parseComposed(node, now)
	case model.NodeTimePeriod:
		return p.parseTimePeriod(node, now)
	case model.NodeTimeRange:
		frag, err := p.adapter.TimeRange(node.Field, node.Start, node.End)
		if err != nil {
			return zero, wrapAdapterError(node, err)
		}
		return frag, nil
	default:
		return zero, &AdapterError{Node: node.Type, Reason: "unsupported node type"}
	}
}

func (p *Parser[F]) parseDefault(node *model.Segment) (F, error) {
	var zero F
	build, ok := p.registry.Lookup(node.Name)
	if !ok {
		return zero, &UnknownFieldError{Name: node.Name}
	}

	terms := build(node.Value)
	if node.Negate {
		negated := make([]Term, len(terms))
		for i, term := range terms {
			negated[i] = p.adapter.Negate(term.Field, term.Value)
		}
		terms = negated
	}
	return p.adapter.Combine(terms), nil
}

func (p *Parser[F]) parseComposed(node *model.Segment, now time.Time) (F, error) {
	var zero F
	if len(node.Segments) == 0 {
		return zero, &AdapterError{Node: node.Type, Detail: string(node.Operator), Reason: "composed node has no segments"}
	}

	children := make([]F, 0, len(node.Segments))
	for _, child := range node.Segments {
		frag, err := p.parseNode(child, now)
		if err != nil {
			return zero, err
		}
		children = append(children, frag)
	}

	switch node.Operator {
	case model.OperatorAnd:
		return p.adapter.ComposeAnd(children), nil
	case model.OperatorOr:
		return p.adapter.ComposeOr(children), nil
	case model.OperatorNot:
		return p.adapter.ComposeNot(children), nil
	default:
		return zero, &AdapterError{Node: node.Type, Detail: string(node.Operator), Reason: "unsupported operator"}
	}
}

func (p *Parser[F]) parseTimePeriod(node *model.Segment, now time.Time) (F, error) {
	var zero F
	period := periodOf(node.Value)
	days, ok := period.Days()
	if !ok {
		return zero, &AdapterError{Node: node.Type, Detail: string(node.Field), Reason: fmt.Sprintf("unsupported time period %q", period)}
	}

	instant := now.AddDate(0, 0, -days)
	frag, err := p.adapter.TimePeriod(node.Field, instant, node.Operator)
	if err != nil {
		return zero, wrapAdapterError(node, err)
	}
	return frag, nil
}

func periodOf(v any) model.TimePeriod {
	switch val := v.(type) {
	case model.TimePeriod:
		return val
	case string:
		return model.TimePeriod(val)
	default:
		return model.TimePeriod(fmt.Sprint(v))
	}
}

func wrapAdapterError(node *model.Segment, err error) error {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return err
	}
	return &AdapterError{Node: node.Type, Detail: string(node.Field), Reason: err.Error()}
}
