package scenario

import (
	"context"
	"fmt"
	"github.com/crytic/symheap/config"
	"github.com/crytic/symheap/expr"
	"github.com/crytic/symheap/heap"
	"github.com/crytic/symheap/logging"
	"github.com/crytic/symheap/memory"
	"github.com/crytic/symheap/utils"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"
)

// branch is one heap of a running scenario, with the references its allocations were bound to.
type branch struct {
	heap *heap.Heap
	refs map[string]*expr.Expr

	// aborted is set once a step on the heap failed with an unexpected contract violation. The state the heap
	// models is discarded, so later steps on it are not run.
	aborted bool
}

// runner executes the steps of a single scenario.
type runner struct {
	scenario *Scenario
	ctx      *expr.Context
	branches map[string]*branch
	logger   *logging.Logger
}

// result is the outcome of a step which ran to completion.
type result struct {
	value    *expr.Expr
	elements *memory.Elements[*expr.Expr]
}

func (r result) String() string {
	switch {
	case r.value != nil:
		return r.value.String()
	case r.elements != nil:
		s := fmt.Sprint(r.elements.Keys)
		if !r.elements.Complete() {
			s += " (incomplete)"
		}
		return s
	}
	return ""
}

// Run runs the steps of scenario against a fresh heap and reports their outcome. Contract violations raised by a
// step are recovered and reported. An error is returned if the scenario is malformed or ctx is cancelled.
func Run(ctx context.Context, scenario *Scenario, cfg *config.EngineConfig) (*Report, error) {
	exprCtx := expr.NewContext()
	r := &runner{
		scenario: scenario,
		ctx:      exprCtx,
		branches: map[string]*branch{
			DefaultHeap: {
				heap: heap.NewHeap(exprCtx, cfg.OwnershipMode == config.OwnershipPure),
				refs: make(map[string]*expr.Expr),
			},
		},
		logger: logging.GlobalLogger.NewSubLogger(logging.SERVICE_KEY, logging.SCENARIO_SERVICE).NewSubLogger(logging.SCENARIO_KEY, scenario.Name),
	}
	report := &Report{Name: scenario.Name, Version: scenario.Version}

	r.logger.Debug("Running scenario with ", len(scenario.Steps), " steps")
	for i := range scenario.Steps {
		if utils.CheckContextDone(ctx) {
			return nil, errors.WithStack(ctx.Err())
		}
		stepResult, err := r.runStep(i, &scenario.Steps[i])
		if err != nil {
			return nil, errors.Wrapf(err, "scenario %s, step %d", scenario.Name, i)
		}
		report.add(stepResult)
		if !stepResult.Passed && cfg.StopOnFailure {
			break
		}
	}
	report.Heaps = len(r.branches)
	return report, nil
}

// RunAll runs the scenarios in parallel, on at most cfg.Workers goroutines, and returns their reports in order.
func RunAll(ctx context.Context, scenarios []*Scenario, cfg *config.EngineConfig) ([]*Report, error) {
	reports := make([]*Report, len(scenarios))
	if len(scenarios) == 0 {
		return reports, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(cfg.Workers, len(scenarios))))
	for i, s := range scenarios {
		g.Go(func() error {
			report, err := Run(gctx, s, cfg)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// runStep runs a single step and checks its expectations.
func (r *runner) runStep(index int, step *Step) (StepResult, error) {
	stepResult, err := newStepResult(index, step)
	if err != nil {
		return stepResult, err
	}
	b, ok := r.branches[step.heapName()]
	if !ok {
		return stepResult, errors.Errorf("unknown heap %q", step.heapName())
	}
	if b.aborted {
		stepResult.Failure = "heap aborted by an earlier contract violation"
		return stepResult, nil
	}

	res, violation, err := r.apply(b, step)
	if err != nil {
		return stepResult, err
	}
	stepResult.Result = res.String()

	if violation != nil {
		stepResult.Violation = violation.Error()
		r.logger.Debug("Step ", index, " (", step.Op, ") raised a contract violation", violation)
		if step.ExpectViolation {
			stepResult.Passed = true
			return stepResult, nil
		}
		b.aborted = true
		stepResult.Failure = "unexpected contract violation"
		r.logger.Warn("Step ", index, " (", step.Op, ") failed: ", stepResult.Failure)
		return stepResult, nil
	}
	if step.ExpectViolation {
		stepResult.Failure = "expected a contract violation"
		r.logger.Warn("Step ", index, " (", step.Op, ") failed: ", stepResult.Failure)
		return stepResult, nil
	}

	failure, err := r.check(b, step, res)
	if err != nil {
		return stepResult, err
	}
	stepResult.Failure = failure
	stepResult.Passed = failure == ""
	if !stepResult.Passed {
		r.logger.Warn("Step ", index, " (", step.Op, ") failed: ", failure)
	}
	return stepResult, nil
}

// apply performs the operation of step on the heap of b. Contract violations are returned in violation.
func (r *runner) apply(b *branch, step *Step) (res result, violation error, err error) {
	defer memory.RecoverContractViolation(&violation)
	res, err = r.dispatch(b, step)
	return res, nil, err
}

// check compares the result of a step with its expectations and returns the failure message, if any.
func (r *runner) check(b *branch, step *Step, res result) (string, error) {
	parser := r.parser(b)
	if step.Expect != "" {
		if res.value == nil {
			return "", errors.Errorf("%s has no result to compare", step.Op)
		}
		expected, err := parser.parse(step.Expect, res.value.Sort())
		if err != nil {
			return "", errors.Wrap(err, "expect")
		}
		if expected != res.value {
			return fmt.Sprintf("expected %v, got %v", expected, res.value), nil
		}
	}

	if res.elements != nil {
		if step.Values != nil {
			id, err := step.Region.RegionID()
			if err != nil {
				return "", err
			}
			expected, err := r.parseAll(parser, step.Values, id.KeySort)
			if err != nil {
				return "", errors.Wrap(err, "values")
			}
			if !sameElements(expected, res.elements.Keys) {
				return fmt.Sprintf("expected elements %v, got %v", expected, res.elements.Keys), nil
			}
		}
		if step.ExpectComplete != nil && *step.ExpectComplete != res.elements.Complete() {
			return fmt.Sprintf("expected complete=%t", *step.ExpectComplete), nil
		}
	}
	return "", nil
}

// sameElements indicates whether both lists hold the same terms, regardless of order.
func sameElements(a, b []*expr.Expr) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[*expr.Expr]int, len(a))
	for _, e := range a {
		counts[e]++
	}
	for _, e := range b {
		if counts[e] == 0 {
			return false
		}
		counts[e]--
	}
	return true
}

func (r *runner) parser(b *branch) *termParser {
	return &termParser{ctx: r.ctx, vars: r.scenario.Vars, refs: b.refs}
}

func (r *runner) parseAll(parser *termParser, texts []string, sort expr.Sort) ([]*expr.Expr, error) {
	terms := make([]*expr.Expr, len(texts))
	for i, text := range texts {
		term, err := parser.parse(text, sort)
		if err != nil {
			return nil, err
		}
		terms[i] = term
	}
	return terms, nil
}

// operands parses the named terms of a step. Empty texts are rejected, except for the guard which defaults to true.
type operands struct {
	parser *termParser
	step   *Step
	err    error
}

func (o *operands) term(name, text string, sort expr.Sort) *expr.Expr {
	if o.err != nil {
		return nil
	}
	if text == "" {
		o.err = errors.Errorf("%s requires %s", o.step.Op, name)
		return nil
	}
	term, err := o.parser.parse(text, sort)
	if err != nil {
		o.err = errors.Wrap(err, name)
		return nil
	}
	return term
}

func (o *operands) guard() *expr.Expr {
	if o.step.Guard == "" {
		return o.parser.ctx.True()
	}
	return o.term("guard", o.step.Guard, expr.BoolSort)
}

// dispatch performs the operation of step on the heap of b.
func (r *runner) dispatch(b *branch, step *Step) (result, error) {
	h := b.heap
	ops := &operands{parser: r.parser(b), step: step}

	if step.Op == OpFork {
		if step.Bind == "" {
			return result{}, errors.Errorf("fork requires bind")
		}
		if _, exists := r.branches[step.Bind]; exists {
			return result{}, errors.Errorf("heap %q already exists", step.Bind)
		}
		r.branches[step.Bind] = &branch{heap: h.Fork(), refs: maps.Clone(b.refs)}
		return result{}, nil
	}
	if step.Op == OpAlloc && step.Region == nil {
		return result{}, r.bind(b, step, h.Allocate())
	}

	if step.Region == nil {
		return result{}, errors.Errorf("%s requires region", step.Op)
	}
	id, err := step.Region.RegionID()
	if err != nil {
		return result{}, err
	}

	var res result
	switch step.Op {
	case OpAlloc:
		length := ops.term("length", step.Length, memory.SizeSort)
		if ops.err != nil {
			return result{}, ops.err
		}
		return result{}, r.bind(b, step, h.AllocateArray(id, length))
	case OpInit:
		ref := ops.term("ref", step.Ref, expr.AddressSort)
		values, err := r.parseAll(ops.parser, step.Values, id.Sort)
		if ops.err != nil {
			return result{}, ops.err
		}
		if err != nil {
			return result{}, errors.Wrap(err, "values")
		}
		h.InitializeAllocatedArray(id, ref, values)
	case OpWrite:
		ref := ops.term("ref", step.Ref, expr.AddressSort)
		if id.IsFlat() {
			value, guard := ops.term("value", step.Value, id.Sort), ops.guard()
			if ops.err != nil {
				return result{}, ops.err
			}
			switch id.Kind {
			case memory.FieldKind:
				h.WriteField(id, ref, value, guard)
			case memory.ArrayLengthKind:
				h.WriteArrayLength(id, ref, value, guard)
			default:
				h.WriteMapLength(id, ref, value, guard)
			}
			break
		}
		key, value, guard := ops.term("key", step.Key, id.KeySort), ops.term("value", step.Value, id.Sort), ops.guard()
		if ops.err != nil {
			return result{}, ops.err
		}
		switch id.Kind {
		case memory.ArrayKind:
			h.WriteArrayIndex(id, ref, key, value, guard)
		case memory.SetKind:
			h.WriteSetEntry(id, ref, key, value, guard)
		default:
			h.WriteMapEntry(id, ref, key, value, guard)
		}
	case OpRead:
		ref := ops.term("ref", step.Ref, expr.AddressSort)
		if id.IsFlat() {
			if ops.err != nil {
				return result{}, ops.err
			}
			switch id.Kind {
			case memory.FieldKind:
				res.value = h.ReadField(id, ref)
			case memory.ArrayLengthKind:
				res.value = h.ReadArrayLength(id, ref)
			default:
				res.value = h.ReadMapLength(id, ref)
			}
			break
		}
		key := ops.term("key", step.Key, id.KeySort)
		if ops.err != nil {
			return result{}, ops.err
		}
		switch id.Kind {
		case memory.ArrayKind:
			res.value = h.ReadArrayIndex(id, ref, key)
		case memory.SetKind:
			res.value = h.ReadSetEntry(id, ref, key)
		default:
			res.value = h.ReadMapEntry(id, ref, key)
		}
	case OpPut, OpRemove:
		ref, key := ops.term("ref", step.Ref, expr.AddressSort), ops.term("key", step.Key, id.KeySort)
		if step.Op == OpPut {
			value, guard := ops.term("value", step.Value, id.Sort), ops.guard()
			if ops.err != nil {
				return result{}, ops.err
			}
			h.WriteMapValue(id, ref, key, value, guard)
			break
		}
		guard := ops.guard()
		if ops.err != nil {
			return result{}, ops.err
		}
		h.RemoveMapEntry(id, ref, key, guard)
	case OpContains:
		ref, key := ops.term("ref", step.Ref, expr.AddressSort), ops.term("key", step.Key, id.KeySort)
		if ops.err != nil {
			return result{}, ops.err
		}
		if id.Kind == memory.MapKind {
			res.value = h.ContainsMapKey(id, ref, key)
		} else {
			res.value = h.ReadSetEntry(id, ref, key)
		}
	case OpLength:
		ref := ops.term("ref", step.Ref, expr.AddressSort)
		if ops.err != nil {
			return result{}, ops.err
		}
		switch id.Kind {
		case memory.ArrayKind, memory.ArrayLengthKind:
			if id.Kind == memory.ArrayKind {
				id = id.LengthID()
			}
			res.value = h.ReadArrayLength(id, ref)
		default:
			if id.Kind == memory.MapKind {
				id = id.LengthID()
			}
			res.value = h.ReadMapLength(id, ref)
		}
	case OpEntries:
		ref := ops.term("ref", step.Ref, expr.AddressSort)
		if ops.err != nil {
			return result{}, ops.err
		}
		var elements memory.Elements[*expr.Expr]
		if id.Kind == memory.MapKind {
			elements = h.MapEntries(id, ref)
		} else {
			elements = h.SetEntries(id, ref)
		}
		res.elements = &elements
	case OpIntersection:
		a, other := ops.term("ref", step.Ref, expr.AddressSort), ops.term("other", step.Other, expr.AddressSort)
		if ops.err != nil {
			return result{}, ops.err
		}
		res.value = h.SetIntersectionSize(id, a, other)
	case OpMemcpy:
		src, dst := ops.term("src", step.Src, expr.AddressSort), ops.term("dst", step.Dst, expr.AddressSort)
		srcFrom := ops.term("srcFrom", step.SrcFrom, memory.SizeSort)
		dstFrom, dstTo := ops.term("dstFrom", step.DstFrom, memory.SizeSort), ops.term("dstTo", step.DstTo, memory.SizeSort)
		guard := ops.guard()
		if ops.err != nil {
			return result{}, ops.err
		}
		h.Memcpy(id, src, dst, srcFrom, dstFrom, dstTo, guard)
	case OpUnion, OpMerge:
		src, dst, guard := ops.term("src", step.Src, expr.AddressSort), ops.term("dst", step.Dst, expr.AddressSort), ops.guard()
		if ops.err != nil {
			return result{}, ops.err
		}
		if step.Op == OpUnion {
			h.SetUnion(id, src, dst, guard)
		} else {
			h.MapMerge(id, src, dst, guard)
		}
	default:
		return result{}, errors.Errorf("unknown operation %q", step.Op)
	}
	return res, nil
}

// bind binds the reference created by an allocation step to its name.
func (r *runner) bind(b *branch, step *Step, ref *expr.Expr) error {
	if step.Bind == "" {
		return errors.Errorf("alloc requires bind")
	}
	b.refs[step.Bind] = ref
	return nil
}
