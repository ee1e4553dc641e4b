package eval

import (
	"github.com/wbrown/janus-queryspec/queryspec"
	"github.com/wbrown/janus-queryspec/queryspec/annotations"
)

// Pipeline runs a sequence through the evaluation stages in their fixed
// order: filter, search, order, paginate, read-mode. A pipeline without a
// handler holds no per-evaluation state and can serve any number of
// concurrent evaluations; a traced pipeline times one evaluation at a time.
type Pipeline[T any] struct {
	stages []Stage[T]
	ctx    Context[T]
}

// NewPipeline creates a pipeline. With a nil handler evaluation is fully
// lazy; with a handler each stage is traced and sequences are materialized
// between stages so the trace can report counts.
func NewPipeline[T any](handler annotations.Handler) *Pipeline[T] {
	return &Pipeline[T]{
		stages: []Stage[T]{
			FilterEvaluator[T]{},
			SearchEvaluator[T]{},
			OrderEvaluator[T]{},
			PaginateEvaluator[T]{},
			ReadModeEvaluator[T]{},
		},
		ctx: NewContext[T](handler),
	}
}

// Stages returns the pipeline's stages in evaluation order.
func (p *Pipeline[T]) Stages() []Stage[T] {
	out := make([]Stage[T], len(p.stages))
	copy(out, p.stages)
	return out
}

// Collector returns the annotation collector, or nil for a lazy pipeline.
func (p *Pipeline[T]) Collector() *annotations.Collector {
	return p.ctx.Collector()
}

// Evaluate applies every aspect of spec to seq. A nil spec passes seq
// through unchanged; a nil seq is an error from the first stage.
func (p *Pipeline[T]) Evaluate(seq Sequence[T], spec *queryspec.Spec[T]) (Sequence[T], error) {
	p.ctx.EvaluateBegin(describeSpec(spec))

	out := seq
	var err error
	for _, stage := range p.stages {
		out, err = p.ctx.RunStage(stage, out, spec)
		if err != nil {
			p.ctx.EvaluateComplete(0, len(p.stages), err)
			return nil, err
		}
	}

	count := -1
	if p.ctx.Collector() != nil {
		count, _ = Count(out)
	}
	p.ctx.EvaluateComplete(count, len(p.stages), nil)
	return out, nil
}

// EvaluateAll evaluates and drains the result into a slice.
func (p *Pipeline[T]) EvaluateAll(seq Sequence[T], spec *queryspec.Spec[T]) ([]T, error) {
	out, err := p.Evaluate(seq, spec)
	if err != nil {
		return nil, err
	}
	return Materialize(out)
}

func describeSpec[T any](spec *queryspec.Spec[T]) string {
	if spec == nil {
		return "<nil>"
	}
	return spec.String()
}
