package eval

import (
	"time"

	"github.com/wbrown/janus-queryspec/queryspec"
	"github.com/wbrown/janus-queryspec/queryspec/annotations"
)

// Context provides clean annotation points for evaluation tracking.
type Context[T any] interface {
	// Evaluation lifecycle
	EvaluateBegin(spec string)
	EvaluateComplete(itemCount, stageCount int, err error)

	// Stage operations
	RunStage(stage Stage[T], seq Sequence[T], spec *queryspec.Spec[T]) (Sequence[T], error)

	// Get underlying collector
	Collector() *annotations.Collector
}

// BaseContext provides a no-op implementation with zero overhead. Stages
// run lazily; nothing is materialized between them.
type BaseContext[T any] struct{}

// NewContext creates an appropriate context based on whether annotations
// are needed.
func NewContext[T any](handler annotations.Handler) Context[T] {
	if handler == nil {
		return &BaseContext[T]{}
	}
	return &AnnotatedContext[T]{
		collector: annotations.NewCollector(handler),
	}
}

func (c *BaseContext[T]) EvaluateBegin(spec string) {}

func (c *BaseContext[T]) EvaluateComplete(itemCount, stageCount int, err error) {}

func (c *BaseContext[T]) RunStage(stage Stage[T], seq Sequence[T], spec *queryspec.Spec[T]) (Sequence[T], error) {
	return stage.Evaluate(seq, spec)
}

func (c *BaseContext[T]) Collector() *annotations.Collector {
	return nil
}

// AnnotatedContext provides full annotation tracking. Sequences are
// materialized after each stage so the trace can report item counts, which
// trades the pipeline's laziness for visibility.
type AnnotatedContext[T any] struct {
	collector *annotations.Collector
	evalStart time.Time
}

func (c *AnnotatedContext[T]) EvaluateBegin(spec string) {
	c.evalStart = time.Now()
	c.collector.Add(annotations.Event{
		Name:  annotations.EvaluateInvoked,
		Start: c.evalStart,
		Data: map[string]interface{}{
			"spec": spec,
		},
	})
}

func (c *AnnotatedContext[T]) EvaluateComplete(itemCount, stageCount int, err error) {
	data := map[string]interface{}{
		"item.count":  itemCount,
		"stage.count": stageCount,
		"success":     err == nil,
	}

	if err != nil {
		data["error"] = err.Error()
	}

	c.collector.AddTiming(annotations.EvaluateComplete, c.evalStart, data)
}

func (c *AnnotatedContext[T]) RunStage(stage Stage[T], seq Sequence[T], spec *queryspec.Spec[T]) (Sequence[T], error) {
	start := time.Now()

	inCount := -1 // Use -1 to indicate unknown size
	if seq != nil {
		in, err := Materialize(seq)
		if err != nil {
			c.stageEvent(stage.Name(), start, inCount, 0, err)
			return nil, err
		}
		inCount = len(in)
		seq = FromSlice(in)
	}

	out, err := stage.Evaluate(seq, spec)

	var items []T
	if err == nil {
		items, err = Materialize(out)
	}

	c.stageEvent(stage.Name(), start, inCount, len(items), err)

	if err != nil {
		return nil, err
	}
	return FromSlice(items), nil
}

func (c *AnnotatedContext[T]) stageEvent(name string, start time.Time, inCount, outCount int, err error) {
	data := map[string]interface{}{
		"stage":        name,
		"input.count":  inCount,
		"output.count": outCount,
		"success":      err == nil,
	}

	if err != nil {
		data["error"] = err.Error()
	}

	c.collector.AddTiming(annotations.EvaluateStage, start, data)
}

func (c *AnnotatedContext[T]) Collector() *annotations.Collector {
	return c.collector
}
