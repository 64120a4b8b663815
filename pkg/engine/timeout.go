package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/mash/pkg/scene"
)

// DefaultTimeout bounds one evaluation of an Engine whose Timeout is zero.
const DefaultTimeout = 5 * time.Second

// ErrSuperseded is returned for an evaluation that finished after a newer
// one had started.
var ErrSuperseded = errors.New("engine: evaluation superseded by newer request")

// outcome is what the evaluating goroutine hands back.
type outcome struct {
	scene *scene.Scene
	errs  []EvalError
	err   error
}

// await blocks until the evaluation of generation gen reports on ch, ctx
// is done or the engine timeout passes. A goroutine that outlives its
// caller keeps running; its result is dropped when it arrives because the
// generation has moved on.
func (e *Engine) await(ctx context.Context, ch <-chan outcome, gen uint64) (*scene.Scene, []EvalError, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case o := <-ch:
		if gen != e.currentGeneration() {
			return nil, nil, ErrSuperseded
		}
		return o.scene, o.errs, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("engine: evaluation timed out after %s", timeout)
		}
		return nil, nil, fmt.Errorf("engine: evaluation abandoned: %w", ctx.Err())
	}
}
