package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/Parallel-SEKAI/kanade/internal/logging"
)

// Engine runs one script's code in an isolated goja runtime on a
// dedicated worker lane.
type Engine struct {
	scriptID string
	cfg      Config
	log      *logging.Logger

	jobs chan job
	quit chan struct{}

	vmMu sync.Mutex
	vm   *goja.Runtime

	closeOnce sync.Once

	// In-flight CallAsync slots keyed by call id.
	pending sync.Map
}

type job struct {
	fn   func(vm *goja.Runtime)
	done chan struct{}
}

// New creates an engine for the given script id and starts its lane.
func New(scriptID string, cfg Config, log *logging.Logger) *Engine {
	if cfg.CallTimeout <= 0 {
		cfg = DefaultConfig()
	}
	e := &Engine{
		scriptID: scriptID,
		cfg:      cfg,
		log:      log.Named("engine").With(zap.String("script", scriptID)),
		jobs:     make(chan job, cfg.QueueSize),
		quit:     make(chan struct{}),
	}
	go e.loop()
	return e
}

// loop owns the runtime. All interpreter access happens here, in
// submission order.
func (e *Engine) loop() {
	vm := goja.New()
	if e.cfg.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(e.cfg.MaxCallStackSize)
	}
	e.bindResolver(vm)
	e.setupGlobals(vm)

	e.vmMu.Lock()
	e.vm = vm
	e.vmMu.Unlock()

	for {
		select {
		case j := <-e.jobs:
			// A job racing Close may have slipped into the queue. Never
			// run it on an interrupted runtime.
			select {
			case <-e.quit:
				return
			default:
			}
			j.fn(vm)
			close(j.done)
		case <-e.quit:
			return
		}
	}
}

// closed reports whether Close has been called.
func (e *Engine) closed() bool {
	select {
	case <-e.quit:
		return true
	default:
		return false
	}
}

// setupGlobals strips host-environment leaks from the global scope.
func (e *Engine) setupGlobals(vm *goja.Runtime) {
	vm.Set("require", goja.Undefined())
	vm.Set("process", goja.Undefined())
	vm.Set("module", goja.Undefined())
	vm.Set("exports", goja.Undefined())
}

// submit enqueues work on the lane and waits for it to finish.
func (e *Engine) submit(ctx context.Context, fn func(vm *goja.Runtime)) error {
	if e.closed() {
		return ErrClosed
	}
	j := job{fn: fn, done: make(chan struct{})}
	select {
	case e.jobs <- j:
	case <-e.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-j.done:
		return nil
	case <-e.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue submits work without waiting for execution. Used by CallAsync,
// whose caller waits on the pending slot instead.
func (e *Engine) enqueue(ctx context.Context, fn func(vm *goja.Runtime)) error {
	if e.closed() {
		return ErrClosed
	}
	j := job{fn: fn, done: make(chan struct{})}
	select {
	case e.jobs <- j:
		return nil
	case <-e.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterInterface exposes a host capability object into the sandbox's
// global scope under name. Must complete before any script evaluation
// that references it. Silently a no-op once the engine is torn down.
func (e *Engine) RegisterInterface(ctx context.Context, name string, binder Binder) error {
	err := e.submit(ctx, func(vm *goja.Runtime) {
		vm.Set(name, binder.Bind(vm))
	})
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

// Evaluate runs top-level script code on the lane. Interpreter
// exceptions surface to the caller.
func (e *Engine) Evaluate(ctx context.Context, source, label string) error {
	prog, err := goja.Compile(label, source, false)
	if err != nil {
		return err
	}

	var evalErr error
	if err := e.submit(ctx, func(vm *goja.Runtime) {
		_, evalErr = vm.RunProgram(prog)
	}); err != nil {
		return err
	}
	return evalErr
}

// ScriptID returns the owning script id.
func (e *Engine) ScriptID() string {
	return e.scriptID
}

// Close tears the engine down: the lane stops accepting work and a
// still-running script is interrupted. Safe to call more than once.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.quit)

		e.vmMu.Lock()
		if e.vm != nil {
			e.vm.Interrupt("engine closed")
		}
		e.vmMu.Unlock()
	})
}
