package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dop251/goja"

	"github.com/Parallel-SEKAI/kanade/internal/logging"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e := New("test-source", cfg, logging.NewNop())
	t.Cleanup(e.Close)
	return e
}

func TestEvaluateAndCall(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	ctx := context.Background()

	if err := e.Evaluate(ctx, `function greet(name) { return { hello: name }; }`, "test"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	got, err := e.CallAsync(ctx, "", "greet", "world")
	if err != nil {
		t.Fatalf("CallAsync() error = %v", err)
	}
	if got != `{"hello":"world"}` {
		t.Errorf("CallAsync() = %q, want %q", got, `{"hello":"world"}`)
	}
}

func TestCallOnNamedObject(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	ctx := context.Background()

	if err := e.Evaluate(ctx, `var api = { add: function (a, b) { return a + b; } };`, "test"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	got, err := e.CallAsync(ctx, "api", "add", 2, 3)
	if err != nil {
		t.Fatalf("CallAsync() error = %v", err)
	}
	if got != "5" {
		t.Errorf("CallAsync() = %q, want %q", got, "5")
	}
}

func TestCallResolvesPromise(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	ctx := context.Background()

	src := `function later() { return new Promise(function (resolve) { resolve([1, 2, 3]); }); }`
	if err := e.Evaluate(ctx, src, "test"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	got, err := e.CallAsync(ctx, "", "later")
	if err != nil {
		t.Fatalf("CallAsync() error = %v", err)
	}
	if got != "[1,2,3]" {
		t.Errorf("CallAsync() = %q, want %q", got, "[1,2,3]")
	}
}

func TestCallUndefinedResult(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	ctx := context.Background()

	if err := e.Evaluate(ctx, `function nothing() {}`, "test"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	got, err := e.CallAsync(ctx, "", "nothing")
	if err != nil {
		t.Fatalf("CallAsync() error = %v", err)
	}
	if got != "null" {
		t.Errorf("CallAsync() = %q, want %q", got, "null")
	}
}

func TestCallCorrelation(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	ctx := context.Background()

	if err := e.Evaluate(ctx, `function echo(x) { return x; }`, "test"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	// Concurrent calls must each receive their own result, never
	// another's, even though the lane serializes execution.
	const calls = 24
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			got, err := e.CallAsync(ctx, "", "echo", n)
			if err != nil {
				t.Errorf("call %d: error = %v", n, err)
				return
			}
			if want := fmt.Sprintf("%d", n); got != want {
				t.Errorf("call %d: got %q, want %q", n, got, want)
			}
		}(i)
	}
	wg.Wait()
}

func TestCallTimeoutIsolation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CallTimeout = 200 * time.Millisecond
	e := newTestEngine(t, cfg)
	ctx := context.Background()

	src := `
		function hang() { return new Promise(function () {}); }
		function quick() { return "ok"; }
	`
	if err := e.Evaluate(ctx, src, "test"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		_, err := e.CallAsync(ctx, "", "hang")
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("hanging call: error = %v, want ErrTimeout", err)
		}
		var scriptErr *ScriptError
		if errors.As(err, &scriptErr) {
			t.Errorf("timeout must not be a script error")
		}
	}()

	go func() {
		defer wg.Done()
		got, err := e.CallAsync(ctx, "", "quick")
		if err != nil {
			t.Errorf("quick call: error = %v", err)
			return
		}
		if got != `"ok"` {
			t.Errorf("quick call: got %q, want %q", got, `"ok"`)
		}
	}()

	wg.Wait()
}

func TestCallScriptError(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	ctx := context.Background()

	src := `
		function boom() { throw new Error("kapow"); }
		function fine() { return 1; }
	`
	if err := e.Evaluate(ctx, src, "test"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	_, err := e.CallAsync(ctx, "", "boom")
	var scriptErr *ScriptError
	if !errors.As(err, &scriptErr) {
		t.Fatalf("error = %v, want ScriptError", err)
	}
	if !strings.Contains(scriptErr.Message, "kapow") {
		t.Errorf("message = %q, want it to contain %q", scriptErr.Message, "kapow")
	}

	// One failed call leaves the engine usable.
	got, err := e.CallAsync(ctx, "", "fine")
	if err != nil {
		t.Fatalf("follow-up call error = %v", err)
	}
	if got != "1" {
		t.Errorf("follow-up call = %q, want %q", got, "1")
	}
}

func TestCallMissingFunction(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	_, err := e.CallAsync(context.Background(), "", "doesNotExist")
	var scriptErr *ScriptError
	if !errors.As(err, &scriptErr) {
		t.Fatalf("error = %v, want ScriptError", err)
	}
	if !strings.Contains(scriptErr.Message, "not a function") {
		t.Errorf("message = %q", scriptErr.Message)
	}
}

func TestEvaluateMalformedScript(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	if err := e.Evaluate(context.Background(), `function (`, "broken"); err == nil {
		t.Error("Evaluate() = nil, want compile error")
	}
}

func TestCallInit(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	ctx := context.Background()

	src := `
		var seen = null;
		function init(config) { seen = config.apiKey; }
		function read() { return seen; }
	`
	if err := e.Evaluate(ctx, src, "test"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if err := e.CallInit(ctx, map[string]string{"apiKey": "secret"}); err != nil {
		t.Fatalf("CallInit() error = %v", err)
	}

	got, err := e.CallAsync(ctx, "", "read")
	if err != nil {
		t.Fatalf("CallAsync() error = %v", err)
	}
	if got != `"secret"` {
		t.Errorf("config did not reach init: got %q", got)
	}
}

func TestCallInitWithoutInitFunction(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	if err := e.CallInit(context.Background(), nil); err != nil {
		t.Errorf("CallInit() without init = %v, want nil", err)
	}
}

type pingBinder struct{}

func (pingBinder) Bind(vm *goja.Runtime) goja.Value {
	obj := vm.NewObject()
	obj.Set("ping", func() string { return "pong" })
	return obj
}

func TestRegisterInterface(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	ctx := context.Background()

	if err := e.RegisterInterface(ctx, "probe", pingBinder{}); err != nil {
		t.Fatalf("RegisterInterface() error = %v", err)
	}
	if err := e.Evaluate(ctx, `function use() { return probe.ping(); }`, "test"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	got, err := e.CallAsync(ctx, "", "use")
	if err != nil {
		t.Fatalf("CallAsync() error = %v", err)
	}
	if got != `"pong"` {
		t.Errorf("CallAsync() = %q, want %q", got, `"pong"`)
	}
}

func TestClosedEngine(t *testing.T) {
	// Teardown races the lane's select, so exercise several engines to
	// catch a closed engine that still accepts work.
	for i := 0; i < 20; i++ {
		e := New("test-source", DefaultConfig(), logging.NewNop())
		if err := e.Evaluate(context.Background(), `function echo(v) { return v; }`, "test"); err != nil {
			t.Fatalf("Evaluate() = %v", err)
		}
		e.Close()

		// Registration after teardown fails silently.
		if err := e.RegisterInterface(context.Background(), "ping", pingBinder{}); err != nil {
			t.Errorf("RegisterInterface() after close = %v, want nil", err)
		}

		if err := e.Evaluate(context.Background(), `1`, "test"); !errors.Is(err, ErrClosed) {
			t.Errorf("Evaluate() after close = %v, want ErrClosed", err)
		}

		if _, err := e.CallAsync(context.Background(), "", "echo", "hi"); !errors.Is(err, ErrClosed) {
			t.Errorf("CallAsync() after close = %v, want ErrClosed", err)
		}
	}
}
