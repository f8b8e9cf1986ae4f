package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/Parallel-SEKAI/kanade/internal/shared/id"
)

// resolverName is the correlation object the dispatcher script relies on
// existing in the sandbox global scope.
const resolverName = "__kanadeBridge"

type outcome struct {
	result string
	errMsg string
	failed bool
}

// bindResolver installs the correlation object used by dispatcher
// scripts to settle pending calls by id.
func (e *Engine) bindResolver(vm *goja.Runtime) {
	bridge := vm.NewObject()
	bridge.Set("resolve", func(callID, payload string) {
		e.settle(callID, outcome{result: payload})
	})
	bridge.Set("reject", func(callID, message string) {
		if message == "" {
			message = "script error"
		}
		e.settle(callID, outcome{errMsg: message, failed: true})
	})
	vm.Set(resolverName, bridge)
}

// settle completes a pending slot exactly once. Callbacks arriving after
// the slot is gone (timeout, duplicate settlement) are discarded.
func (e *Engine) settle(callID string, out outcome) {
	v, ok := e.pending.LoadAndDelete(callID)
	if !ok {
		e.log.Debug("discarding late callback", zap.String("call", callID))
		return
	}
	v.(chan outcome) <- out
}

// CallInit invokes the script's init entry point with the configuration
// map, serialized as a JSON object. Scripts without an init function are
// tolerated.
func (e *Engine) CallInit(ctx context.Context, config map[string]string) error {
	if config == nil {
		config = map[string]string{}
	}
	payload, err := sonic.MarshalString(config)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	src := fmt.Sprintf(`if (typeof init === "function") { init(%s); }`, payload)
	return e.Evaluate(ctx, src, "init")
}

// CallAsync invokes method on the named sandbox object (or the global
// scope when object is empty) and waits for its JSON-stringified result.
//
// The call settles on the first of: the dispatcher's resolve/reject
// callback, the configured timeout, or context cancellation. Timeout
// abandons the slot but never interrupts the interpreter; whatever the
// sandboxed function eventually does is silently discarded.
func (e *Engine) CallAsync(ctx context.Context, object, method string, args ...interface{}) (string, error) {
	callID := id.NewCallID().String()
	slot := make(chan outcome, 1)
	e.pending.Store(callID, slot)

	script, err := buildDispatch(callID, object, method, args)
	if err != nil {
		e.pending.Delete(callID)
		return "", err
	}

	if err := e.enqueue(ctx, func(vm *goja.Runtime) {
		if _, runErr := vm.RunString(script); runErr != nil {
			e.settle(callID, outcome{errMsg: runErr.Error(), failed: true})
		}
	}); err != nil {
		e.pending.Delete(callID)
		return "", err
	}

	timer := time.NewTimer(e.cfg.CallTimeout)
	defer timer.Stop()

	select {
	case out := <-slot:
		if out.failed {
			return "", &ScriptError{Message: out.errMsg}
		}
		return out.result, nil
	case <-timer.C:
		e.pending.Delete(callID)
		return "", fmt.Errorf("%w: %s (%s)", ErrTimeout, method, callID)
	case <-ctx.Done():
		e.pending.Delete(callID)
		return "", ctx.Err()
	}
}

// buildDispatch renders the dispatcher script for one call. The
// dispatcher funnels synchronous returns, thenable resolutions and
// thrown errors through one resolve/reject pair tagged with the call id.
func buildDispatch(callID, object, method string, args []interface{}) (string, error) {
	if args == nil {
		args = []interface{}{}
	}
	argsJSON, err := sonic.MarshalString(args)
	if err != nil {
		return "", fmt.Errorf("failed to serialize call arguments: %w", err)
	}

	target := "globalThis"
	if object != "" {
		target = "globalThis" + subscript(object)
	}

	var sb strings.Builder
	sb.WriteString("(function () {\n")
	fmt.Fprintf(&sb, "  var target = %s;\n", target)
	fmt.Fprintf(&sb, "  var args = %s;\n", argsJSON)
	sb.WriteString("  var fail = function (e) {\n")
	fmt.Fprintf(&sb, "    %s.reject(%s, e && e.message ? String(e.message) : String(e));\n", resolverName, strconv.Quote(callID))
	sb.WriteString("  };\n")
	sb.WriteString("  var settle = function (v) {\n")
	sb.WriteString("    var payload = JSON.stringify(v);\n")
	fmt.Fprintf(&sb, "    %s.resolve(%s, payload === undefined ? \"null\" : payload);\n", resolverName, strconv.Quote(callID))
	sb.WriteString("  };\n")
	sb.WriteString("  try {\n")
	fmt.Fprintf(&sb, "    var fn = target ? target%s : undefined;\n", subscript(method))
	fmt.Fprintf(&sb, "    if (typeof fn !== \"function\") { throw new TypeError(%s + \" is not a function\"); }\n", strconv.Quote(method))
	sb.WriteString("    var ret = fn.apply(target, args);\n")
	sb.WriteString("    if (ret && typeof ret.then === \"function\") { ret.then(settle, fail); } else { settle(ret); }\n")
	sb.WriteString("  } catch (e) { fail(e); }\n")
	sb.WriteString("})();")

	return sb.String(), nil
}

// subscript renders a bracketed property access, keeping arbitrary
// names (and untrusted ones) out of code position.
func subscript(name string) string {
	return "[" + strconv.Quote(name) + "]"
}
