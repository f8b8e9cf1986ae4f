package bridge

import (
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/Parallel-SEKAI/kanade/internal/logging"
)

// Console exposes console-like logging to the sandbox. Output is
// one-way and fire-and-forget; a logging call never fails.
type Console struct {
	log *logging.Logger
}

// NewConsole creates the logging bridge capability for one script.
func NewConsole(log *logging.Logger, scriptID string) *Console {
	return &Console{log: log.Named("script." + scriptID)}
}

// Bind builds the sandbox-facing object.
func (c *Console) Bind(vm *goja.Runtime) goja.Value {
	obj := vm.NewObject()
	obj.Set("log", c.emit(c.log.Info))
	obj.Set("info", c.emit(c.log.Info))
	obj.Set("debug", c.emit(c.log.Debug))
	obj.Set("warn", c.emit(c.log.Warn))
	obj.Set("error", c.emit(c.log.Error))
	return obj
}

func (c *Console) emit(sink func(msg string, fields ...zap.Field)) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, arg.String())
		}
		sink(strings.Join(parts, " "))
		return goja.Undefined()
	}
}
