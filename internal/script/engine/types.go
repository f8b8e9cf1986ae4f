package engine

import (
	"errors"
	"time"

	"github.com/dop251/goja"
)

var (
	// ErrClosed is returned for operations against a torn-down engine.
	ErrClosed = errors.New("engine is closed")

	// ErrTimeout is returned when a call does not settle within the
	// configured ceiling. Distinct from a script-thrown error.
	ErrTimeout = errors.New("script call timed out")
)

// ScriptError is an error thrown by sandboxed code during one call.
// The engine itself remains usable.
type ScriptError struct {
	Message string
}

func (e *ScriptError) Error() string {
	return e.Message
}

// Binder builds a capability object inside a runtime. Implementations
// are registered into the sandbox's global scope under a well-known
// name and are the only way scripts reach host functionality.
type Binder interface {
	Bind(vm *goja.Runtime) goja.Value
}

// Config defines engine tuning.
type Config struct {
	// CallTimeout is the ceiling for one CallAsync invocation.
	CallTimeout time.Duration
	// MaxCallStackSize bounds interpreter recursion depth. Real-world
	// provider scripts recurse deeply, so the default is generous.
	MaxCallStackSize int
	// QueueSize is the job queue capacity of the worker lane.
	QueueSize int
}

// DefaultConfig returns production engine configuration.
func DefaultConfig() Config {
	return Config{
		CallTimeout:      15 * time.Second,
		MaxCallStackSize: 8192,
		QueueSize:        64,
	}
}
