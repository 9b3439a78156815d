// -----------------------------------------------------------------------
// Callable registry - named functions executable by reference
// -----------------------------------------------------------------------

package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/agenda/internal/common"
	"github.com/ternarybob/arbor"
)

// ParamType is the declared JSON type of a user-supplied parameter
type ParamType string

const (
	ParamString ParamType = "string"
	ParamNumber ParamType = "number"
	ParamBool   ParamType = "bool"
	ParamObject ParamType = "object"
	ParamArray  ParamType = "array"
	ParamAny    ParamType = "any"
)

// Capability identifies a framework-injected argument. Injected parameters
// are resolved from the capability table, never from caller JSON.
type Capability string

const (
	CapabilityNone      Capability = ""
	CapabilitySession   Capability = "session"   // transactional database session
	CapabilityDatabase  Capability = "database"  // database lifecycle handle
	CapabilityArtifacts Capability = "artifacts" // artifact store handle
	CapabilityScheduler Capability = "scheduler" // job scheduler handle
)

// ParamSpec declares one formal parameter of a callable. A non-empty
// Inject marks it capability-injected; otherwise the binder resolves it
// from the caller-supplied JSON object by Name.
type ParamSpec struct {
	Name     string
	Type     ParamType
	Required bool
	Default  interface{}
	Inject   Capability
}

// Func is the invocation shape of a registered callable. Arguments arrive
// in args keyed by parameter name, capabilities included.
type Func func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Callable bundles a name, its declared parameters, and the function
type Callable struct {
	Name   string
	Params []ParamSpec
	Fn     Func
}

// Error is a typed business failure raised by a callable. It is rendered
// into the execution artifact's error payload; the job still completes.
type Error struct {
	Type    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewError creates a typed callable error
func NewError(errType, message string) *Error {
	return &Error{Type: errType, Message: message}
}

// Registry maps callable names to their handles and parameter
// declarations. It is populated at startup before the scheduler admits
// work; Clear exists for test isolation only.
type Registry struct {
	mu        sync.RWMutex
	callables map[string]*Callable
	logger    arbor.ILogger
}

// NewRegistry creates an empty callable registry
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		callables: make(map[string]*Callable),
		logger:    logger,
	}
}

// Register adds a callable under its name. Duplicate names conflict.
func (r *Registry) Register(c *Callable) error {
	if c == nil || c.Name == "" {
		return fmt.Errorf("%w: callable name cannot be empty", common.ErrValidationFailed)
	}
	if c.Fn == nil {
		return fmt.Errorf("%w: callable function cannot be nil", common.ErrValidationFailed)
	}
	for _, p := range c.Params {
		if p.Inject == CapabilityNone && p.Name == "" {
			return fmt.Errorf("%w: callable %s declares an unnamed parameter", common.ErrValidationFailed, c.Name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.callables[c.Name]; exists {
		return fmt.Errorf("%w: callable %s already registered", common.ErrConflict, c.Name)
	}
	r.callables[c.Name] = c

	r.logger.Debug().
		Str("callable", c.Name).
		Int("params", len(c.Params)).
		Msg("Callable registered")

	return nil
}

// Get resolves a callable by name
func (r *Registry) Get(name string) (*Callable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.callables[name]
	if !ok {
		return nil, fmt.Errorf("%w: callable %s", common.ErrNotFound, name)
	}
	return c, nil
}

// Has reports whether a name resolves in the registry
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.callables[name]
	return ok
}

// List returns the registered names sorted alphabetically
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.callables))
	for name := range r.callables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes all registrations. Test use only.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callables = make(map[string]*Callable)
}
