// -----------------------------------------------------------------------
// Parameter binder - resolves callable arguments from caller JSON and
// the capability injection table
// -----------------------------------------------------------------------

package registry

import (
	"fmt"

	"github.com/ternarybob/agenda/internal/common"
	"github.com/ternarybob/agenda/internal/interfaces"
	"github.com/ternarybob/agenda/internal/models"
	"github.com/ternarybob/agenda/internal/scheduler"
)

// Submitter is the scheduler surface handed to callables that request the
// scheduler capability
type Submitter interface {
	Submit(work scheduler.Work) (string, error)
	Get(jobID string) (*models.Job, error)
}

// Capabilities is the injection table the binder resolves against. Nil
// entries mean the capability is not configured.
type Capabilities struct {
	Storage   interfaces.StorageManager
	Artifacts interfaces.ArtifactStorage
	Scheduler Submitter
}

// Bind builds the argument map for one invocation of c from the
// caller-supplied params and the capability table.
//
// For each declared parameter, in order: an injected parameter resolves
// from the capability table; otherwise the value comes from params by
// name (validated against the declared type), then from the declared
// default. A required parameter that resolves nowhere fails the bind.
//
// When a session is injected it is acquired here, scoped to this single
// invocation; the returned release function discards it and must be
// called on every exit path. Release is always non-nil.
func Bind(c *Callable, params map[string]interface{}, caps Capabilities) (map[string]interface{}, func(), error) {
	args := make(map[string]interface{}, len(c.Params))
	release := func() {}

	for _, spec := range c.Params {
		if spec.Inject != CapabilityNone {
			value, rel, err := resolveCapability(spec.Inject, caps)
			if err != nil {
				release()
				return nil, func() {}, err
			}
			if rel != nil {
				prev := release
				release = func() { rel(); prev() }
			}
			args[argKey(spec)] = value
			continue
		}

		if value, ok := params[spec.Name]; ok {
			if !matchesType(value, spec.Type) {
				release()
				return nil, func() {}, fmt.Errorf("%w: parameter %q must be of type %s",
					common.ErrValidationFailed, spec.Name, spec.Type)
			}
			args[spec.Name] = value
			continue
		}

		if spec.Default != nil {
			args[spec.Name] = spec.Default
			continue
		}

		if spec.Required {
			release()
			return nil, func() {}, fmt.Errorf("%w: missing required parameter %q",
				common.ErrValidationFailed, spec.Name)
		}
	}

	return args, release, nil
}

func argKey(spec ParamSpec) string {
	if spec.Name != "" {
		return spec.Name
	}
	return string(spec.Inject)
}

func resolveCapability(capability Capability, caps Capabilities) (interface{}, func(), error) {
	switch capability {
	case CapabilitySession:
		if caps.Storage == nil {
			return nil, nil, fmt.Errorf("%w: database not available for session injection", common.ErrConflict)
		}
		session := caps.Storage.NewSession()
		return session, session.Discard, nil
	case CapabilityDatabase:
		if caps.Storage == nil {
			return nil, nil, fmt.Errorf("%w: database not available", common.ErrConflict)
		}
		return caps.Storage, nil, nil
	case CapabilityArtifacts:
		if caps.Artifacts == nil {
			return nil, nil, fmt.Errorf("%w: artifact store not available", common.ErrConflict)
		}
		return caps.Artifacts, nil, nil
	case CapabilityScheduler:
		if caps.Scheduler == nil {
			return nil, nil, fmt.Errorf("%w: scheduler not available", common.ErrConflict)
		}
		return caps.Scheduler, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown capability %q", common.ErrValidationFailed, capability)
	}
}

// matchesType validates a JSON-decoded value against a declared type.
// Numbers accept both float64 (JSON decoding) and Go integer literals so
// that defaults declared in code behave like caller-supplied values.
func matchesType(value interface{}, t ParamType) bool {
	if value == nil {
		return true
	}
	switch t {
	case ParamAny, "":
		return true
	case ParamString:
		_, ok := value.(string)
		return ok
	case ParamNumber:
		switch value.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case ParamBool:
		_, ok := value.(bool)
		return ok
	case ParamObject:
		_, ok := value.(map[string]interface{})
		return ok
	case ParamArray:
		_, ok := value.([]interface{})
		return ok
	default:
		return false
	}
}
