// -----------------------------------------------------------------------
// Built-in callables registered by the service host
// -----------------------------------------------------------------------

package callables

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/agenda/internal/interfaces"
	"github.com/ternarybob/agenda/internal/registry"
)

// RegisterBuiltins installs the stock callables. Call before the
// scheduler starts admitting work.
func RegisterBuiltins(reg *registry.Registry) error {
	builtins := []*registry.Callable{
		echoCallable(),
		sleepCallable(),
		kvPutCallable(),
		kvGetCallable(),
		jobStatusCallable(),
	}

	for _, c := range builtins {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("failed to register builtin %s: %w", c.Name, err)
		}
	}
	return nil
}

// echo returns its value argument unchanged
func echoCallable() *registry.Callable {
	return &registry.Callable{
		Name: "echo",
		Params: []registry.ParamSpec{
			{Name: "value", Type: registry.ParamAny, Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return args["value"], nil
		},
	}
}

// sleep waits the requested number of milliseconds, honoring cancellation
func sleepCallable() *registry.Callable {
	return &registry.Callable{
		Name: "sleep",
		Params: []registry.ParamSpec{
			{Name: "ms", Type: registry.ParamNumber, Default: float64(1000)},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			ms := toInt(args["ms"])
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
				return map[string]interface{}{"slept_ms": ms}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
}

// kv-put writes a key/value pair through an injected session
func kvPutCallable() *registry.Callable {
	return &registry.Callable{
		Name: "kv-put",
		Params: []registry.ParamSpec{
			{Name: "session", Inject: registry.CapabilitySession},
			{Name: "key", Type: registry.ParamString, Required: true},
			{Name: "value", Type: registry.ParamString, Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			session := args["session"].(interfaces.Session)
			key := args["key"].(string)
			if err := session.Set(key, []byte(args["value"].(string))); err != nil {
				return nil, err
			}
			if err := session.Commit(); err != nil {
				return nil, err
			}
			return map[string]interface{}{"key": key}, nil
		},
	}
}

// kv-get reads a key through an injected session
func kvGetCallable() *registry.Callable {
	return &registry.Callable{
		Name: "kv-get",
		Params: []registry.ParamSpec{
			{Name: "session", Inject: registry.CapabilitySession},
			{Name: "key", Type: registry.ParamString, Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			session := args["session"].(interfaces.Session)
			key := args["key"].(string)
			value, err := session.Get(key)
			if err != nil {
				return nil, registry.NewError("not-found", fmt.Sprintf("key %s not found", key))
			}
			return map[string]interface{}{"key": key, "value": string(value)}, nil
		},
	}
}

// job-status inspects another job through the injected scheduler handle
func jobStatusCallable() *registry.Callable {
	return &registry.Callable{
		Name: "job-status",
		Params: []registry.ParamSpec{
			{Name: "scheduler", Inject: registry.CapabilityScheduler},
			{Name: "job_id", Type: registry.ParamString, Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			sched := args["scheduler"].(registry.Submitter)
			job, err := sched.Get(args["job_id"].(string))
			if err != nil {
				return nil, registry.NewError("not-found", err.Error())
			}
			return map[string]interface{}{"job_id": job.ID, "status": string(job.Status)}, nil
		},
	}
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case float32:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}
