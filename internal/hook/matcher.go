package hook

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strconv"
	"sync"

	"github.com/AmritaBot/AmritaCore/pkg/types"
)

// ErrStopDispatch, when returned by a HandlerFunc, halts the current
// Trigger call without propagating an error to the caller — the
// registration-order equivalent of the source's Matcher.stop_process().
var ErrStopDispatch = errors.New("hook: stop dispatch")

// Factory resolves one declared dependency for a single event dispatch. A
// (nil, nil) result means "unavailable"; the owning Matcher is skipped
// rather than fired with a zero value (spec.md §4.4.3.d). Factory
// deliberately cannot itself declare further Depends parameters — its
// signature has no Param list — which is how this package structurally
// forecloses the dependency cycles the source guards against at runtime.
type Factory func(ctx context.Context, event Event, cfg types.AmritaConfig) (any, error)

// ParamSource selects how a declared handler parameter is resolved.
type ParamSource int

const (
	// FromDepends resolves via a Factory, concurrently with sibling
	// FromDepends parameters of the same Matcher.
	FromDepends ParamSource = iota
	// FromKwarg resolves from the caller-supplied hook kwargs map by name.
	FromKwarg
	// FromArgByType resolves from the caller-supplied positional hook args
	// by matching the first assignable value of Type.
	FromArgByType
)

// Param declares one resolvable handler parameter.
type Param struct {
	Name    string
	Source  ParamSource
	Factory Factory
	Type    reflect.Type
}

// Depends declares a dependency-injected parameter resolved by fn.
func Depends(name string, fn Factory) Param {
	return Param{Name: name, Source: FromDepends, Factory: fn}
}

// Kwarg declares a parameter resolved from Trigger's hook kwargs by name.
func Kwarg(name string) Param {
	return Param{Name: name, Source: FromKwarg}
}

// ArgByType declares a parameter resolved from Trigger's positional hook
// args by matching the first value assignable to sample's type.
func ArgByType(name string, sample any) Param {
	return Param{Name: name, Source: FromArgByType, Type: reflect.TypeOf(sample)}
}

// Values holds the resolved parameters passed to a HandlerFunc.
type Values struct {
	m map[string]any
}

// Get returns the resolved value for name, if the Matcher declared it.
func (v Values) Get(name string) (any, bool) {
	val, ok := v.m[name]
	return val, ok
}

// HandlerFunc is a registered event handler. Returning ErrStopDispatch
// halts remaining matchers for this Trigger call; any other error is
// logged (or re-raised, if listed in TriggerOptions.ExceptionIgnored) and
// dispatch continues to the next matcher.
type HandlerFunc func(ctx context.Context, event Event, values Values) error

type registration struct {
	id      string
	kind    Kind
	name    string
	handler HandlerFunc
	params  []Param
}

// Registry holds registered matchers per Kind and dispatches events to
// them in registration order (spec.md §4.4: "matchers fire in
// registration order per event kind").
type Registry struct {
	mu       sync.Mutex
	byKind   map[Kind][]*registration
	nextID   int
	logger   *slog.Logger
}

// NewRegistry returns an empty Registry logging through logger. A nil
// logger falls back to slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{byKind: make(map[Kind][]*registration), logger: logger}
}

// On registers handler to fire for events of the given kind, declaring
// its resolvable parameters. It returns a registration ID usable with
// Off. name is a human-readable label used only in log lines.
func (r *Registry) On(kind Kind, name string, handler HandlerFunc, params ...Param) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := kindIDPrefix(kind) + "-" + strconv.Itoa(r.nextID)
	reg := &registration{id: id, kind: kind, name: name, handler: handler, params: params}
	r.byKind[kind] = append(r.byKind[kind], reg)
	return id
}

// Off removes a previously registered matcher by ID.
func (r *Registry) Off(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for kind, regs := range r.byKind {
		for i, reg := range regs {
			if reg.id == id {
				r.byKind[kind] = append(regs[:i:i], regs[i+1:]...)
				return
			}
		}
	}
}

// TriggerOptions customizes a single Trigger dispatch.
type TriggerOptions struct {
	// Args are positional values available to FromArgByType parameters.
	Args []any
	// Kwargs are named values available to FromKwarg parameters.
	Kwargs map[string]any
	// ExceptionIgnored lists sentinel errors that, if produced by a
	// dependency Factory or a HandlerFunc, are re-raised to the Trigger
	// caller immediately instead of being logged and skipped (spec.md
	// §4.4: "exceptions in this set propagate to the dispatcher's
	// caller; all others are aggregated and the owning matcher is
	// skipped").
	ExceptionIgnored []error
}

// Trigger dispatches event to every matcher registered for event.Kind()
// in registration order (I4: sequential per-event dispatch — no two
// matchers for the same event run concurrently, only a single matcher's
// own declared dependencies resolve concurrently with each other).
func (r *Registry) Trigger(ctx context.Context, event Event, cfg types.AmritaConfig, opts TriggerOptions) error {
	r.mu.Lock()
	regs := append([]*registration(nil), r.byKind[event.Kind()]...)
	r.mu.Unlock()

	for _, reg := range regs {
		values, ok, err := r.resolve(ctx, event, cfg, reg, opts)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := reg.handler(ctx, event, values); err != nil {
			if errors.Is(err, ErrStopDispatch) {
				return nil
			}
			if matchesAny(err, opts.ExceptionIgnored) {
				return err
			}
			r.logger.Warn("hook: handler error", "matcher", reg.name, "kind", string(reg.kind), "error", err)
			continue
		}
	}
	return nil
}

type depTask struct {
	name    string
	factory Factory
}

// resolve builds the Values for a single matcher, running its declared
// dependencies concurrently. ok is false when the matcher should be
// skipped for this event (an arg/kwarg was missing, or a dependency
// resolved to "unavailable").
func (r *Registry) resolve(ctx context.Context, event Event, cfg types.AmritaConfig, reg *registration, opts TriggerOptions) (Values, bool, error) {
	values := Values{m: make(map[string]any, len(reg.params))}
	var tasks []depTask

	for _, p := range reg.params {
		switch p.Source {
		case FromDepends:
			tasks = append(tasks, depTask{name: p.Name, factory: p.Factory})
		case FromKwarg:
			v, ok := opts.Kwargs[p.Name]
			if !ok {
				return Values{}, false, nil
			}
			values.m[p.Name] = v
		case FromArgByType:
			found := false
			for _, arg := range opts.Args {
				if arg != nil && reflect.TypeOf(arg).AssignableTo(p.Type) {
					values.m[p.Name] = arg
					found = true
					break
				}
			}
			if !found {
				return Values{}, false, nil
			}
		}
	}

	if len(tasks) == 0 {
		return values, true, nil
	}

	results := make([]any, len(tasks))
	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t depTask) {
			defer wg.Done()
			v, err := t.factory(ctx, event, cfg)
			results[i], errs[i] = v, err
		}(i, t)
	}
	wg.Wait()

	unavailable := false
	for i, err := range errs {
		if err == nil {
			if results[i] == nil {
				unavailable = true
			}
			continue
		}
		if matchesAny(err, opts.ExceptionIgnored) {
			return Values{}, false, err
		}
		r.logger.Warn("hook: dependency resolution error", "matcher", reg.name, "dependency", tasks[i].name, "error", err)
		return Values{}, false, nil
	}
	if unavailable {
		return Values{}, false, nil
	}
	for i, t := range tasks {
		values.m[t.name] = results[i]
	}
	return values, true, nil
}

func matchesAny(err error, sentinels []error) bool {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

func kindIDPrefix(k Kind) string {
	if k == "" {
		return "hook"
	}
	return string(k)
}
