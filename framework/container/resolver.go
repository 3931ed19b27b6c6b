package container

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"runtime"
	"slices"

	"go.uber.org/zap"
)

// Resolver is handed to factories, extenders and resolve hooks. Makes issued
// through it share the build stack of the resolution in progress, so cycles
// through factories are detected and contextual bindings see the right
// consumer.
type Resolver interface {
	Make(abstract string) (any, error)
	MakeWith(abstract string, params Params) (any, error)
	Call(callable any, params Params) (any, error)
	Parameter(key string) (any, bool)
	Container() *Container
	BuildStack() []string
}

// Extender decorates an instance after it is built and before it is cached.
type Extender func(instance any, r Resolver) (any, error)

// ── Make ──────────────────────────────────────────────────────────────────────

// Make resolves abstract to an instance.
//
//	// Laravel: $app->make(UserRepository::class)
//	repo, err := c.Make("UserRepository")
func (c *Container) Make(abstract string) (any, error) {
	return c.MakeWith(abstract, nil)
}

// MakeWith resolves abstract, supplying params by name to the concrete.
//
//	// Laravel: $app->makeWith(Report::class, ['id' => 1])
//	v, err := c.MakeWith("Report", container.Params{"id": 1})
func (c *Container) MakeWith(abstract string, params Params) (any, error) {
	return c.newResolution().MakeWith(abstract, params)
}

// MustMake is like Make but panics on error. Useful in bootstrap code.
func (c *Container) MustMake(abstract string) any {
	v, err := c.Make(abstract)
	if err != nil {
		panic(err)
	}
	return v
}

// Call invokes callable, injecting its parameters. callable is a *Func or a
// plain Go function. It returns the first non-error result and, when the
// function's last result is an error, that error.
//
//	// Laravel: $app->call([$controller, 'index'], ['page' => 2])
//	out, err := c.Call(controller.Index, container.Params{"page": 2})
func (c *Container) Call(callable any, params Params) (any, error) {
	return c.newResolution().Call(callable, params)
}

// Extend registers a decorator for abstract. A cached instance is decorated
// immediately.
//
//	// Laravel: $app->extend(Logger::class, fn($log) => new PrefixedLogger($log))
func (c *Container) Extend(abstract string, fn Extender) error {
	c.extenders[abstract] = append(c.extenders[abstract], fn)

	instance, ok := c.instances[abstract]
	if !ok {
		return nil
	}
	decorated, err := fn(instance, c)
	if err != nil {
		return fmt.Errorf("extender for [%s]: %w", abstract, err)
	}
	c.instances[abstract] = decorated
	return nil
}

// ── resolution ────────────────────────────────────────────────────────────────

// resolution is one top-level Make or Call. It owns the build stack.
type resolution struct {
	c     *Container
	stack []string
}

func (c *Container) newResolution() *resolution {
	return &resolution{c: c}
}

func (r *resolution) Make(abstract string) (any, error) {
	return r.MakeWith(abstract, nil)
}

func (r *resolution) Parameter(key string) (any, bool) { return r.c.Parameter(key) }

func (r *resolution) Container() *Container { return r.c }

func (r *resolution) BuildStack() []string { return slices.Clone(r.stack) }

// MakeWith applies, in order: alias resolution, active scope overrides,
// the instance cache, contextual overrides for the top frame, the binding,
// and finally auto-binding of a class defined under the resolved name.
func (r *resolution) MakeWith(abstract string, params Params) (any, error) {
	c := r.c

	key, err := c.aliases.Resolve(abstract, c.scopes.aliasScope(c.aliases, abstract))
	if err != nil {
		return nil, err
	}

	if concrete, scope, ok := c.scopes.override(key); ok {
		c.logger.Debug("scoped override",
			zap.String("abstract", key),
			zap.String("scope", scope),
		)
		return r.produce(key, concrete, params, false)
	}

	if instance, ok := c.instances[key]; ok {
		return instance, nil
	}

	concrete, shared, err := r.concreteFor(key)
	if err != nil {
		return nil, err
	}
	return r.produce(key, concrete, params, shared)
}

func (r *resolution) concreteFor(key string) (Concrete, bool, error) {
	if top, ok := r.top(); ok {
		if concrete, ok := r.c.contextual.lookup(top, key); ok {
			return concrete, false, nil
		}
	}
	if b, ok := r.c.bindings[key]; ok {
		return b.concrete, b.shared, nil
	}
	if class, ok := r.c.classes[key]; ok {
		return class, false, nil
	}
	return nil, false, r.c.notFound(key)
}

// produce builds concrete for key, decorates it, caches it when shared and
// fires the resolve hooks. Values are returned untouched.
func (r *resolution) produce(key string, concrete Concrete, params Params, shared bool) (any, error) {
	var (
		instance any
		err      error
	)
	switch v := concrete.(type) {
	case value:
		return v.v, nil
	case Factory:
		instance, err = r.invoke(key, v, params)
	case *Class:
		instance, err = r.build(v, params)
	default:
		err = &BindingResolutionError{Concrete: key, Reason: fmt.Sprintf("unsupported concrete %T", concrete)}
	}
	if err != nil {
		return nil, err
	}

	for _, fn := range r.c.extenders[key] {
		if instance, err = fn(instance, r); err != nil {
			return nil, fmt.Errorf("extender for [%s]: %w", key, err)
		}
	}

	if shared {
		r.c.instances[key] = instance
	}

	// The cached instance stays cached when a hook fails.
	if err := r.c.hooks.fireResolved(key, instance, r); err != nil {
		return nil, err
	}
	return instance, nil
}

func (r *resolution) invoke(key string, factory Factory, params Params) (any, error) {
	if err := r.push(key); err != nil {
		return nil, err
	}
	defer r.pop()

	instance, err := factory(r, params)
	if err != nil {
		return nil, fmt.Errorf("factory for [%s]: %w", key, err)
	}
	return instance, nil
}

func (r *resolution) build(class *Class, params Params) (any, error) {
	if err := r.push(class.name); err != nil {
		return nil, err
	}
	defer r.pop()

	typ := class.ctor.Type()
	args := make([]reflect.Value, len(class.params))
	for i, p := range class.params {
		arg, err := r.argument(class.name, p, typ.In(i), params, true)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}

	out := class.ctor.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, &BindingResolutionError{
			Concrete: class.name,
			Reason:   "constructor failed",
			Cause:    out[1].Interface().(error),
		}
	}
	return out[0].Interface(), nil
}

// argument satisfies one parameter: an explicit value first, then a typed
// dependency, then the default. Without any of those a class parameter is
// unresolvable while a Call parameter receives its zero value.
func (r *resolution) argument(owner string, p Param, t reflect.Type, params Params, strict bool) (reflect.Value, error) {
	if v, ok := params[p.Name]; ok {
		return convert(owner, p.Name, v, t)
	}

	if p.Abstract != "" {
		dep, err := r.MakeWith(p.Abstract, nil)
		if err == nil {
			return convert(owner, p.Name, dep, t)
		}
		var notFound *ServiceNotFoundError
		if !errors.As(err, &notFound) || error(notFound) != err {
			return reflect.Value{}, err
		}
		if !p.HasDefault {
			return reflect.Value{}, &BindingResolutionError{
				Concrete:  owner,
				Parameter: p.Name,
				Reason:    "unresolvable dependency",
				Cause:     err,
			}
		}
	}

	if p.HasDefault {
		return convert(owner, p.Name, p.Default, t)
	}
	if !strict {
		return reflect.Zero(t), nil
	}
	return reflect.Value{}, &BindingResolutionError{
		Concrete:  owner,
		Parameter: p.Name,
		Reason:    "unresolvable dependency",
	}
}

// Call resolves arguments with this resolution's stack but pushes no frame.
func (r *resolution) Call(callable any, params Params) (any, error) {
	fn, table, err := r.c.callable(callable)
	if err != nil {
		return nil, err
	}
	owner := runtime.FuncForPC(fn.Pointer()).Name()

	typ := fn.Type()
	args := make([]reflect.Value, len(table))
	for i, p := range table {
		arg, err := r.argument(owner, p, typ.In(i), params, false)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return results(typ, fn.Call(args))
}

func (c *Container) callable(callable any) (reflect.Value, []Param, error) {
	if f, ok := callable.(*Func); ok && f != nil {
		return f.fn, f.params, nil
	}
	fn, err := checkFunc(callable, false)
	if err != nil {
		return reflect.Value{}, nil, err
	}
	table, ok := c.funcs[fn.Type()]
	if !ok {
		table = deriveParams(fn.Type())
		c.funcs[fn.Type()] = table
	}
	return fn, table, nil
}

func results(typ reflect.Type, out []reflect.Value) (any, error) {
	var err error
	if n := len(out); n > 0 && typ.Out(n-1) == errorType {
		if !out[n-1].IsNil() {
			err = out[n-1].Interface().(error)
		}
		out = out[:n-1]
	}
	if len(out) == 0 {
		return nil, err
	}
	return out[0].Interface(), err
}

func convert(owner, name string, v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	val := reflect.ValueOf(v)
	if val.Type().AssignableTo(t) {
		return val, nil
	}
	if numeric(val.Kind()) && numeric(t.Kind()) {
		if !fits(val, t) {
			return reflect.Value{}, &BindingResolutionError{
				Concrete:  owner,
				Parameter: name,
				Reason:    fmt.Sprintf("%v does not fit %s", v, t),
			}
		}
		return val.Convert(t), nil
	}
	return reflect.Value{}, &BindingResolutionError{
		Concrete:  owner,
		Parameter: name,
		Reason:    fmt.Sprintf("expects %s, got %T", t, v),
	}
}

func numeric(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

func signed(k reflect.Kind) bool   { return k >= reflect.Int && k <= reflect.Int64 }
func unsigned(k reflect.Kind) bool { return k >= reflect.Uint && k <= reflect.Uintptr }

// fits reports whether val converts to t without wrapping, truncation or a
// dropped fraction.
func fits(val reflect.Value, t reflect.Type) bool {
	to := t.Kind()
	switch from := val.Kind(); {
	case signed(from):
		n := val.Int()
		switch {
		case signed(to):
			return !t.OverflowInt(n)
		case unsigned(to):
			return n >= 0 && !t.OverflowUint(uint64(n))
		}
		return !t.OverflowFloat(float64(n))
	case unsigned(from):
		n := val.Uint()
		switch {
		case signed(to):
			return n <= math.MaxInt64 && !t.OverflowInt(int64(n))
		case unsigned(to):
			return !t.OverflowUint(n)
		}
		return !t.OverflowFloat(float64(n))
	default:
		f := val.Float()
		switch {
		case signed(to):
			return f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 && !t.OverflowInt(int64(f))
		case unsigned(to):
			return f == math.Trunc(f) && f >= 0 && f < math.MaxUint64 && !t.OverflowUint(uint64(f))
		}
		return !t.OverflowFloat(f)
	}
}

// ── build stack ───────────────────────────────────────────────────────────────

func (r *resolution) push(frame string) error {
	if slices.Contains(r.stack, frame) {
		chain := append(slices.Clone(r.stack), frame)
		return &CircularDependencyError{Chain: chain}
	}
	r.stack = append(r.stack, frame)
	return nil
}

func (r *resolution) pop() {
	r.stack = r.stack[:len(r.stack)-1]
}

func (r *resolution) top() (string, bool) {
	if len(r.stack) == 0 {
		return "", false
	}
	return r.stack[len(r.stack)-1], true
}
