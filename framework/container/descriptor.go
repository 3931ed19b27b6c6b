package container

import (
	"fmt"
	"reflect"
	"unicode"
)

// ── Concretes ─────────────────────────────────────────────────────────────────

// ConcreteKind names the three shapes a binding's concrete can take.
type ConcreteKind string

const (
	KindFactory ConcreteKind = "factory"
	KindClass   ConcreteKind = "class"
	KindValue   ConcreteKind = "value"
)

// Concrete is what an abstract is bound to: a Factory, a *Class or a Value.
type Concrete interface {
	Kind() ConcreteKind
}

// Params are explicit arguments keyed by parameter name.
type Params map[string]any

// Factory builds a value. r carries the build stack of the resolution in
// progress, so nested r.Make calls keep contextual lookup and cycle detection.
//
//	// Laravel: $app->bind(Mailer::class, fn($app, $params) => new SmtpMailer($params['host']))
//	c.Bind("mailer", container.Factory(func(r container.Resolver, p container.Params) (any, error) {
//	    return &SMTPMailer{Host: p["host"].(string)}, nil
//	}))
type Factory func(r Resolver, params Params) (any, error)

func (Factory) Kind() ConcreteKind { return KindFactory }

type value struct{ v any }

func (value) Kind() ConcreteKind { return KindValue }

// Value wraps a ready-made object. Resolving a key bound to a Value returns
// the object as-is, without hooks.
func Value(v any) Concrete { return value{v: v} }

// ── Dependency descriptors ────────────────────────────────────────────────────

// ParamKind classifies how a parameter is satisfied when no explicit value is
// supplied by the caller.
type ParamKind int

const (
	// ParamExplicit parameters must be passed by the caller.
	ParamExplicit ParamKind = iota
	// ParamTyped parameters are resolved through Make.
	ParamTyped
	// ParamDefault parameters fall back to a declared default.
	ParamDefault
)

// Param describes one constructor or function argument.
type Param struct {
	Name       string
	Abstract   string
	Default    any
	HasDefault bool
}

// Arg describes an untyped argument satisfied by name.
func Arg(name string) Param { return Param{Name: name} }

// Dep describes an argument resolved from the container under abstract.
func Dep(name, abstract string) Param { return Param{Name: name, Abstract: abstract} }

// Or returns a copy of p with a default value.
func (p Param) Or(def any) Param {
	p.Default = def
	p.HasDefault = true
	return p
}

// Kind reports the strategy used after explicit parameters are exhausted.
func (p Param) Kind() ParamKind {
	switch {
	case p.Abstract != "":
		return ParamTyped
	case p.HasDefault:
		return ParamDefault
	default:
		return ParamExplicit
	}
}

// ── Class ─────────────────────────────────────────────────────────────────────

// Class is a constructible type: a constructor function and the descriptor
// table for its parameters, computed once when the class is created.
//
//	reports := container.MustClass("ReportService", NewReportService,
//	    container.Dep("db", "db"),
//	    container.Arg("title").Or("Daily"),
//	)
type Class struct {
	name   string
	ctor   reflect.Value
	params []Param
}

// NewClass validates constructor and builds its descriptor table. The
// constructor must have the shape func(deps...) T or func(deps...) (T, error).
// When params is empty the table is derived from the parameter types: pointer
// and interface parameters become typed dependencies keyed by TypeKey. An
// empty name defaults to the TypeKey of T.
func NewClass(name string, constructor any, params ...Param) (*Class, error) {
	val, err := checkFunc(constructor, true)
	if err != nil {
		return nil, err
	}
	typ := val.Type()

	if name == "" {
		name = typeKeyOf(typ.Out(0))
	}

	table, err := describe(typ, params)
	if err != nil {
		return nil, fmt.Errorf("class [%s]: %w", name, err)
	}
	return &Class{name: name, ctor: val, params: table}, nil
}

// MustClass is like NewClass but panics on error.
func MustClass(name string, constructor any, params ...Param) *Class {
	c, err := NewClass(name, constructor, params...)
	if err != nil {
		panic(err)
	}
	return c
}

func (*Class) Kind() ConcreteKind { return KindClass }

// Name returns the concrete identifier pushed on the build stack.
func (c *Class) Name() string { return c.name }

// Params returns a copy of the descriptor table.
func (c *Class) Params() []Param {
	out := make([]Param, len(c.params))
	copy(out, c.params)
	return out
}

// ParamNames returns the parameter names in declaration order.
func (c *Class) ParamNames() []string {
	names := make([]string, len(c.params))
	for i, p := range c.params {
		names[i] = p.Name
	}
	return names
}

// ── Func ──────────────────────────────────────────────────────────────────────

// Func is a callable with an explicit descriptor table, for Container.Call.
// Plain Go functions may be passed to Call directly; their table is derived
// from the function type and cached.
type Func struct {
	fn     reflect.Value
	params []Param
}

// NewFunc describes fn. Unlike classes, any return shape is accepted.
func NewFunc(fn any, params ...Param) (*Func, error) {
	val, err := checkFunc(fn, false)
	if err != nil {
		return nil, err
	}
	table, err := describe(val.Type(), params)
	if err != nil {
		return nil, err
	}
	return &Func{fn: val, params: table}, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func checkFunc(fn any, constructor bool) (reflect.Value, error) {
	val := reflect.ValueOf(fn)
	if !val.IsValid() || val.Kind() != reflect.Func || val.IsNil() {
		return reflect.Value{}, fmt.Errorf("%w: %T is not a function", ErrInvalidConcrete, fn)
	}
	typ := val.Type()
	if typ.IsVariadic() {
		return reflect.Value{}, fmt.Errorf("%w: variadic functions are not supported", ErrInvalidConcrete)
	}
	if !constructor {
		return val, nil
	}
	if typ.NumOut() == 0 || typ.NumOut() > 2 {
		return reflect.Value{}, fmt.Errorf("%w: constructor must return (T) or (T, error)", ErrInvalidConcrete)
	}
	if typ.NumOut() == 2 && typ.Out(1) != errorType {
		return reflect.Value{}, fmt.Errorf("%w: second return value must be error, got %s", ErrInvalidConcrete, typ.Out(1))
	}
	return val, nil
}

func describe(typ reflect.Type, params []Param) ([]Param, error) {
	if len(params) == 0 {
		return deriveParams(typ), nil
	}
	if len(params) != typ.NumIn() {
		return nil, fmt.Errorf("%w: %d params described, function takes %d", ErrInvalidConcrete, len(params), typ.NumIn())
	}
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: parameter without a name", ErrInvalidConcrete)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: duplicate parameter %q", ErrInvalidConcrete, p.Name)
		}
		seen[p.Name] = true
	}
	out := make([]Param, len(params))
	copy(out, params)
	return out, nil
}

func deriveParams(typ reflect.Type) []Param {
	params := make([]Param, typ.NumIn())
	seen := make(map[string]bool, typ.NumIn())
	for i := range params {
		t := typ.In(i)
		name := paramName(t, i)
		if seen[name] {
			name = fmt.Sprintf("%s%d", name, i)
		}
		seen[name] = true

		params[i] = Param{Name: name}
		if injectable(t) {
			params[i].Abstract = typeKeyOf(t)
		}
	}
	return params
}

func paramName(t reflect.Type, i int) string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		return fmt.Sprintf("arg%d", i)
	}
	r := []rune(name)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func injectable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface:
		return t.Name() != ""
	case reflect.Ptr:
		return t.Elem().Kind() == reflect.Struct && t.Elem().Name() != ""
	default:
		return false
	}
}

// TypeKey returns the package-qualified type name of v, useful as a stable
// abstract key when working with interfaces.
//
//	key := container.TypeKey((*UserRepository)(nil))  // "main.UserRepository"
//	c.Singleton(key, factory)
func TypeKey(v any) string {
	return typeKeyOf(reflect.TypeOf(v))
}

// Key is the generic form of TypeKey: Key[*Logger]() == Key[Logger]().
func Key[T any]() string {
	return typeKeyOf(reflect.TypeOf((*T)(nil)).Elem())
}

func typeKeyOf(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

func describeConcrete(c Concrete) string {
	switch v := c.(type) {
	case *Class:
		return v.name
	case value:
		return fmt.Sprintf("%T", v.v)
	case Factory:
		return "factory"
	default:
		return fmt.Sprintf("%T", c)
	}
}
