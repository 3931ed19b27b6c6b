package container

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// State is a structured snapshot of the bindings, contextual bindings, tags
// and parameters of a container.
//
// Objects set through Instance are exported as shared value bindings. Built
// and cached instances are listed by key only. Factory concretes cannot be
// exported; their keys are listed in Unserializable (contextual ones as
// "consumer/abstract") and are absent after ImportState.
type State struct {
	Bindings       []BindingState      `yaml:"bindings" json:"bindings" validate:"dive"`
	Contextual     []ContextualState   `yaml:"contextual,omitempty" json:"contextual,omitempty" validate:"dive"`
	Instances      []string            `yaml:"instances,omitempty" json:"instances,omitempty" validate:"dive,required"`
	Tags           map[string][]string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Parameters     map[string]any      `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Unserializable []string            `yaml:"unserializable,omitempty" json:"unserializable,omitempty"`
}

// BindingState is one exported binding. Class names a class defined in the
// target container; Value holds the bound value.
type BindingState struct {
	Abstract string       `yaml:"abstract" json:"abstract" validate:"required"`
	Kind     ConcreteKind `yaml:"kind" json:"kind" validate:"required,oneof=class value"`
	Class    string       `yaml:"class,omitempty" json:"class,omitempty" validate:"required_if=Kind class"`
	Value    any          `yaml:"value,omitempty" json:"value,omitempty"`
	Shared   bool         `yaml:"shared" json:"shared"`
}

// ContextualState is one exported "when Consumer needs Abstract" override.
type ContextualState struct {
	Consumer string       `yaml:"consumer" json:"consumer" validate:"required"`
	Abstract string       `yaml:"abstract" json:"abstract" validate:"required"`
	Kind     ConcreteKind `yaml:"kind" json:"kind" validate:"required,oneof=class value"`
	Class    string       `yaml:"class,omitempty" json:"class,omitempty" validate:"required_if=Kind class"`
	Value    any          `yaml:"value,omitempty" json:"value,omitempty"`
}

var stateValidator = validator.New(validator.WithRequiredStructEnabled())

// selfKey is the container's own registration, recreated by ImportState.
const selfKey = "container"

// ExportState snapshots the container.
//
//	st := c.ExportState()
//	data, _ := st.Encode()
func (c *Container) ExportState() State {
	st := State{
		Tags:       c.Tags(),
		Parameters: maps.Clone(c.parameters),
	}
	for _, key := range c.Instances() {
		if _, ok := c.registered[key]; !ok {
			st.Instances = append(st.Instances, key)
		}
	}

	for _, key := range c.Bindings() {
		b := c.bindings[key]
		switch v := b.concrete.(type) {
		case *Class:
			st.Bindings = append(st.Bindings, BindingState{Abstract: key, Kind: KindClass, Class: v.name, Shared: b.shared})
		case value:
			st.Bindings = append(st.Bindings, BindingState{Abstract: key, Kind: KindValue, Value: v.v, Shared: b.shared})
		default:
			st.Unserializable = append(st.Unserializable, key)
		}
	}
	for _, key := range c.Registered() {
		if key == selfKey {
			continue
		}
		st.Bindings = append(st.Bindings, BindingState{Abstract: key, Kind: KindValue, Value: c.instances[key], Shared: true})
	}
	slices.SortFunc(st.Bindings, func(a, b BindingState) int { return strings.Compare(a.Abstract, b.Abstract) })

	for _, consumer := range slices.Sorted(maps.Keys(c.contextual)) {
		overrides := c.contextual[consumer]
		for _, need := range slices.Sorted(maps.Keys(overrides)) {
			switch v := overrides[need].(type) {
			case *Class:
				st.Contextual = append(st.Contextual, ContextualState{Consumer: consumer, Abstract: need, Kind: KindClass, Class: v.name})
			case value:
				st.Contextual = append(st.Contextual, ContextualState{Consumer: consumer, Abstract: need, Kind: KindValue, Value: v.v})
			default:
				st.Unserializable = append(st.Unserializable, consumer+"/"+need)
			}
		}
	}
	return st
}

// ImportState replaces the bindings, contextual bindings, cached instances,
// tags and parameters with st. st is validated first; on error nothing
// changes. onBind hooks do not fire.
func (c *Container) ImportState(st State) error {
	if err := stateValidator.Struct(st); err != nil {
		return &InvalidStateError{Reason: "malformed snapshot", Cause: err}
	}

	bindings := make(map[string]*binding, len(st.Bindings))
	for i, bs := range st.Bindings {
		field := fmt.Sprintf("bindings[%d]", i)
		if _, dup := bindings[bs.Abstract]; dup {
			return &InvalidStateError{Field: field, Reason: fmt.Sprintf("duplicate abstract [%s]", bs.Abstract)}
		}
		concrete, err := c.importConcrete(field, bs.Kind, bs.Class, bs.Value)
		if err != nil {
			return err
		}
		bindings[bs.Abstract] = &binding{concrete: concrete, shared: bs.Shared}
	}

	contextual := make(contextualIndex)
	for i, cs := range st.Contextual {
		field := fmt.Sprintf("contextual[%d]", i)
		if _, dup := contextual.lookup(cs.Consumer, cs.Abstract); dup {
			return &InvalidStateError{Field: field, Reason: fmt.Sprintf("duplicate override [%s] for [%s]", cs.Abstract, cs.Consumer)}
		}
		concrete, err := c.importConcrete(field, cs.Kind, cs.Class, cs.Value)
		if err != nil {
			return err
		}
		contextual.set(cs.Consumer, cs.Abstract, concrete)
	}

	tags := make(tagIndex, len(st.Tags))
	for _, tag := range slices.Sorted(maps.Keys(st.Tags)) {
		if tag == "" {
			return &InvalidStateError{Field: "tags", Reason: "empty tag name"}
		}
		for i, key := range st.Tags[tag] {
			if key == "" {
				return &InvalidStateError{Field: fmt.Sprintf("tags.%s[%d]", tag, i), Reason: "empty key"}
			}
		}
		tags[tag] = slices.Clone(st.Tags[tag])
	}

	if _, ok := st.Parameters[""]; ok {
		return &InvalidStateError{Field: "parameters", Reason: "empty parameter name"}
	}

	c.bindings = bindings
	c.contextual = contextual
	c.instances = map[string]any{selfKey: c}
	c.registered = map[string]struct{}{selfKey: {}}
	c.tags = tags
	c.parameters = maps.Clone(st.Parameters)
	if c.parameters == nil {
		c.parameters = make(map[string]any)
	}
	return nil
}

func (c *Container) importConcrete(field string, kind ConcreteKind, className string, v any) (Concrete, error) {
	if kind == KindClass {
		class, ok := c.classes[className]
		if !ok {
			return nil, &InvalidStateError{Field: field, Reason: fmt.Sprintf("unknown class [%s]", className)}
		}
		return class, nil
	}
	return Value(v), nil
}

// Encode renders the snapshot as YAML.
func (st State) Encode() ([]byte, error) {
	return yaml.Marshal(st)
}

// DecodeState strictly decodes a YAML (or JSON) snapshot. Unknown fields are
// rejected. The result still needs ImportState to take effect.
func DecodeState(data []byte) (State, error) {
	var st State
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&st); err != nil {
		if errors.Is(err, io.EOF) {
			return State{}, &InvalidStateError{Reason: "empty document"}
		}
		return State{}, &InvalidStateError{Reason: "decode", Cause: err}
	}
	return st, nil
}
