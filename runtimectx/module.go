package runtimectx

import (
	"fmt"

	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/values"
)

// Module is a named bundle of native functions, constants, and
// constructors a host application registers together — one mysql
// driver, one collections library, one test-assertion module.
// Grounded on the "ty/function/associated_function" builder style in
// _examples/original_source/.../modules/collections/hash_map.rs,
// adapted to this runtime's hash-keyed (rather than name-resolved)
// dispatch.
type Module struct {
	Name         string
	Functions    map[hash.Hash]FunctionHandler
	Constants    map[hash.Hash]values.Value
	Constructors map[hash.Hash]ConstConstructor
}

// NewModule returns an empty, named Module ready for registration.
func NewModule(name string) *Module {
	return &Module{
		Name:         name,
		Functions:    make(map[hash.Hash]FunctionHandler),
		Constants:    make(map[hash.Hash]values.Value),
		Constructors: make(map[hash.Hash]ConstConstructor),
	}
}

// Function registers a native function handler under a hash — usually
// hash.Of("modulename::itemname"), computed by the caller.
func (m *Module) Function(h hash.Hash, fn FunctionHandler) *Module {
	m.Functions[h] = fn
	return m
}

// Constant registers a pre-built constant value.
func (m *Module) Constant(h hash.Hash, v values.Value) *Module {
	m.Constants[h] = v
	return m
}

// Constructor registers a const-constructor.
func (m *Module) Constructor(h hash.Hash, fn ConstConstructor) *Module {
	m.Constructors[h] = fn
	return m
}

// ContextBuilder aggregates Modules into a sealed RuntimeContext.
// Unlike wudi-hey's registry.Registry, which lets a later
// registration silently overwrite an earlier one, Add rejects a
// duplicate hash outright: a silent stomp here would mean two modules
// fighting over one protocol slot and the host never finding out.
type ContextBuilder struct {
	functions    hash.Map[FunctionHandler]
	constants    hash.Map[values.Value]
	constructors hash.Map[ConstConstructor]
}

// NewContextBuilder returns an empty ContextBuilder.
func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{
		functions:    hash.NewMap[FunctionHandler](0),
		constants:    hash.NewMap[values.Value](0),
		constructors: hash.NewMap[ConstConstructor](0),
	}
}

// Add installs every item a Module registers, failing on the first
// hash collision against anything already installed.
func (b *ContextBuilder) Add(m *Module) error {
	for h, fn := range m.Functions {
		if !b.functions.SetIfAbsent(h, fn) {
			return fmt.Errorf("runtimectx: module %q: function hash %s already registered", m.Name, h)
		}
	}
	for h, v := range m.Constants {
		if !b.constants.SetIfAbsent(h, v) {
			return fmt.Errorf("runtimectx: module %q: constant hash %s already registered", m.Name, h)
		}
	}
	for h, fn := range m.Constructors {
		if !b.constructors.SetIfAbsent(h, fn) {
			return fmt.Errorf("runtimectx: module %q: constructor hash %s already registered", m.Name, h)
		}
	}
	return nil
}

// Build seals the builder into an immutable RuntimeContext.
func (b *ContextBuilder) Build() *RuntimeContext {
	return &RuntimeContext{
		functions:    b.functions.Clone(),
		constants:    b.constants.Clone(),
		constructors: b.constructors.Clone(),
	}
}
