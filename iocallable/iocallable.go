// Package iocallable defines the value types describing an "IO callable"
// program -- a compiled callable bound to a set of devices, with one
// ArraySpec per input and output -- and registers their SerDes units with the
// serdes registry.
//
// The program body itself is an opaque blob: this package never parses or
// validates it, it only carries it. Compiling and executing the program is
// the job of the runtime that produced it.
//
// Hosts must call Register once during startup, before any serialize or
// deserialize traffic:
//
//	iocallable.Register()
//	env := must.M1(serdes.Serialize(program))
//	...
//	opts := &iocallable.DeserializeProgramOptions{LookupDevice: lookup}
//	program := must.M1(serdes.DeserializeAs[*iocallable.Program](env, opts))
package iocallable

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/gomlx/callables/devices"
	"github.com/gomlx/callables/specs"
)

// Type names under which the SerDes units of this package are registered.
// They are part of the persisted wire form and must never change.
const (
	ProgramTypeName        = "iocallable.Program"
	CompileOptionsTypeName = "iocallable.CompileOptions"
)

// Program is an immutable representation of an IO callable program. Construct
// it fully-populated and do not mutate it afterwards; the SerDes path relies
// on the field values being fixed.
type Program struct {
	// Kind tags the program dialect/backend, e.g. "xla". Uninterpreted here.
	Kind string

	// Name is a human-readable identifier, not required to be unique.
	Name string

	// SerializedProgramText is the opaque program body. It is never
	// validated or interpreted by this layer -- an empty blob is accepted.
	SerializedProgramText []byte

	// Devices this program is bound to. Must be non-empty.
	Devices devices.DeviceList

	// InputSpecs and OutputSpecs describe the program's arguments and
	// results, in order, one ArraySpec each. Either may be empty, for
	// zero-argument or zero-result programs.
	InputSpecs  []specs.ArraySpec
	OutputSpecs []specs.ArraySpec
}

// SerDesTypeName implements serdes.Serializable.
func (p *Program) SerDesTypeName() string { return ProgramTypeName }

// Equal reports field-for-field equality, with device handles compared by
// identity.
func (p *Program) Equal(other *Program) bool {
	return p.Kind == other.Kind &&
		p.Name == other.Name &&
		bytes.Equal(p.SerializedProgramText, other.SerializedProgramText) &&
		p.Devices.Equal(other.Devices) &&
		slices.EqualFunc(p.InputSpecs, other.InputSpecs, specs.ArraySpec.Equal) &&
		slices.EqualFunc(p.OutputSpecs, other.OutputSpecs, specs.ArraySpec.Equal)
}

// String implements fmt.Stringer.
func (p *Program) String() string {
	return fmt.Sprintf("Program(kind=%q, name=%q, devices=%s, %d inputs, %d outputs)",
		p.Kind, p.Name, p.Devices, len(p.InputSpecs), len(p.OutputSpecs))
}

// CompileOptions is the compile-options value for IO callable programs. It is
// a stateless marker for now: its canonical serialized form is the empty byte
// string, and deserialization rejects anything else, so a future version that
// gains fields cannot silently lose them against old readers.
type CompileOptions struct{}

// SerDesTypeName implements serdes.Serializable.
func (CompileOptions) SerDesTypeName() string { return CompileOptionsTypeName }

// DeserializeProgramOptions is the serdes.Options value required to
// deserialize a Program: it carries the device lookup used to resolve the
// program's device bindings and the device assignments of its array specs.
type DeserializeProgramOptions struct {
	// LookupDevice resolves logical device numbers against the current
	// runtime. See devices.LookupFromList for a simple implementation.
	LookupDevice devices.LookupFn
}
