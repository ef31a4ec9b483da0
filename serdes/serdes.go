// Package serdes implements a process-wide registry that serializes and
// deserializes an open set of "program representation" value types, without
// the code that stores or transmits those values ever depending on their
// concrete types.
//
// Each concrete type exposes a stable type name through the Serializable
// interface and has exactly one SerDes unit registered for it, usually by an
// explicit Register entry point of its package (see the iocallable package).
// Registration happens during process/library startup, before any serialize
// or deserialize traffic; after that the registry is read-only and safe for
// unsynchronized concurrent lookups.
//
// Serialization produces an Envelope pairing the type name with the opaque
// bytes, so a receiver can deserialize a self-describing blob without prior
// knowledge of its concrete type. Deserialization may need live handles that
// cannot be recovered from bytes alone (e.g. device handles); those are
// passed in as an Options value, threaded explicitly through every call.
package serdes

import (
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"k8s.io/klog/v2"
)

var (
	// ErrNotFound is the cause of errors returned when no SerDes unit is
	// registered for the requested type name.
	ErrNotFound = errors.New("no SerDes registered")

	// ErrInvalidArgument is the cause of errors returned for malformed
	// serialized bytes or for values a SerDes unit cannot handle.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Serializable is implemented by any value that can be serialized through the
// registry. SerDesTypeName returns the stable type identifier under which the
// type's SerDes unit is registered -- it must be unique in the process and
// must never change once values of the type have been persisted.
type Serializable interface {
	SerDesTypeName() string
}

// Options carries the capabilities a SerDes unit needs during Deserialize,
// e.g. a device lookup function. Each concrete SerDes documents the Options
// type it expects. An Options value lives only for the duration of one
// Deserialize call.
type Options any

// SerDes serializes and deserializes exactly one concrete Serializable type.
type SerDes interface {
	// TypeName returns the stable type identifier this unit handles. It must
	// match the SerDesTypeName of the values it serializes.
	TypeName() string

	// Serialize returns the wire form of the given value. It fails if the
	// value is not of the concrete type this unit handles, or if any field
	// cannot be converted to its wire form -- a partial buffer is never
	// returned.
	Serialize(value Serializable) ([]byte, error)

	// Deserialize parses the wire form and returns a new, fully-populated
	// value, resolving external references (devices) through opts. On any
	// failure no partially-constructed value is returned.
	Deserialize(data []byte, opts Options) (Serializable, error)
}

// Registry of SerDes units, keyed by type name. Entries are installed during
// startup and never removed or replaced; reads are unsynchronized, which is
// safe once registration traffic has finished.
var registeredSerDes = make(map[string]SerDes)

// Register installs the SerDes unit for its type name. It must be called
// before any serialize/deserialize traffic for that type, typically from an
// explicit registration entry point invoked by process/library startup code.
//
// Registering a nil unit or registering the same type name twice indicates a
// build or initialization defect, and panics.
func Register(sd SerDes) {
	if sd == nil {
		exceptions.Panicf("serdes.Register given a nil SerDes")
	}
	name := sd.TypeName()
	if _, found := registeredSerDes[name]; found {
		exceptions.Panicf("serdes.Register: type %q already has a SerDes registered -- "+
			"each concrete type must be registered exactly once", name)
	}
	registeredSerDes[name] = sd
	klog.V(1).Infof("serdes: registered SerDes for type %q", name)
}

// RegisteredTypeNames returns the sorted type names with a registered SerDes.
func RegisteredTypeNames() []string {
	names := maps.Keys(registeredSerDes)
	slices.Sort(names)
	return names
}

func lookupSerDes(typeName string) (SerDes, error) {
	sd, found := registeredSerDes[typeName]
	if !found {
		return nil, errors.Wrapf(ErrNotFound, "for type %q (registered types: %v)",
			typeName, RegisteredTypeNames())
	}
	return sd, nil
}

// Serialize converts the value to its wire form, dispatching to the SerDes
// unit registered for the value's type name. The result is an Envelope
// carrying the type name alongside the bytes, so it can later be deserialized
// without prior knowledge of the concrete type.
//
// It returns an ErrNotFound-based error if the value's type was never
// registered; failures of the SerDes unit itself are returned unchanged.
func Serialize(value Serializable) (*Envelope, error) {
	typeName := value.SerDesTypeName()
	sd, err := lookupSerDes(typeName)
	if err != nil {
		return nil, err
	}
	data, err := sd.Serialize(value)
	if err != nil {
		return nil, err
	}
	if klog.V(2).Enabled() {
		klog.Infof("serdes: serialized %q (%s)", typeName, humanize.Bytes(uint64(len(data))))
	}
	return &Envelope{TypeName: typeName, Data: data}, nil
}

// Deserialize reconstructs a value from its type name and wire bytes,
// dispatching to the SerDes unit registered under typeName and passing data
// and opts through unchanged.
//
// It returns an ErrNotFound-based error if typeName was never registered.
// Failures of the SerDes unit -- malformed bytes, unresolvable device
// references raised by the lookup carried in opts -- are returned unchanged.
func Deserialize(typeName string, data []byte, opts Options) (Serializable, error) {
	sd, err := lookupSerDes(typeName)
	if err != nil {
		return nil, err
	}
	value, err := sd.Deserialize(data, opts)
	if err != nil {
		return nil, err
	}
	if got := value.SerDesTypeName(); got != typeName {
		return nil, errors.Errorf("SerDes registered for type %q returned a value of type %q -- "+
			"the SerDes unit is broken", typeName, got)
	}
	return value, nil
}

// DeserializeEnvelope reconstructs the value carried by a self-describing
// Envelope. See Deserialize.
func DeserializeEnvelope(env *Envelope, opts Options) (Serializable, error) {
	return Deserialize(env.TypeName, env.Data, opts)
}

// DeserializeAs reconstructs the value carried by the Envelope and checks it
// has the concrete type T, sparing callers the type assertion.
func DeserializeAs[T Serializable](env *Envelope, opts Options) (value T, err error) {
	generic, err := DeserializeEnvelope(env, opts)
	if err != nil {
		return
	}
	value, ok := generic.(T)
	if !ok {
		err = errors.Wrapf(ErrInvalidArgument, "envelope for type %q deserialized to %T, wanted %T",
			env.TypeName, generic, value)
	}
	return
}
