// Package specs defines ArraySpec, the metadata describing one argument or
// result of a callable program: its shape (dtype and dimensions), the devices
// the array is assigned to, and an optional memory kind.
//
// Shapes are GoMLX shapes (github.com/gomlx/gomlx/types/shapes), so specs
// interoperate directly with GoMLX tensors and graph nodes. The device
// assignment crosses the wire as logical device numbers and is resolved back
// to live handles with a devices.LookupFn during deserialization.
package specs

import (
	"encoding/gob"
	"fmt"

	"github.com/gomlx/callables/devices"
	"github.com/gomlx/callables/serdes"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/pkg/errors"
)

// ArraySpec describes one array-valued argument or result of a program:
// shape, device assignment and memory kind. It is immutable once constructed.
type ArraySpec struct {
	// Shape of the array, including its dtype.
	Shape shapes.Shape

	// Devices the array is assigned to. Must be non-empty.
	Devices devices.DeviceList

	// MemoryKind optionally names the memory space the array lives in.
	// Empty means the device's default memory.
	MemoryKind string
}

// Equal reports whether both specs have the same shape, the same device
// handles in the same order, and the same memory kind.
func (s ArraySpec) Equal(other ArraySpec) bool {
	return s.Shape.Equal(other.Shape) &&
		s.Devices.Equal(other.Devices) &&
		s.MemoryKind == other.MemoryKind
}

// String implements fmt.Stringer.
func (s ArraySpec) String() string {
	if s.MemoryKind == "" {
		return fmt.Sprintf("ArraySpec(%s, devices=%s)", s.Shape, s.Devices)
	}
	return fmt.Sprintf("ArraySpec(%s, devices=%s, memory=%q)", s.Shape, s.Devices, s.MemoryKind)
}

// GobSerialize writes the spec to the encoder in binary format. The device
// assignment is written as logical device numbers only.
func (s ArraySpec) GobSerialize(encoder *gob.Encoder) (err error) {
	err = s.Shape.GobSerialize(encoder)
	if err != nil {
		return
	}
	err = s.Devices.GobSerialize(encoder)
	if err != nil {
		return
	}
	return encoder.Encode(s.MemoryKind)
}

// GobDeserializeArraySpec reads an ArraySpec back from the decoder, resolving
// its device assignment through lookup. Malformed bytes fail with an
// ErrInvalidArgument-based error; an unresolvable device number fails with
// the lookup's error. On failure no spec is returned.
func GobDeserializeArraySpec(decoder *gob.Decoder, lookup devices.LookupFn) (s ArraySpec, err error) {
	s.Shape, err = shapes.GobDeserialize(decoder)
	if err != nil {
		return ArraySpec{}, errors.Wrapf(serdes.ErrInvalidArgument,
			"failed to deserialize ArraySpec shape: %v", err)
	}
	s.Devices, err = devices.GobDeserializeDeviceList(decoder, lookup)
	if err != nil {
		return ArraySpec{}, err
	}
	err = decoder.Decode(&s.MemoryKind)
	if err != nil {
		return ArraySpec{}, errors.Wrapf(serdes.ErrInvalidArgument,
			"failed to deserialize ArraySpec memory kind: %v", err)
	}
	return
}
