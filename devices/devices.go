// Package devices defines references to the accelerator devices a program
// representation is bound to, and how those references are resolved back to
// live handles when a serialized program is reconstructed.
//
// Only logical device numbers cross the wire. The runtime that owns the
// actual devices supplies a LookupFn, and deserialization threads it through
// every resolution explicitly -- there is no ambient device table, so the
// whole path is testable with a fake lookup.
package devices

import (
	"encoding/gob"
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/callables/serdes"
	"github.com/pkg/errors"
)

// DeviceNum is the logical number of a device within the runtime that owns
// it. It is the only part of a device reference that is serialized.
type DeviceNum int

// Device is a live handle to an accelerator device, owned by an external
// runtime. This package never creates or finalizes devices, it only resolves
// numbers to handles through a caller-supplied LookupFn.
type Device interface {
	// DeviceNum returns the logical number of this device.
	DeviceNum() DeviceNum

	// Kind describes the device type, e.g. "cpu" or "cuda".
	Kind() string

	// String implements fmt.Stringer.
	String() string
}

// LookupFn resolves a logical device number to a live handle. It fails if the
// number is unknown to the current runtime; that failure is propagated
// verbatim by every deserialization path that uses the lookup.
type LookupFn func(num DeviceNum) (Device, error)

// DeviceList is an ordered, immutable, non-empty list of live device handles.
// Order is preserved through serialization and duplicates are never removed.
type DeviceList struct {
	devices []Device
}

// NewDeviceList creates a DeviceList from the given handles. The slice is
// copied, so the caller may reuse it.
func NewDeviceList(devices ...Device) DeviceList {
	return DeviceList{devices: slices.Clone(devices)}
}

// Len returns the number of devices in the list.
func (l DeviceList) Len() int { return len(l.devices) }

// Devices returns a copy of the device handles, in order.
func (l DeviceList) Devices() []Device { return slices.Clone(l.devices) }

// DeviceNums returns the logical numbers of the devices, in order. This is
// the list's wire form.
func (l DeviceList) DeviceNums() []DeviceNum {
	nums := make([]DeviceNum, 0, len(l.devices))
	for _, device := range l.devices {
		nums = append(nums, device.DeviceNum())
	}
	return nums
}

// Equal reports whether both lists hold the same device handles in the same
// order.
func (l DeviceList) Equal(other DeviceList) bool {
	return slices.Equal(l.devices, other.devices)
}

// String implements fmt.Stringer.
func (l DeviceList) String() string {
	parts := make([]string, 0, len(l.devices))
	for _, device := range l.devices {
		parts = append(parts, device.String())
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}

// FromDeviceNums resolves each logical number through lookup and returns the
// resulting list, preserving order. It fails if nums is empty, if lookup
// fails for any number (the lookup's error is propagated as the cause) or if
// lookup returns a nil handle. No partial list is returned.
func FromDeviceNums(lookup LookupFn, nums []DeviceNum) (DeviceList, error) {
	if len(nums) == 0 {
		return DeviceList{}, errors.Wrap(serdes.ErrInvalidArgument, "device list must not be empty")
	}
	resolved := make([]Device, 0, len(nums))
	for _, num := range nums {
		device, err := lookup(num)
		if err != nil {
			return DeviceList{}, errors.WithMessagef(err, "failed to resolve device #%d", num)
		}
		if device == nil {
			return DeviceList{}, errors.Errorf("device lookup returned a nil handle for device #%d", num)
		}
		resolved = append(resolved, device)
	}
	return DeviceList{devices: resolved}, nil
}

// GobSerialize writes the list's logical device numbers to the encoder.
func (l DeviceList) GobSerialize(encoder *gob.Encoder) (err error) {
	err = encoder.Encode(l.DeviceNums())
	if err != nil {
		err = errors.Wrapf(err, "failed to serialize DeviceList %s", l)
	}
	return
}

// GobDeserializeDeviceList reads logical device numbers from the decoder and
// resolves them through lookup. Malformed bytes fail with an
// ErrInvalidArgument-based error; resolution failures propagate the lookup's
// error.
func GobDeserializeDeviceList(decoder *gob.Decoder, lookup LookupFn) (DeviceList, error) {
	var nums []DeviceNum
	if err := decoder.Decode(&nums); err != nil {
		return DeviceList{}, errors.Wrapf(serdes.ErrInvalidArgument,
			"failed to deserialize DeviceList: %v", err)
	}
	return FromDeviceNums(lookup, nums)
}

// LookupFromList builds a LookupFn over a fixed set of devices, typically the
// runtime's current device list. The returned lookup fails for any number not
// in the set.
func LookupFromList(devices ...Device) LookupFn {
	byNum := make(map[DeviceNum]Device, len(devices))
	for _, device := range devices {
		byNum[device.DeviceNum()] = device
	}
	return func(num DeviceNum) (Device, error) {
		device, found := byNum[num]
		if !found {
			return nil, errors.Wrapf(serdes.ErrNotFound, "device #%d not in the current device list", num)
		}
		return device, nil
	}
}
