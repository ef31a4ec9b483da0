package devices

import "fmt"

// LocalDevice is a plain in-process Device implementation. Runtimes with real
// accelerators provide their own Device handles; LocalDevice serves hosts
// that only need stable device identities (and tests, which pair it with
// LookupFromList as a fake runtime).
type LocalDevice struct {
	num  DeviceNum
	kind string
}

// NewLocalDevice creates a device handle with the given logical number and
// kind (e.g. "cpu").
func NewLocalDevice(num DeviceNum, kind string) *LocalDevice {
	return &LocalDevice{num: num, kind: kind}
}

// DeviceNum returns the logical number of this device.
func (d *LocalDevice) DeviceNum() DeviceNum { return d.num }

// Kind describes the device type.
func (d *LocalDevice) Kind() string { return d.kind }

// String implements fmt.Stringer.
func (d *LocalDevice) String() string {
	return fmt.Sprintf("%s:%d", d.kind, d.num)
}
