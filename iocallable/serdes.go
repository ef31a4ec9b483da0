package iocallable

import (
	"bytes"
	"encoding/gob"
	"sync"

	"github.com/gomlx/callables/devices"
	"github.com/gomlx/callables/serdes"
	"github.com/gomlx/callables/specs"
	"github.com/pkg/errors"
)

// programSerDes serializes and deserializes Program values.
//
// Wire form: a single gob stream with the scalar fields copied verbatim, the
// device bindings as logical device numbers, and the input/output specs in
// order, each in its own wire form. Devices and specs are resolved back to
// live handles through DeserializeProgramOptions.LookupDevice.
type programSerDes struct{}

func (programSerDes) TypeName() string { return ProgramTypeName }

func (programSerDes) Serialize(value serdes.Serializable) ([]byte, error) {
	program, ok := value.(*Program)
	if !ok {
		return nil, errors.Wrapf(serdes.ErrInvalidArgument,
			"SerDes for %q given a %T", ProgramTypeName, value)
	}
	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	var err error
	enc := func(data any) {
		if err != nil {
			return
		}
		err = encoder.Encode(data)
		if err != nil {
			err = errors.Wrapf(err, "failed to serialize %s", program)
		}
	}
	enc(program.Kind)
	enc(program.Name)
	enc(program.SerializedProgramText)
	if err != nil {
		return nil, err
	}
	if err = program.Devices.GobSerialize(encoder); err != nil {
		return nil, err
	}
	for _, specsList := range [][]specs.ArraySpec{program.InputSpecs, program.OutputSpecs} {
		enc(len(specsList))
		if err != nil {
			return nil, err
		}
		for _, spec := range specsList {
			if err = spec.GobSerialize(encoder); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

func (programSerDes) Deserialize(data []byte, opts serdes.Options) (serdes.Serializable, error) {
	programOpts, ok := opts.(*DeserializeProgramOptions)
	if !ok || programOpts.LookupDevice == nil {
		return nil, errors.Wrapf(serdes.ErrInvalidArgument,
			"deserializing a %q requires a *DeserializeProgramOptions with a device lookup, got %T",
			ProgramTypeName, opts)
	}
	lookup := programOpts.LookupDevice
	decoder := gob.NewDecoder(bytes.NewReader(data))
	program := &Program{}
	var err error
	dec := func(data any) {
		if err != nil {
			return
		}
		err = decoder.Decode(data)
		if err != nil {
			err = errors.Wrapf(serdes.ErrInvalidArgument,
				"failed to deserialize %q: %v", ProgramTypeName, err)
		}
	}
	dec(&program.Kind)
	dec(&program.Name)
	dec(&program.SerializedProgramText)
	if err != nil {
		return nil, err
	}
	program.Devices, err = devices.GobDeserializeDeviceList(decoder, lookup)
	if err != nil {
		return nil, err
	}
	for _, specsList := range []*[]specs.ArraySpec{&program.InputSpecs, &program.OutputSpecs} {
		var count int
		dec(&count)
		if err != nil {
			return nil, err
		}
		if count < 0 {
			return nil, errors.Wrapf(serdes.ErrInvalidArgument,
				"failed to deserialize %q: negative spec count %d", ProgramTypeName, count)
		}
		*specsList = make([]specs.ArraySpec, 0, count)
		for range count {
			spec, err := specs.GobDeserializeArraySpec(decoder, lookup)
			if err != nil {
				return nil, err
			}
			*specsList = append(*specsList, spec)
		}
	}
	return program, nil
}

// compileOptionsSerDes serializes and deserializes CompileOptions values.
// The type is stateless, so its wire form is the empty byte string; anything
// non-empty is rejected rather than silently ignored.
type compileOptionsSerDes struct{}

func (compileOptionsSerDes) TypeName() string { return CompileOptionsTypeName }

func (compileOptionsSerDes) Serialize(serdes.Serializable) ([]byte, error) {
	// Stateless type: the wire form is empty whatever the value holds.
	return nil, nil
}

func (compileOptionsSerDes) Deserialize(data []byte, _ serdes.Options) (serdes.Serializable, error) {
	if len(data) != 0 {
		return nil, errors.Wrapf(serdes.ErrInvalidArgument,
			"a serialized %q must be the empty byte string, got %d bytes",
			CompileOptionsTypeName, len(data))
	}
	return CompileOptions{}, nil
}

var registerOnce sync.Once

// Register installs the SerDes units for Program and CompileOptions in the
// serdes registry. Call it once from process/library startup code, before any
// serialize/deserialize traffic; extra calls are no-ops, so independent hosts
// in the same process may each call it.
func Register() {
	registerOnce.Do(func() {
		serdes.Register(programSerDes{})
		serdes.Register(compileOptionsSerDes{})
	})
}
