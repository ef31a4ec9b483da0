package serdes

import (
	"encoding/gob"
	"io"

	"github.com/pkg/errors"
)

// Envelope pairs the stable type name of a serialized value with its opaque
// wire bytes, making the pair self-describing: a receiver needs nothing but
// the Envelope (and a suitable Options value) to reconstruct the value.
//
// The Data bytes are meaningful only to the SerDes unit registered for
// TypeName; this layer never interprets them.
type Envelope struct {
	TypeName string
	Data     []byte
}

// GobSerialize writes the envelope to the encoder in binary format.
func (e *Envelope) GobSerialize(encoder *gob.Encoder) (err error) {
	enc := func(data any) {
		if err != nil {
			return
		}
		err = encoder.Encode(data)
		if err != nil {
			err = errors.Wrapf(err, "failed to serialize Envelope for type %q", e.TypeName)
		}
	}
	enc(e.TypeName)
	enc(e.Data)
	return
}

// GobDeserializeEnvelope reads an Envelope back from the decoder. It returns
// an ErrInvalidArgument-based error if the stream is not a well-formed
// envelope. The carried Data bytes are not validated here -- that happens
// when the envelope is deserialized through the registry.
func GobDeserializeEnvelope(decoder *gob.Decoder) (e *Envelope, err error) {
	e = &Envelope{}
	dec := func(data any) {
		if err != nil {
			return
		}
		err = decoder.Decode(data)
		if err != nil {
			err = errors.Wrapf(ErrInvalidArgument, "failed to deserialize Envelope: %v", err)
		}
	}
	dec(&e.TypeName)
	dec(&e.Data)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Save writes the envelope to w, in the same binary format used by
// GobSerialize.
func (e *Envelope) Save(w io.Writer) error {
	return e.GobSerialize(gob.NewEncoder(w))
}

// LoadEnvelope reads an envelope previously written with Envelope.Save.
func LoadEnvelope(r io.Reader) (*Envelope, error) {
	return GobDeserializeEnvelope(gob.NewDecoder(r))
}
