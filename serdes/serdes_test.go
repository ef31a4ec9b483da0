package serdes_test

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"slices"
	"testing"

	"github.com/gomlx/callables/serdes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// greeting is a minimal Serializable used to exercise the registry.
type greeting struct {
	Text string
}

func (g *greeting) SerDesTypeName() string { return "serdes_test.greeting" }

type greetingSerDes struct{}

func (greetingSerDes) TypeName() string { return "serdes_test.greeting" }

func (greetingSerDes) Serialize(value serdes.Serializable) ([]byte, error) {
	return []byte(value.(*greeting).Text), nil
}

func (greetingSerDes) Deserialize(data []byte, _ serdes.Options) (serdes.Serializable, error) {
	return &greeting{Text: string(data)}, nil
}

// unregistered never gets a SerDes unit.
type unregistered struct{}

func (unregistered) SerDesTypeName() string { return "serdes_test.unregistered" }

// mismatched returns values whose type tag doesn't match its registration.
type mismatchedSerDes struct{}

func (mismatchedSerDes) TypeName() string { return "serdes_test.mismatched" }
func (mismatchedSerDes) Serialize(serdes.Serializable) ([]byte, error) {
	return nil, nil
}
func (mismatchedSerDes) Deserialize([]byte, serdes.Options) (serdes.Serializable, error) {
	return &greeting{}, nil
}

func init() {
	serdes.Register(greetingSerDes{})
	serdes.Register(mismatchedSerDes{})
}

func TestSerializeRoundTrip(t *testing.T) {
	env, err := serdes.Serialize(&greeting{Text: "olá"})
	require.NoError(t, err)
	require.Equal(t, "serdes_test.greeting", env.TypeName)
	require.Equal(t, []byte("olá"), env.Data)

	value, err := serdes.DeserializeEnvelope(env, nil)
	require.NoError(t, err)
	require.Equal(t, &greeting{Text: "olá"}, value)

	typed, err := serdes.DeserializeAs[*greeting](env, nil)
	require.NoError(t, err)
	require.Equal(t, "olá", typed.Text)
}

func TestUnknownType(t *testing.T) {
	_, err := serdes.Serialize(unregistered{})
	require.ErrorIs(t, err, serdes.ErrNotFound)

	_, err = serdes.Deserialize("serdes_test.unregistered", nil, nil)
	require.ErrorIs(t, err, serdes.ErrNotFound)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	require.Panics(t, func() { serdes.Register(greetingSerDes{}) })
	require.Panics(t, func() { serdes.Register(nil) })
}

func TestDeserializeAsWrongType(t *testing.T) {
	env, err := serdes.Serialize(&greeting{Text: "hi"})
	require.NoError(t, err)
	_, err = serdes.DeserializeAs[unregistered](env, nil)
	require.ErrorIs(t, err, serdes.ErrInvalidArgument)
}

func TestMismatchedSerDesIsRejected(t *testing.T) {
	// The unit registered under "serdes_test.mismatched" returns greetings:
	// the registry must refuse to hand them out.
	_, err := serdes.Deserialize("serdes_test.mismatched", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestRegisteredTypeNames(t *testing.T) {
	names := serdes.RegisteredTypeNames()
	assert.Contains(t, names, "serdes_test.greeting")
	assert.Contains(t, names, "serdes_test.mismatched")
	assert.True(t, slices.IsSorted(names), "names must be sorted: %v", names)
}

func TestEnvelopeGobRoundTrip(t *testing.T) {
	env := &serdes.Envelope{TypeName: "serdes_test.greeting", Data: []byte{1, 2, 3}}
	var buf bytes.Buffer
	require.NoError(t, env.GobSerialize(gob.NewEncoder(&buf)))

	recovered, err := serdes.GobDeserializeEnvelope(gob.NewDecoder(&buf))
	require.NoError(t, err)
	require.Equal(t, env, recovered)
}

func TestEnvelopeMalformedBytes(t *testing.T) {
	_, err := serdes.GobDeserializeEnvelope(gob.NewDecoder(bytes.NewReader([]byte("not a gob stream"))))
	require.ErrorIs(t, err, serdes.ErrInvalidArgument)
}

func TestEnvelopeSaveLoad(t *testing.T) {
	env, err := serdes.Serialize(&greeting{Text: "saved"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, env.Save(&buf))
	recovered, err := serdes.LoadEnvelope(&buf)
	require.NoError(t, err)
	require.Equal(t, env, recovered)
}

func TestCollaboratorErrorsPropagateVerbatim(t *testing.T) {
	cause := errors.New("device table is being refreshed")
	serdes.Register(failingSerDes{cause: cause})
	_, err := serdes.Deserialize("serdes_test.failing", []byte("x"), nil)
	require.ErrorIs(t, err, cause)
}

type failingSerDes struct{ cause error }

func (failingSerDes) TypeName() string { return "serdes_test.failing" }
func (failingSerDes) Serialize(serdes.Serializable) ([]byte, error) {
	return nil, nil
}
func (f failingSerDes) Deserialize([]byte, serdes.Options) (serdes.Serializable, error) {
	return nil, fmt.Errorf("lookup failed: %w", f.cause)
}
