package shell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerRegistry_Lookup(t *testing.T) {
	sess, _ := newTestSession(t, nil)
	simple := &fakeSimple{}
	stream := &fakeStream{}

	reg := NewHandlerRegistry(func(*Session) (Handler, error) { return Streaming(stream), nil })
	reg.Register("Set", func(*Session) (Handler, error) { return Simple(simple), nil })

	h, err := reg.Lookup("SET", sess)
	require.NoError(t, err)
	assert.Same(t, simple, h.Simple)

	h, err = reg.Lookup("select", sess)
	require.NoError(t, err)
	assert.Same(t, stream, h.Stream)

	assert.Equal(t, []string{"set"}, reg.Tokens())
}

func TestHandlerRegistry_NoFallback(t *testing.T) {
	sess, _ := newTestSession(t, nil)
	reg := NewHandlerRegistry(nil)
	reg.Register("set", func(*Session) (Handler, error) { return Simple(&fakeSimple{}), nil })

	_, err := reg.Lookup("select", sess)
	require.Error(t, err)

	var unknownErr *UnknownHandlerError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "select", unknownErr.Token)
	assert.Equal(t, []string{"set"}, unknownErr.Available)

	reg.SetFallback(func(*Session) (Handler, error) { return Streaming(&fakeStream{}), nil })
	_, err = reg.Lookup("select", sess)
	assert.NoError(t, err)
}

func TestHandlerRegistry_FactoryErrors(t *testing.T) {
	sess, _ := newTestSession(t, nil)
	boom := errors.New("connection closed")
	reg := NewHandlerRegistry(nil)
	reg.Register("broken", func(*Session) (Handler, error) { return Handler{}, boom })
	reg.Register("empty", func(*Session) (Handler, error) { return Handler{}, nil })

	_, err := reg.Lookup("broken", sess)
	assert.ErrorIs(t, err, boom)

	_, err = reg.Lookup("empty", sess)
	assert.ErrorContains(t, err, "factory returned no handler")
}

func TestHandler_Union(t *testing.T) {
	assert.True(t, Handler{}.IsZero())
	assert.False(t, Simple(&fakeSimple{}).IsZero())
	assert.False(t, Streaming(&fakeStream{}).IsZero())

	stream := &fakeStream{}
	Streaming(stream).setTryCount(3)
	assert.Equal(t, []int{3}, stream.tries)

	// Handlers without TryCounter are left alone.
	Simple(&fakeSimple{}).setTryCount(1)
}
