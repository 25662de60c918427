package scanner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCamera emits the given frames and records acquisition.
type fakeCamera struct {
	frames  []Frame
	openErr error
	err     error
	hold    bool // keep the stream open after the last frame

	opened int
	closed int
	ch     chan Frame
}

func (c *fakeCamera) Open(context.Context) error {
	if c.openErr != nil {
		return c.openErr
	}
	c.opened++
	c.ch = make(chan Frame, len(c.frames))
	for _, f := range c.frames {
		c.ch <- f
	}
	if !c.hold {
		close(c.ch)
	}
	return nil
}

func (c *fakeCamera) Frames() <-chan Frame { return c.ch }
func (c *fakeCamera) Err() error           { return c.err }
func (c *fakeCamera) Close() error {
	c.closed++
	return nil
}

func TestScanOnce(t *testing.T) {
	t.Run("Returns first match and releases", func(t *testing.T) {
		cam := &fakeCamera{frames: []Frame{Frame("blur"), Frame("750101"), Frame("750101")}, hold: true}
		code, err := ScanOnce(context.Background(), cam, DigitsDecoder{})
		require.NoError(t, err)
		assert.Equal(t, "750101", code)
		assert.Equal(t, 1, cam.opened)
		assert.Equal(t, 1, cam.closed)
	})

	t.Run("Cancellation releases", func(t *testing.T) {
		cam := &fakeCamera{frames: []Frame{Frame("noise")}, hold: true}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := ScanOnce(ctx, cam, DigitsDecoder{})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 1, cam.closed)
	})

	t.Run("Source end releases", func(t *testing.T) {
		cam := &fakeCamera{frames: []Frame{Frame("noise")}}
		_, err := ScanOnce(context.Background(), cam, DigitsDecoder{})
		assert.ErrorIs(t, err, ErrSourceClosed)
		assert.Equal(t, 1, cam.closed)
	})

	t.Run("Source failure releases", func(t *testing.T) {
		devErr := errors.New("device unplugged")
		cam := &fakeCamera{err: devErr}
		_, err := ScanOnce(context.Background(), cam, DigitsDecoder{})
		assert.ErrorIs(t, err, devErr)
		assert.Equal(t, 1, cam.closed)
	})

	t.Run("Decoder failure releases", func(t *testing.T) {
		decErr := errors.New("decoder crashed")
		cam := &fakeCamera{frames: []Frame{Frame("x")}, hold: true}
		_, err := ScanOnce(context.Background(), cam, decoderFunc(func(Frame) (string, error) { return "", decErr }))
		assert.ErrorIs(t, err, decErr)
		assert.Equal(t, 1, cam.closed)
	})

	t.Run("Open failure acquires nothing", func(t *testing.T) {
		cam := &fakeCamera{openErr: errors.New("permission denied")}
		_, err := ScanOnce(context.Background(), cam, DigitsDecoder{})
		assert.Error(t, err)
		assert.Equal(t, 0, cam.closed)
	})
}

type decoderFunc func(Frame) (string, error)

func (f decoderFunc) Decode(fr Frame) (string, error) { return f(fr) }

func TestDigitsDecoder(t *testing.T) {
	code, err := DigitsDecoder{}.Decode(Frame("  1234567 \r"))
	require.NoError(t, err)
	assert.Equal(t, "1234567", code)

	_, err = DigitsDecoder{}.Decode(Frame("12345"))
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestLineSource_SessionsShareReader(t *testing.T) {
	src := NewLineSource(strings.NewReader("hola\n750101\n\n7802000000017\n"))

	first, err := ScanOnce(context.Background(), src, DigitsDecoder{})
	require.NoError(t, err)
	assert.Equal(t, "750101", first)

	second, err := ScanOnce(context.Background(), src, DigitsDecoder{})
	require.NoError(t, err)
	assert.Equal(t, "7802000000017", second)

	_, err = ScanOnce(context.Background(), src, DigitsDecoder{})
	assert.ErrorIs(t, err, ErrSourceClosed)
}

func TestLineSource_Busy(t *testing.T) {
	src := NewLineSource(strings.NewReader(""))
	require.NoError(t, src.Open(context.Background()))
	assert.ErrorIs(t, src.Open(context.Background()), ErrSourceBusy)
	require.NoError(t, src.Close())
	assert.NoError(t, src.Open(context.Background()))
}
