// Package scanner runs one-shot barcode capture sessions against a frame
// source such as a camera or a keyboard-wedge reader.
package scanner

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	catalogDomain "github.com/ridloal/punto-venta/internal/catalog/domain"
	"github.com/ridloal/punto-venta/internal/platform/logger"
)

var (
	// ErrNoMatch is returned by a Decoder for a frame without a readable code.
	ErrNoMatch = errors.New("no barcode in frame")
	// ErrSourceClosed means the source ran out of frames before a match.
	ErrSourceClosed = errors.New("scan source closed")
	ErrSourceBusy   = errors.New("scan source already open")
)

// Frame is one unit of input from a source.
type Frame []byte

// Source is a capture device. Open acquires it, Frames delivers input until
// the device stops or Close is called.
type Source interface {
	Open(ctx context.Context) error
	Frames() <-chan Frame
	// Err reports why Frames was closed, if it was not a normal end.
	Err() error
	Close() error
}

type Decoder interface {
	Decode(f Frame) (string, error)
}

// ScanOnce opens src, decodes frames until the first match and returns it.
// The source is closed on every return path, including cancellation.
func ScanOnce(ctx context.Context, src Source, dec Decoder) (code string, err error) {
	if err := src.Open(ctx); err != nil {
		return "", err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logger.Error("scanner: failed to release source", cerr)
			if err == nil {
				err = cerr
			}
		}
	}()

	frames := src.Frames()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case f, ok := <-frames:
			if !ok {
				if serr := src.Err(); serr != nil {
					return "", serr
				}
				return "", ErrSourceClosed
			}
			code, derr := dec.Decode(f)
			if errors.Is(derr, ErrNoMatch) {
				continue
			}
			if derr != nil {
				return "", derr
			}
			return code, nil
		}
	}
}

// DigitsDecoder accepts frames that, trimmed, look like a barcode.
type DigitsDecoder struct{}

func (DigitsDecoder) Decode(f Frame) (string, error) {
	code := strings.TrimSpace(string(f))
	if !catalogDomain.LooksLikeBarcode(code) {
		return "", ErrNoMatch
	}
	return code, nil
}

// LineSource turns each line of r into a frame. Keyboard-wedge scanners type
// the code followed by Enter, so a line is one read. A single goroutine
// reads r for the life of the source, so lines typed between sessions wait
// for the next Open instead of being lost.
type LineSource struct {
	r io.Reader

	start sync.Once
	lines chan Frame
	done  chan struct{}
	err   error

	mu   sync.Mutex
	open bool
}

func NewLineSource(r io.Reader) *LineSource {
	return &LineSource{r: r, lines: make(chan Frame), done: make(chan struct{})}
}

func (s *LineSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return ErrSourceBusy
	}
	s.open = true
	s.start.Do(func() { go s.read() })
	return nil
}

func (s *LineSource) read() {
	defer close(s.lines)
	defer close(s.done)
	sc := bufio.NewScanner(s.r)
	for sc.Scan() {
		s.lines <- append(Frame(nil), sc.Bytes()...)
	}
	s.err = sc.Err()
}

func (s *LineSource) Frames() <-chan Frame { return s.lines }

// Err is valid once Frames has been closed.
func (s *LineSource) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *LineSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}
