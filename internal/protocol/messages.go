package protocol

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrInvalidElemType  = errors.New("protocol: invalid element type")
	ErrBufferTooShort   = errors.New("protocol: buffer shorter than its declared geometry")
	ErrNilBuffer        = errors.New("protocol: nil buffer data")
	ErrMissingVariable  = errors.New("protocol: missing variable name")
	ErrNegativeGeometry = errors.New("protocol: negative buffer geometry")
)

// Message is one decoded frame awaiting consumption. Same is the per-kind
// equality predicate driving duplicate suppression in the receive queues.
type Message interface {
	Kind() MessageKind
	Same(other Message) bool
}

// ObservedSymbolsRequest asks the peer which buffers are currently shown.
// It has no body.
type ObservedSymbolsRequest struct{}

func (ObservedSymbolsRequest) Kind() MessageKind { return GetObservedSymbols }

func (ObservedSymbolsRequest) Same(other Message) bool {
	_, ok := other.(ObservedSymbolsRequest)
	return ok
}

// ObservedSymbolsResponse answers ObservedSymbolsRequest with the symbol
// names currently on display, in display order.
type ObservedSymbolsResponse struct {
	Symbols []string
}

func (ObservedSymbolsResponse) Kind() MessageKind { return GetObservedSymbolsResponse }

func (m ObservedSymbolsResponse) Same(other Message) bool {
	o, ok := other.(ObservedSymbolsResponse)
	return ok && slices.Equal(m.Symbols, o.Symbols)
}

// AvailableSymbols announces the current set of inspectable symbols.
type AvailableSymbols struct {
	Symbols []string
}

func (AvailableSymbols) Kind() MessageKind { return SetAvailableSymbols }

func (m AvailableSymbols) Same(other Message) bool {
	o, ok := other.(AvailableSymbols)
	return ok && slices.Equal(m.Symbols, o.Symbols)
}

// PlotRequest asks the debugger side for the contents of one symbol.
type PlotRequest struct {
	VariableName string
}

func (PlotRequest) Kind() MessageKind { return PlotBufferRequest }

func (m PlotRequest) Same(other Message) bool {
	o, ok := other.(PlotRequest)
	return ok && m.VariableName == o.VariableName
}

// BufferContents delivers one buffer payload to the viewer.
type BufferContents struct {
	Buffer BufferPayload
}

func (BufferContents) Kind() MessageKind { return PlotBufferContents }

func (m BufferContents) Same(other Message) bool {
	o, ok := other.(BufferContents)
	return ok && m.Buffer.VariableName == o.Buffer.VariableName
}

// BufferPayload describes one image/matrix buffer. On the sending side Data
// is borrowed only for the duration of the send; on the receiving side it is
// freshly owned.
type BufferPayload struct {
	VariableName string
	DisplayName  string
	PixelLayout  string
	Transpose    bool
	Width        int32
	Height       int32
	Channels     int32
	Stride       int32
	Elem         ElemType
	Data         []byte
}

// ExpectedSize returns the byte length the geometry implies:
// stride * height * channels * element size.
func (p BufferPayload) ExpectedSize() int {
	return int(p.Stride) * int(p.Height) * int(p.Channels) * p.Elem.Size()
}

// Validate rejects a payload before any byte of it reaches the wire.
func (p BufferPayload) Validate() error {
	if strings.TrimSpace(p.VariableName) == "" {
		return ErrMissingVariable
	}
	if !p.Elem.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidElemType, uint32(p.Elem))
	}
	if p.Width < 0 || p.Height < 0 || p.Channels < 0 || p.Stride < 0 {
		return ErrNegativeGeometry
	}
	if p.Data == nil {
		return ErrNilBuffer
	}
	if len(p.Data) < p.ExpectedSize() {
		return fmt.Errorf("%w: variable %s expected %d bytes, got %d",
			ErrBufferTooShort, p.VariableName, p.ExpectedSize(), len(p.Data))
	}
	return nil
}

// VisualizedDims returns the width/height as shown to the user, swapped when
// the transpose flag is set.
func (p BufferPayload) VisualizedDims() (width, height int32) {
	if p.Transpose {
		return p.Height, p.Width
	}
	return p.Width, p.Height
}
