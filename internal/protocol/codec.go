package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/vizdbg/bridge/internal/wire"
)

// One encode and one decode function per message kind. These are the only
// schema authority: Composer/Decoder are generic over field shape and know
// nothing about kinds.

func EncodeObservedSymbolsRequest(c *wire.Composer) {
	c.PushUint32(uint32(GetObservedSymbols))
}

func EncodeObservedSymbolsResponse(c *wire.Composer, m ObservedSymbolsResponse) {
	c.PushUint32(uint32(GetObservedSymbolsResponse)).
		PushStringSlice(m.Symbols)
}

func DecodeObservedSymbolsResponse(d *wire.Decoder) (ObservedSymbolsResponse, error) {
	var m ObservedSymbolsResponse
	if err := d.ReadStringSlice(&m.Symbols); err != nil {
		return ObservedSymbolsResponse{}, err
	}
	return m, nil
}

func EncodeAvailableSymbols(c *wire.Composer, m AvailableSymbols) {
	c.PushUint32(uint32(SetAvailableSymbols)).
		PushStringSlice(m.Symbols)
}

func DecodeAvailableSymbols(d *wire.Decoder) (AvailableSymbols, error) {
	var m AvailableSymbols
	if err := d.ReadStringSlice(&m.Symbols); err != nil {
		return AvailableSymbols{}, err
	}
	return m, nil
}

func EncodePlotRequest(c *wire.Composer, m PlotRequest) {
	c.PushUint32(uint32(PlotBufferRequest)).
		PushString(m.VariableName)
}

func DecodePlotRequest(d *wire.Decoder) (PlotRequest, error) {
	var m PlotRequest
	if err := d.ReadString(&m.VariableName); err != nil {
		return PlotRequest{}, err
	}
	return m, nil
}

// EncodeBufferContents validates the payload before pushing anything: a
// rejected payload leaves the composer untouched and nothing on the wire.
func EncodeBufferContents(c *wire.Composer, m BufferContents) error {
	p := m.Buffer
	if err := p.Validate(); err != nil {
		return err
	}
	c.PushUint32(uint32(PlotBufferContents)).
		PushString(p.VariableName).
		PushString(p.DisplayName).
		PushString(p.PixelLayout).
		PushBool(p.Transpose).
		PushInt32(p.Width).
		PushInt32(p.Height).
		PushInt32(p.Channels).
		PushInt32(p.Stride).
		PushUint32(uint32(p.Elem)).
		PushBytes(p.Data)
	return nil
}

func DecodeBufferContents(d *wire.Decoder) (BufferContents, error) {
	var p BufferPayload
	var elem uint32
	if err := d.ReadString(&p.VariableName); err != nil {
		return BufferContents{}, err
	}
	if err := d.ReadString(&p.DisplayName); err != nil {
		return BufferContents{}, err
	}
	if err := d.ReadString(&p.PixelLayout); err != nil {
		return BufferContents{}, err
	}
	if err := d.ReadBool(&p.Transpose); err != nil {
		return BufferContents{}, err
	}
	if err := d.ReadInt32(&p.Width); err != nil {
		return BufferContents{}, err
	}
	if err := d.ReadInt32(&p.Height); err != nil {
		return BufferContents{}, err
	}
	if err := d.ReadInt32(&p.Channels); err != nil {
		return BufferContents{}, err
	}
	if err := d.ReadInt32(&p.Stride); err != nil {
		return BufferContents{}, err
	}
	if err := d.ReadUint32(&elem); err != nil {
		return BufferContents{}, err
	}
	p.Elem = ElemType(elem)
	if err := d.ReadBytes(&p.Data); err != nil {
		return BufferContents{}, err
	}
	return BufferContents{Buffer: p}, nil
}

// DecodeBody decodes the kind-specific body that follows an already consumed
// kind discriminant. Once the discriminant is off the wire the body must be
// read to completion, so every error here is a hard protocol failure.
func DecodeBody(kind MessageKind, d *wire.Decoder) (Message, error) {
	switch kind {
	case GetObservedSymbols:
		return ObservedSymbolsRequest{}, nil
	case GetObservedSymbolsResponse:
		m, err := DecodeObservedSymbolsResponse(d)
		if err != nil {
			return nil, err
		}
		return m, nil
	case SetAvailableSymbols:
		m, err := DecodeAvailableSymbols(d)
		if err != nil {
			return nil, err
		}
		return m, nil
	case PlotBufferRequest:
		m, err := DecodePlotRequest(d)
		if err != nil {
			return nil, err
		}
		return m, nil
	case PlotBufferContents:
		m, err := DecodeBufferContents(d)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("protocol: unknown message kind %d", uint32(kind))
	}
}

// NarrowFloat64 converts a float64 buffer to float32, halving it in place
// conceptually: the result is a new slice half the input length. Display
// precision only; the receiving side applies this before storing a payload.
func NarrowFloat64(data []byte) []byte {
	n := len(data) / 8
	out := make([]byte, 0, n*4)
	for i := 0; i < n; i++ {
		v := math.Float64frombits(binary.NativeEndian.Uint64(data[i*8:]))
		out = binary.NativeEndian.AppendUint32(out, math.Float32bits(float32(v)))
	}
	return out
}

// Narrowed returns the payload as stored by the viewer: Float64 data is
// narrowed to Float32, everything else passes through unchanged.
func (p BufferPayload) Narrowed() BufferPayload {
	if p.Elem != ElemFloat64 {
		return p
	}
	out := p
	out.Elem = ElemFloat32
	out.Data = NarrowFloat64(p.Data)
	return out
}
