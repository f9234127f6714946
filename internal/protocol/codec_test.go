package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"net"
	"slices"
	"testing"
	"time"

	"github.com/vizdbg/bridge/internal/testutil/testlog"
	"github.com/vizdbg/bridge/internal/wire"
)

func pipePair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

// readKind consumes the kind discriminant the way the read pump does.
func readKind(t *testing.T, dec *wire.Decoder) MessageKind {
	t.Helper()
	var raw uint32
	if err := dec.ReadUint32(&raw); err != nil {
		t.Fatalf("read kind: %v", err)
	}
	return MessageKind(raw)
}

func TestObservedSymbolsRequestRoundTrip(t *testing.T) {
	testlog.Start(t)
	client, server := pipePair(t)

	go func() {
		c := wire.NewComposer(client)
		EncodeObservedSymbolsRequest(c)
		c.Send()
	}()

	dec := wire.NewDecoder(server)
	if kind := readKind(t, dec); kind != GetObservedSymbols {
		t.Fatalf("unexpected kind: %s", kind)
	}
	msg, err := DecodeBody(GetObservedSymbols, dec)
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if _, ok := msg.(ObservedSymbolsRequest); !ok {
		t.Fatalf("unexpected message: %#v", msg)
	}
}

func TestSymbolListRoundTrips(t *testing.T) {
	testlog.Start(t)
	lists := [][]string{
		nil,
		{"a"},
		{"a", "b.c", "d->e"},
		{"", "embedded\x00nul"},
	}

	for _, symbols := range lists {
		client, server := pipePair(t)

		go func() {
			c := wire.NewComposer(client)
			EncodeAvailableSymbols(c, AvailableSymbols{Symbols: symbols})
			EncodeObservedSymbolsResponse(c, ObservedSymbolsResponse{Symbols: symbols})
			c.Send()
		}()

		dec := wire.NewDecoder(server)
		if kind := readKind(t, dec); kind != SetAvailableSymbols {
			t.Fatalf("unexpected kind: %s", kind)
		}
		avail, err := DecodeAvailableSymbols(dec)
		if err != nil {
			t.Fatalf("decode available: %v", err)
		}
		if !slices.Equal(avail.Symbols, append([]string{}, symbols...)) {
			t.Fatalf("available symbols: got %q want %q", avail.Symbols, symbols)
		}

		if kind := readKind(t, dec); kind != GetObservedSymbolsResponse {
			t.Fatalf("unexpected kind: %s", kind)
		}
		observed, err := DecodeObservedSymbolsResponse(dec)
		if err != nil {
			t.Fatalf("decode observed: %v", err)
		}
		if !slices.Equal(observed.Symbols, append([]string{}, symbols...)) {
			t.Fatalf("observed symbols: got %q want %q", observed.Symbols, symbols)
		}

		client.Close()
		server.Close()
	}
}

func TestPlotRequestRoundTrip(t *testing.T) {
	testlog.Start(t)
	client, server := pipePair(t)

	go func() {
		c := wire.NewComposer(client)
		EncodePlotRequest(c, PlotRequest{VariableName: "image->data"})
		c.Send()
	}()

	dec := wire.NewDecoder(server)
	if kind := readKind(t, dec); kind != PlotBufferRequest {
		t.Fatalf("unexpected kind: %s", kind)
	}
	msg, err := DecodePlotRequest(dec)
	if err != nil {
		t.Fatalf("decode plot request: %v", err)
	}
	if msg.VariableName != "image->data" {
		t.Fatalf("unexpected variable: %q", msg.VariableName)
	}
}

func TestBufferContentsRoundTrip(t *testing.T) {
	testlog.Start(t)
	payload := BufferPayload{
		VariableName: "img",
		DisplayName:  "img (2x2)",
		PixelLayout:  "rgba",
		Transpose:    true,
		Width:        2,
		Height:       2,
		Channels:     1,
		Stride:       2,
		Elem:         ElemUnsignedByte,
		Data:         []byte{10, 20, 30, 40},
	}
	client, server := pipePair(t)

	go func() {
		c := wire.NewComposer(client)
		if err := EncodeBufferContents(c, BufferContents{Buffer: payload}); err != nil {
			return
		}
		c.Send()
	}()

	dec := wire.NewDecoder(server)
	if kind := readKind(t, dec); kind != PlotBufferContents {
		t.Fatalf("unexpected kind: %s", kind)
	}
	got, err := DecodeBufferContents(dec)
	if err != nil {
		t.Fatalf("decode buffer contents: %v", err)
	}
	b := got.Buffer
	if b.VariableName != "img" || b.DisplayName != "img (2x2)" || b.PixelLayout != "rgba" {
		t.Fatalf("unexpected metadata: %+v", b)
	}
	if !b.Transpose || b.Width != 2 || b.Height != 2 || b.Channels != 1 || b.Stride != 2 {
		t.Fatalf("unexpected geometry: %+v", b)
	}
	if b.Elem != ElemUnsignedByte || !bytes.Equal(b.Data, payload.Data) {
		t.Fatalf("unexpected data: %+v", b)
	}
	width, height := b.VisualizedDims()
	if width != 2 || height != 2 {
		t.Fatalf("visualized dims: %dx%d", width, height)
	}
	b.Transpose = false
	if w, h := b.VisualizedDims(); w != 2 || h != 2 {
		t.Fatalf("untransposed dims: %dx%d", w, h)
	}
}

func TestBufferContentsTransposeSwapsDims(t *testing.T) {
	testlog.Start(t)
	p := BufferPayload{Width: 4, Height: 2, Transpose: true}
	if w, h := p.VisualizedDims(); w != 2 || h != 4 {
		t.Fatalf("transpose dims: %dx%d", w, h)
	}
	p.Transpose = false
	if w, h := p.VisualizedDims(); w != 4 || h != 2 {
		t.Fatalf("plain dims: %dx%d", w, h)
	}
}

// sinkConn records everything written to it; reads are never expected.
type sinkConn struct {
	buf bytes.Buffer
}

func (c *sinkConn) Read(p []byte) (int, error)       { return 0, errors.New("sink: no reads") }
func (c *sinkConn) Write(p []byte) (int, error)      { return c.buf.Write(p) }
func (c *sinkConn) SetReadDeadline(time.Time) error  { return nil }
func (c *sinkConn) SetWriteDeadline(time.Time) error { return nil }

func TestEncodeBufferContentsRejectsShortBuffer(t *testing.T) {
	testlog.Start(t)
	payload := BufferPayload{
		VariableName: "short",
		DisplayName:  "short",
		PixelLayout:  "rgba",
		Width:        2,
		Height:       2,
		Channels:     1,
		Stride:       2,
		Elem:         ElemUnsignedByte,
		Data:         []byte{1, 2, 3}, // needs 4
	}
	sink := &sinkConn{}
	c := wire.NewComposer(sink)
	err := EncodeBufferContents(c, BufferContents{Buffer: payload})
	if !errors.Is(err, ErrBufferTooShort) {
		t.Fatalf("expected ErrBufferTooShort, got %v", err)
	}
	// A rejected payload leaves the composer untouched: flushing it must
	// put zero bytes on the wire.
	if err := c.Send(); err != nil {
		t.Fatalf("send: %v", err)
	}
	if sink.buf.Len() != 0 {
		t.Fatalf("expected zero bytes on the wire, got %d", sink.buf.Len())
	}
}

func TestEncodeBufferContentsValidation(t *testing.T) {
	testlog.Start(t)
	valid := BufferPayload{
		VariableName: "v",
		Width:        1, Height: 1, Channels: 1, Stride: 1,
		Elem: ElemUnsignedByte,
		Data: []byte{7},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	missingName := valid
	missingName.VariableName = "  "
	if err := missingName.Validate(); !errors.Is(err, ErrMissingVariable) {
		t.Fatalf("expected ErrMissingVariable, got %v", err)
	}

	badElem := valid
	badElem.Elem = ElemType(1)
	if err := badElem.Validate(); !errors.Is(err, ErrInvalidElemType) {
		t.Fatalf("expected ErrInvalidElemType, got %v", err)
	}

	nilData := valid
	nilData.Data = nil
	if err := nilData.Validate(); !errors.Is(err, ErrNilBuffer) {
		t.Fatalf("expected ErrNilBuffer, got %v", err)
	}

	negative := valid
	negative.Height = -1
	if err := negative.Validate(); !errors.Is(err, ErrNegativeGeometry) {
		t.Fatalf("expected ErrNegativeGeometry, got %v", err)
	}
}

func TestNarrowFloat64(t *testing.T) {
	testlog.Start(t)
	values := []float64{0, 1.5, -2.25, math.Pi}
	data := make([]byte, 0, len(values)*8)
	for _, v := range values {
		data = binary.NativeEndian.AppendUint64(data, math.Float64bits(v))
	}

	p := BufferPayload{Elem: ElemFloat64, Data: data}
	narrowed := p.Narrowed()
	if narrowed.Elem != ElemFloat32 {
		t.Fatalf("unexpected elem type: %s", narrowed.Elem)
	}
	if len(narrowed.Data) != len(values)*4 {
		t.Fatalf("unexpected narrowed length: %d", len(narrowed.Data))
	}
	for i, want := range values {
		bits := binary.NativeEndian.Uint32(narrowed.Data[i*4:])
		if got := math.Float32frombits(bits); got != float32(want) {
			t.Fatalf("value %d: got %v want %v", i, got, float32(want))
		}
	}

	untouched := BufferPayload{Elem: ElemUnsignedByte, Data: []byte{1, 2}}
	if out := untouched.Narrowed(); out.Elem != ElemUnsignedByte || !bytes.Equal(out.Data, untouched.Data) {
		t.Fatalf("non-float64 payload should pass through: %+v", out)
	}
}

func TestSamePredicates(t *testing.T) {
	testlog.Start(t)
	if !(PlotRequest{VariableName: "a"}).Same(PlotRequest{VariableName: "a"}) {
		t.Fatalf("equal plot requests not Same")
	}
	if (PlotRequest{VariableName: "a"}).Same(PlotRequest{VariableName: "b"}) {
		t.Fatalf("distinct plot requests Same")
	}
	if (PlotRequest{VariableName: "a"}).Same(ObservedSymbolsResponse{Symbols: []string{"a"}}) {
		t.Fatalf("cross-kind Same")
	}
	if !(ObservedSymbolsResponse{Symbols: []string{"a", "b"}}).Same(ObservedSymbolsResponse{Symbols: []string{"a", "b"}}) {
		t.Fatalf("equal responses not Same")
	}
	if (ObservedSymbolsResponse{Symbols: []string{"a"}}).Same(ObservedSymbolsResponse{Symbols: []string{"a", "b"}}) {
		t.Fatalf("distinct responses Same")
	}
}

func TestElemTypeSizes(t *testing.T) {
	testlog.Start(t)
	cases := map[ElemType]int{
		ElemUnsignedByte:  1,
		ElemUnsignedShort: 2,
		ElemShort:         2,
		ElemInt32:         4,
		ElemFloat32:       4,
		ElemFloat64:       8,
	}
	for elem, want := range cases {
		if got := elem.Size(); got != want {
			t.Fatalf("%s size: got %d want %d", elem, got, want)
		}
	}
	if ElemType(1).Valid() {
		t.Fatalf("gap value 1 should be invalid")
	}
	if ElemType(99).Size() != 0 {
		t.Fatalf("unknown elem type should size to 0")
	}
}

func TestDecodeBodyUnknownKind(t *testing.T) {
	testlog.Start(t)
	_, server := pipePair(t)
	if _, err := DecodeBody(MessageKind(42), wire.NewDecoder(server)); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
