package protocol

// MessageKind discriminates a frame's body schema. It travels as the first
// uint32 of every frame. Values are fixed: both ends of a connection are the
// same build, there is no version negotiation.
type MessageKind uint32

const (
	GetObservedSymbols MessageKind = iota
	GetObservedSymbolsResponse
	SetAvailableSymbols
	PlotBufferContents
	PlotBufferRequest
)

func (k MessageKind) String() string {
	switch k {
	case GetObservedSymbols:
		return "get_observed_symbols"
	case GetObservedSymbolsResponse:
		return "get_observed_symbols_response"
	case SetAvailableSymbols:
		return "set_available_symbols"
	case PlotBufferContents:
		return "plot_buffer_contents"
	case PlotBufferRequest:
		return "plot_buffer_request"
	default:
		return "unknown"
	}
}

func (k MessageKind) Valid() bool {
	return k <= PlotBufferRequest
}

// ElemType identifies the scalar type of one buffer element. The numeric
// values match the debugger scripts on the other side of the link, including
// the historical gap at 1.
type ElemType uint32

const (
	ElemUnsignedByte  ElemType = 0
	ElemUnsignedShort ElemType = 2
	ElemShort         ElemType = 3
	ElemInt32         ElemType = 4
	ElemFloat32       ElemType = 5
	ElemFloat64       ElemType = 6
)

// Size returns the byte width of one scalar of this type.
func (t ElemType) Size() int {
	switch t {
	case ElemUnsignedByte:
		return 1
	case ElemUnsignedShort, ElemShort:
		return 2
	case ElemInt32, ElemFloat32:
		return 4
	case ElemFloat64:
		return 8
	default:
		return 0
	}
}

func (t ElemType) Valid() bool {
	return t.Size() != 0
}

func (t ElemType) String() string {
	switch t {
	case ElemUnsignedByte:
		return "uint8"
	case ElemUnsignedShort:
		return "uint16"
	case ElemShort:
		return "int16"
	case ElemInt32:
		return "int32"
	case ElemFloat32:
		return "float32"
	case ElemFloat64:
		return "float64"
	default:
		return "invalid"
	}
}
