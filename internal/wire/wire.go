package wire

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"time"
)

// Both peers are the same build on the same machine, so all multi-byte
// values travel in host byte order. Lengths occupy a fixed 8 bytes.
const SizeLen = 8

const DefaultWaitTimeout = 3 * time.Second

var (
	ErrNilConn = errors.New("wire: nil connection")
)

// Conn is the subset of net.Conn the wire layer drives. Deadlines bound
// each wait-for-readiness step of the retry loops.
type Conn interface {
	io.Reader
	io.Writer
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

var _ Conn = (net.Conn)(nil)

func appendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}

func appendUint32(dst []byte, v uint32) []byte {
	return binary.NativeEndian.AppendUint32(dst, v)
}

func appendInt32(dst []byte, v int32) []byte {
	return binary.NativeEndian.AppendUint32(dst, uint32(v))
}

func appendSize(dst []byte, v uint64) []byte {
	return binary.NativeEndian.AppendUint64(dst, v)
}

// isWaitTimeout reports whether err is only a deadline expiry, meaning the
// retry loop should wait for readiness again rather than fail.
func isWaitTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
