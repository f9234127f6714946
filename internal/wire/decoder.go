package wire

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Decoder reads the fields of inbound messages, one at a time, in the order
// the message kind's schema prescribes. There is no whole-frame boundary on
// the wire: reading the wrong field sequence for a kind desyncs the stream
// permanently.
type Decoder struct {
	conn        Conn
	waitTimeout time.Duration
	scratch     [SizeLen]byte
}

func NewDecoder(conn Conn) *Decoder {
	return &Decoder{
		conn:        conn,
		waitTimeout: DefaultWaitTimeout,
	}
}

func (d *Decoder) ReadBool(v *bool) error {
	if err := d.readFull(d.scratch[:1]); err != nil {
		return err
	}
	*v = d.scratch[0] != 0
	return nil
}

func (d *Decoder) ReadInt32(v *int32) error {
	if err := d.readFull(d.scratch[:4]); err != nil {
		return err
	}
	*v = int32(binary.NativeEndian.Uint32(d.scratch[:4]))
	return nil
}

func (d *Decoder) ReadUint32(v *uint32) error {
	if err := d.readFull(d.scratch[:4]); err != nil {
		return err
	}
	*v = binary.NativeEndian.Uint32(d.scratch[:4])
	return nil
}

// ReadSize reads a length field (the wire's size_t role, fixed 8 bytes).
func (d *Decoder) ReadSize(v *uint64) error {
	if err := d.readFull(d.scratch[:SizeLen]); err != nil {
		return err
	}
	*v = binary.NativeEndian.Uint64(d.scratch[:SizeLen])
	return nil
}

func (d *Decoder) ReadString(v *string) error {
	var size uint64
	if err := d.ReadSize(&size); err != nil {
		return err
	}
	buf := make([]byte, size)
	if err := d.readFull(buf); err != nil {
		return err
	}
	*v = string(buf)
	return nil
}

// ReadStringSlice reads a count then that many strings, appending to an
// initially empty slice. Transmission order is preserved.
func (d *Decoder) ReadStringSlice(v *[]string) error {
	var count uint64
	if err := d.ReadSize(&count); err != nil {
		return err
	}
	out := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		var s string
		if err := d.ReadString(&s); err != nil {
			return err
		}
		out = append(out, s)
	}
	*v = out
	return nil
}

// ReadBytes reads a length then that many raw bytes into a freshly owned
// slice.
func (d *Decoder) ReadBytes(v *[]byte) error {
	var size uint64
	if err := d.ReadSize(&size); err != nil {
		return err
	}
	buf := make([]byte, size)
	if err := d.readFull(buf); err != nil {
		return err
	}
	*v = buf
	return nil
}

// PollUint32 waits up to wait for the first byte of a uint32 field. If
// nothing arrives within the window it reports false with no bytes consumed.
// Once any byte has arrived the remainder is committed and read to
// completion, however long that takes.
func (d *Decoder) PollUint32(v *uint32, wait time.Duration) (bool, error) {
	if d.conn == nil {
		return false, ErrNilConn
	}
	if err := d.conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return false, err
	}
	buf := d.scratch[:4]
	n, err := d.conn.Read(buf)
	if err != nil {
		if isWaitTimeout(err) && n == 0 {
			return false, nil
		}
		if !isWaitTimeout(err) {
			return false, fmt.Errorf("wire: poll: %w", err)
		}
	}
	if n == 0 {
		return false, nil
	}
	if n < 4 {
		if err := d.readFull(buf[n:]); err != nil {
			return false, err
		}
	}
	d.conn.SetReadDeadline(time.Time{})
	*v = binary.NativeEndian.Uint32(buf)
	return true, nil
}

// readFull delivers exactly len(dst) bytes into dst, waiting for readiness
// and resuming from the unread remainder on every short read.
func (d *Decoder) readFull(dst []byte) error {
	if d.conn == nil {
		return ErrNilConn
	}
	offset := 0
	for offset < len(dst) {
		if err := d.conn.SetReadDeadline(time.Now().Add(d.waitTimeout)); err != nil {
			return err
		}
		n, err := d.conn.Read(dst[offset:])
		offset += n
		if err != nil && !isWaitTimeout(err) {
			return fmt.Errorf("wire: read: %w", err)
		}
	}
	d.conn.SetReadDeadline(time.Time{})
	return nil
}
