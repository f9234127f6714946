package wire

import (
	"fmt"
	"time"
)

// Composer accumulates the fields of one outbound message as byte blocks and
// flushes them with Send. The first field pushed must be the message kind;
// that ordering is the caller's contract, not enforced here.
type Composer struct {
	conn        Conn
	blocks      [][]byte
	waitTimeout time.Duration
}

func NewComposer(conn Conn) *Composer {
	return &Composer{
		conn:        conn,
		waitTimeout: DefaultWaitTimeout,
	}
}

func (c *Composer) PushBool(v bool) *Composer {
	c.blocks = append(c.blocks, appendBool(nil, v))
	return c
}

func (c *Composer) PushInt32(v int32) *Composer {
	c.blocks = append(c.blocks, appendInt32(nil, v))
	return c
}

func (c *Composer) PushUint32(v uint32) *Composer {
	c.blocks = append(c.blocks, appendUint32(nil, v))
	return c
}

// PushSize pushes a length field (the wire's size_t role, fixed 8 bytes).
func (c *Composer) PushSize(v uint64) *Composer {
	c.blocks = append(c.blocks, appendSize(nil, v))
	return c
}

// PushString pushes the string length followed by its raw bytes, no
// terminator.
func (c *Composer) PushString(v string) *Composer {
	c.PushSize(uint64(len(v)))
	c.blocks = append(c.blocks, []byte(v))
	return c
}

// PushStringSlice pushes the element count followed by each string in order.
func (c *Composer) PushStringSlice(values []string) *Composer {
	c.PushSize(uint64(len(values)))
	for _, v := range values {
		c.PushString(v)
	}
	return c
}

// PushBytes pushes the buffer length followed by the raw bytes. The slice is
// borrowed, not copied: it must stay valid until Send returns.
func (c *Composer) PushBytes(buf []byte) *Composer {
	c.PushSize(uint64(len(buf)))
	c.blocks = append(c.blocks, buf)
	return c
}

// Send writes every accumulated block fully, in order, retrying short writes
// after each writability wait. It returns only once all bytes are handed to
// the transport. The pushed blocks are retained; call Clear before reusing
// the composer for another message.
func (c *Composer) Send() error {
	if c.conn == nil {
		return ErrNilConn
	}
	for _, block := range c.blocks {
		if err := c.writeFull(block); err != nil {
			return fmt.Errorf("wire: send: %w", err)
		}
	}
	return nil
}

func (c *Composer) Clear() {
	c.blocks = c.blocks[:0]
}

func (c *Composer) writeFull(buf []byte) error {
	for len(buf) > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.waitTimeout)); err != nil {
			return err
		}
		n, err := c.conn.Write(buf)
		buf = buf[n:]
		if err != nil && !isWaitTimeout(err) {
			return err
		}
	}
	c.conn.SetWriteDeadline(time.Time{})
	return nil
}
