package headers

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"sort"
)

// net/http answers requests it can't parse by writing this block straight
// to the connection, bypassing every handler.
var (
	rejectStatus  = []byte("HTTP/1.1 ")
	rejectHeaders = []byte("\r\nConnection: close\r\n\r\n")
	endOfHeaders  = []byte("\r\n\r\n")
)

// Listener wraps ln so that the error replies net/http writes for requests
// that never reach a handler also carry fixed. Responses produced by
// handlers pass through untouched.
func Listener(ln net.Listener, fixed http.Header) net.Listener {
	var block bytes.Buffer
	_ = fixed.Write(&block)

	names := make([]string, 0, len(fixed))
	for name := range fixed {
		names = append(names, name)
	}
	sort.Strings(names)

	var marker []byte
	if len(names) > 0 {
		marker = []byte("\r\n" + names[0] + ":")
	}

	return &listener{Listener: ln, block: block.Bytes(), marker: marker}
}

type listener struct {
	net.Listener
	block  []byte
	marker []byte
}

func (l *listener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return &conn{Conn: c, block: l.block, marker: l.marker}, nil
}

type conn struct {
	net.Conn
	block  []byte
	marker []byte
}

func (c *conn) Write(b []byte) (int, error) {
	if len(c.block) == 0 || !c.isRejection(b) {
		return c.Conn.Write(b)
	}

	line := bytes.IndexByte(b, '\n') + 1
	out := make([]byte, 0, len(b)+len(c.block))
	out = append(out, b[:line]...)
	out = append(out, c.block...)
	out = append(out, b[line:]...)
	if _, err := c.Conn.Write(out); err != nil {
		return 0, err
	}
	return len(b), nil
}

// ReadFrom only ever carries bodies, so it goes straight to the socket.
func (c *conn) ReadFrom(r io.Reader) (int64, error) {
	return io.Copy(c.Conn, r)
}

func (c *conn) CloseWrite() error {
	if cw, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nil
}

// isRejection reports whether b is a complete header block ending in
// Connection: close that lacks the fixed headers.
func (c *conn) isRejection(b []byte) bool {
	if !bytes.HasPrefix(b, rejectStatus) {
		return false
	}
	end := bytes.Index(b, endOfHeaders)
	if end < 0 {
		return false
	}
	head := b[:end+len(endOfHeaders)]
	return bytes.HasSuffix(head, rejectHeaders) && !bytes.Contains(head, c.marker)
}
