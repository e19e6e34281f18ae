package protocol

import (
	"bufio"
	"net"
)

// MaxLineBytes bounds a single wire line. Anything longer is treated as
// a protocol error by the scanner.
const MaxLineBytes = 64 * 1024

// LineConn frames a net.Conn into newline-delimited messages. It is not
// safe for concurrent writers; a peer session serializes its writes
// through its event loop.
type LineConn struct {
	conn    net.Conn
	scanner *bufio.Scanner
	writer  *bufio.Writer
}

// Dial connects to a line-protocol endpoint.
func Dial(address string) (*LineConn, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, err
	}
	return NewLineConn(conn), nil
}

func NewLineConn(conn net.Conn) *LineConn {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), MaxLineBytes)
	return &LineConn{conn: conn, scanner: scanner, writer: bufio.NewWriter(conn)}
}

// ReadLine returns the next wire line without its newline. io.EOF-like
// conditions and oversized lines both surface as (nil, err).
func (lc *LineConn) ReadLine() ([]byte, error) {
	if lc.scanner.Scan() {
		return lc.scanner.Bytes(), nil
	}
	if err := lc.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, net.ErrClosed
}

// WriteLine sends one already-encoded line, appending the newline and
// flushing so the peer sees it immediately.
func (lc *LineConn) WriteLine(line []byte) error {
	if _, err := lc.writer.Write(line); err != nil {
		return err
	}
	if err := lc.writer.WriteByte('\n'); err != nil {
		return err
	}
	return lc.writer.Flush()
}

// WriteMessage encodes and sends one protocol message.
func (lc *LineConn) WriteMessage(msg any) error {
	line, err := Encode(msg)
	if err != nil {
		return err
	}
	return lc.WriteLine(line)
}

func (lc *LineConn) RemoteAddr() string { return lc.conn.RemoteAddr().String() }

func (lc *LineConn) Close() error { return lc.conn.Close() }
