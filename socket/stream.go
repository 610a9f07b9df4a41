package socket

import (
	"io"

	"github.com/lxt1045/netsock/addr"
	"github.com/lxt1045/netsock/config"
)

// StreamSocket 面向连接的字节流 socket，实现 io.ReadWriter
type StreamSocket struct {
	Socket
}

var _ io.ReadWriter = (*StreamSocket)(nil)

func NewStreamSocket(raw Raw) *StreamSocket {
	s := &StreamSocket{}
	s.adopt(raw)
	return s
}

// OpenStream 创建未连接的流 socket
func OpenStream(family addr.Family, confs ...config.Socket) (*StreamSocket, error) {
	s := &StreamSocket{}
	err := s.open("socket", family, SOCK_STREAM, withConfig(confs, nil))
	return s, err
}

// Read 对端关闭时返回 io.EOF，此时 LastError 为 0
func (s *StreamSocket) Read(p []byte) (n int, err error) {
	n, err = sysRead(s.Handle(), p)
	if err != nil {
		return n, s.err.Record("read", err)
	}
	s.err.Clear()
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return
}

// Write 只调用一次 write，没写完时返回 io.ErrShortWrite
func (s *StreamSocket) Write(p []byte) (n int, err error) {
	n, err = sysWrite(s.Handle(), p)
	if err != nil {
		return n, s.err.Record("write", err)
	}
	s.err.Clear()
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return
}

// ReadFull 读满 p 为止
func (s *StreamSocket) ReadFull(p []byte) (int, error) {
	return io.ReadFull(s, p)
}

// WriteAll 写完 p 为止
func (s *StreamSocket) WriteAll(p []byte) (n int, err error) {
	for n < len(p) {
		var m int
		m, err = sysWrite(s.Handle(), p[n:])
		n += m
		if err != nil {
			return n, s.err.Record("write", err)
		}
	}
	s.err.Clear()
	return
}

func (s *StreamSocket) SetNoDelay(on bool) error {
	return s.SetOption(IPPROTO_TCP, TCP_NODELAY, boolInt(on))
}

func (s *StreamSocket) SetKeepAlive(on bool) error {
	return s.SetOption(SOL_SOCKET, SO_KEEPALIVE, boolInt(on))
}
