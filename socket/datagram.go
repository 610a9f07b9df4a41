package socket

import (
	"github.com/lxt1045/netsock/addr"
	"github.com/lxt1045/netsock/config"
)

// DatagramSocket 无连接的数据报 socket，零值为空句柄
type DatagramSocket struct {
	Socket
}

func NewDatagramSocket(raw Raw) *DatagramSocket {
	s := &DatagramSocket{}
	s.adopt(raw)
	return s
}

// OpenDatagram 创建未绑定的数据报 socket
func OpenDatagram(family addr.Family, confs ...config.Socket) (*DatagramSocket, error) {
	s := &DatagramSocket{}
	err := s.open("socket", family, SOCK_DGRAM, withConfig(confs, nil))
	return s, err
}

// BindDatagram 按 a 的地址族创建 socket 并绑定到 a。
// 失败时返回的 socket 为空句柄，LastError 为平台错误码(例如 Any() 得到 EAFNOSUPPORT)
func BindDatagram(a addr.Address, confs ...config.Socket) (*DatagramSocket, error) {
	s := &DatagramSocket{}
	err := s.open("bind", a.Family(), SOCK_DGRAM, withConfig(confs, func(raw Raw) error {
		return sysBind(raw, a)
	}))
	return s, err
}

// Connect 设置默认对端，之后可以用 Send/Recv
func (s *DatagramSocket) Connect(a addr.Address) error {
	return s.err.Record("connect", sysConnect(s.Handle(), a))
}

func (s *DatagramSocket) SendTo(p []byte, to addr.Address) (int, error) {
	n, err := sysSendTo(s.Handle(), p, to)
	return n, s.err.Record("sendto", err)
}

func (s *DatagramSocket) RecvFrom(p []byte) (int, addr.Address, error) {
	n, from, err := sysRecvFrom(s.Handle(), p)
	return n, from, s.err.Record("recvfrom", err)
}

func (s *DatagramSocket) Send(p []byte) (int, error) {
	n, err := sysWrite(s.Handle(), p)
	return n, s.err.Record("send", err)
}

func (s *DatagramSocket) Recv(p []byte) (int, error) {
	n, err := sysRead(s.Handle(), p)
	return n, s.err.Record("recv", err)
}
