package socket

import (
	"github.com/lxt1045/netsock/addr"
	"github.com/lxt1045/netsock/config"
	"github.com/lxt1045/netsock/sockerr"
)

const DefaultBacklog = 4

// Acceptor 监听 socket，Accept 得到的子 socket 归调用方所有
type Acceptor struct {
	Socket
}

func NewAcceptor(raw Raw) *Acceptor {
	ac := &Acceptor{}
	ac.adopt(raw)
	return ac
}

// Listen 创建、绑定并监听 a；backlog <= 0 时使用 DefaultBacklog
func Listen(a addr.Address, backlog int, confs ...config.Socket) (*Acceptor, error) {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	ac := &Acceptor{}
	err := ac.open("listen", a.Family(), SOCK_STREAM, withConfig(confs, func(raw Raw) (err error) {
		err = listenControl(raw, a)
		if err != nil {
			return sockerr.Wrap("setsockopt SO_REUSEADDR", err)
		}
		err = sysBind(raw, a)
		if err != nil {
			return sockerr.Wrap("bind", err)
		}
		err = sysListen(raw, backlog)
		if err != nil {
			return sockerr.Wrap("listen", err)
		}
		return nil
	}))
	return ac, err
}

// Accept 阻塞直到有新连接；失败时返回空的 StreamSocket
func (ac *Acceptor) Accept() (*StreamSocket, addr.Address, error) {
	raw, peer, err := sysAccept(ac.Handle())
	if err != nil {
		return &StreamSocket{}, addr.Address{}, ac.err.Record("accept", err)
	}
	ac.err.Clear()
	return NewStreamSocket(raw), peer, nil
}
