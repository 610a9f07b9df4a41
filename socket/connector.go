package socket

import (
	"github.com/lxt1045/netsock/addr"
	"github.com/lxt1045/netsock/config"
)

// Connector 主动发起连接的流 socket
type Connector struct {
	StreamSocket
}

func NewConnector(raw Raw) *Connector {
	c := &Connector{}
	c.adopt(raw)
	return c
}

// Dial 创建 socket 并连接到 a，失败时返回空句柄和错误码
func Dial(a addr.Address, confs ...config.Socket) (*Connector, error) {
	c := &Connector{}
	err := c.Connect(a, confs...)
	return c, err
}

// Connect 只能在空的 Connector 上调用；已打开时返回 EISCONN，不改动现有句柄
func (c *Connector) Connect(a addr.Address, confs ...config.Socket) error {
	return c.open("connect", a.Family(), SOCK_STREAM, withConfig(confs, func(raw Raw) error {
		return sysConnect(raw, a)
	}))
}

func (c *Connector) IsConnected() bool {
	return c.IsOpen()
}
