package socket

import (
	"context"
	"math"
	"time"

	"github.com/lxt1045/netsock/config"
	"github.com/lxt1045/netsock/log"
	"github.com/lxt1045/netsock/sockerr"
)

func boolInt(on bool) int {
	if on {
		return 1
	}
	return 0
}

func (s *Socket) GetOption(level, name int) (int, error) {
	v, err := sysGetsockoptInt(s.Handle(), level, name)
	return v, s.err.Record("getsockopt", err)
}

func (s *Socket) SetOption(level, name, value int) error {
	return s.err.Record("setsockopt", sysSetsockoptInt(s.Handle(), level, name, value))
}

func (s *Socket) SetReuseAddr(on bool) error {
	return s.SetOption(SOL_SOCKET, SO_REUSEADDR, boolInt(on))
}

func (s *Socket) SetReusePort(on bool) error {
	return s.SetOption(SOL_SOCKET, SO_REUSEPORT, boolInt(on))
}

func (s *Socket) SetBroadcast(on bool) error {
	return s.SetOption(SOL_SOCKET, SO_BROADCAST, boolInt(on))
}

func (s *Socket) SetRecvBuffer(bytes int) error {
	return s.SetOption(SOL_SOCKET, SO_RCVBUF, bytes)
}

func (s *Socket) SetSendBuffer(bytes int) error {
	return s.SetOption(SOL_SOCKET, SO_SNDBUF, bytes)
}

// RecvBuffer 内核实际使用的接收缓冲区大小(linux 上是设置值的两倍)
func (s *Socket) RecvBuffer() (int, error) {
	return s.GetOption(SOL_SOCKET, SO_RCVBUF)
}

func (s *Socket) SendBuffer() (int, error) {
	return s.GetOption(SOL_SOCKET, SO_SNDBUF)
}

func (s *Socket) SetNonBlocking(on bool) error {
	return s.err.Record("nonblock", sysSetNonblock(s.Handle(), on))
}

// SetReadTimeout 0 表示永不超时；超时后读操作返回 EAGAIN/EWOULDBLOCK
func (s *Socket) SetReadTimeout(d time.Duration) error {
	return s.err.Record("setsockopt", sysSetTimeout(s.Handle(), SO_RCVTIMEO, d))
}

func (s *Socket) SetWriteTimeout(d time.Duration) error {
	return s.err.Record("setsockopt", sysSetTimeout(s.Handle(), SO_SNDTIMEO, d))
}

// Apply 一次性设置 conf 中的选项
func (s *Socket) Apply(conf config.Socket) error {
	err := applyConfig(s.Handle(), conf)
	if err == nil {
		err = applyBlocking(s.Handle(), conf)
	}
	if err != nil {
		log.Ctx(context.Background()).Warn().Err(err).Int64("raw", int64(s.Handle())).Msg("apply socket config failed")
	}
	return s.err.Record("apply", err)
}

func applyConfig(raw Raw, conf config.Socket) (err error) {
	opts := []struct {
		on    bool
		name  int
		value int
		op    string
	}{
		{conf.ReuseAddr, SO_REUSEADDR, 1, "SO_REUSEADDR"},
		{conf.ReusePort, SO_REUSEPORT, 1, "SO_REUSEPORT"},
		{conf.Broadcast, SO_BROADCAST, 1, "SO_BROADCAST"},
	}
	for _, o := range opts {
		if !o.on {
			continue
		}
		err = sysSetsockoptInt(raw, SOL_SOCKET, o.name, o.value)
		if err != nil {
			return sockerr.Wrap("setsockopt "+o.op, err)
		}
	}

	bufs := []struct {
		size config.Bytes
		name int
		op   string
	}{
		{conf.RecvBuffer, SO_RCVBUF, "SO_RCVBUF"},
		{conf.SendBuffer, SO_SNDBUF, "SO_SNDBUF"},
	}
	for _, b := range bufs {
		if b.size == 0 {
			continue
		}
		if b.size < 0 || int64(b.size) > int64(math.MaxInt32) {
			return &sockerr.Error{Op: "setsockopt " + b.op, Code: sockerr.EINVAL}
		}
		err = sysSetsockoptInt(raw, SOL_SOCKET, b.name, int(b.size))
		if err != nil {
			return sockerr.Wrap("setsockopt "+b.op, err)
		}
	}

	if conf.ReadTimeout > 0 {
		err = sysSetTimeout(raw, SO_RCVTIMEO, conf.ReadTimeout)
		if err != nil {
			return sockerr.Wrap("setsockopt SO_RCVTIMEO", err)
		}
	}
	if conf.WriteTimeout > 0 {
		err = sysSetTimeout(raw, SO_SNDTIMEO, conf.WriteTimeout)
		if err != nil {
			return sockerr.Wrap("setsockopt SO_SNDTIMEO", err)
		}
	}
	return nil
}

// applyBlocking 放在 connect/listen 之后，否则非阻塞 connect 会返回 EINPROGRESS
func applyBlocking(raw Raw, conf config.Socket) error {
	if !conf.NonBlocking {
		return nil
	}
	err := sysSetNonblock(raw, true)
	if err != nil {
		return sockerr.Wrap("nonblock", err)
	}
	return nil
}

// timeoutMillis 向上取整到毫秒：不足 1ms 的正值截断成 0 会变成永不超时
func timeoutMillis(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}

// withConfig 组合出 open 使用的 setup：先设置选项，再执行 next，最后切换阻塞模式
func withConfig(confs []config.Socket, next func(raw Raw) error) func(raw Raw) error {
	return func(raw Raw) error {
		for _, conf := range confs {
			if err := applyConfig(raw, conf); err != nil {
				return err
			}
		}
		if next != nil {
			if err := next(raw); err != nil {
				return err
			}
		}
		for _, conf := range confs {
			if err := applyBlocking(raw, conf); err != nil {
				return err
			}
		}
		return nil
	}
}
