//go:build unix

package socket

import (
	"time"

	"github.com/lxt1045/netsock/addr"
	"golang.org/x/sys/unix"
)

// Raw 平台 socket 句柄
type Raw int

const InvalidRaw Raw = -1

const (
	SOCK_STREAM = unix.SOCK_STREAM
	SOCK_DGRAM  = unix.SOCK_DGRAM

	SOL_SOCKET   = unix.SOL_SOCKET
	SO_REUSEADDR = unix.SO_REUSEADDR
	SO_BROADCAST = unix.SO_BROADCAST
	SO_KEEPALIVE = unix.SO_KEEPALIVE
	SO_RCVBUF    = unix.SO_RCVBUF
	SO_SNDBUF    = unix.SO_SNDBUF
	SO_TYPE      = unix.SO_TYPE
	SO_RCVTIMEO  = unix.SO_RCVTIMEO
	SO_SNDTIMEO  = unix.SO_SNDTIMEO
	IPPROTO_TCP  = unix.IPPROTO_TCP
	TCP_NODELAY  = unix.TCP_NODELAY

	SHUT_RD   = unix.SHUT_RD
	SHUT_WR   = unix.SHUT_WR
	SHUT_RDWR = unix.SHUT_RDWR
)

func ignoreEINTR(fn func() error) error {
	for {
		err := fn()
		if err != unix.EINTR {
			return err
		}
	}
}

func sysSocket(family addr.Family, typ, proto int) (Raw, error) {
	if family == addr.FamilyUnspec {
		return InvalidRaw, unix.EAFNOSUPPORT
	}
	fd, err := unix.Socket(int(family), typ, proto)
	if err != nil {
		return InvalidRaw, err
	}
	unix.CloseOnExec(fd)
	return Raw(fd), nil
}

func sysSocketpair(family addr.Family, typ, proto int) (Raw, Raw, error) {
	fds, err := unix.Socketpair(int(family), typ, proto)
	if err != nil {
		return InvalidRaw, InvalidRaw, err
	}
	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])
	return Raw(fds[0]), Raw(fds[1]), nil
}

func sysClose(raw Raw) error {
	return unix.Close(int(raw))
}

// listenControl 监听前设置 SO_REUSEADDR，避免重启时 TIME_WAIT 占用端口
func listenControl(raw Raw, a addr.Address) error {
	if a.Family() == addr.FamilyUnix {
		return nil
	}
	return unix.SetsockoptInt(int(raw), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}

func sysBind(raw Raw, a addr.Address) error {
	sa, err := toSockaddr(a)
	if err != nil {
		return err
	}
	return unix.Bind(int(raw), sa)
}

func sysConnect(raw Raw, a addr.Address) error {
	sa, err := toSockaddr(a)
	if err != nil {
		return err
	}
	return unix.Connect(int(raw), sa)
}

func sysListen(raw Raw, backlog int) error {
	return unix.Listen(int(raw), backlog)
}

func sysAccept(raw Raw) (Raw, addr.Address, error) {
	var (
		nfd int
		sa  unix.Sockaddr
	)
	err := ignoreEINTR(func() (err error) {
		nfd, sa, err = unix.Accept(int(raw))
		return
	})
	if err != nil {
		return InvalidRaw, addr.Address{}, err
	}
	unix.CloseOnExec(nfd)
	return Raw(nfd), fromSockaddr(sa), nil
}

func sysGetsockname(raw Raw) (addr.Address, error) {
	sa, err := unix.Getsockname(int(raw))
	if err != nil {
		return addr.Address{}, err
	}
	return fromSockaddr(sa), nil
}

func sysGetpeername(raw Raw) (addr.Address, error) {
	sa, err := unix.Getpeername(int(raw))
	if err != nil {
		return addr.Address{}, err
	}
	return fromSockaddr(sa), nil
}

func sysShutdown(raw Raw, how int) error {
	return unix.Shutdown(int(raw), how)
}

func sysSetNonblock(raw Raw, on bool) error {
	return unix.SetNonblock(int(raw), on)
}

func sysGetsockoptInt(raw Raw, level, name int) (int, error) {
	return unix.GetsockoptInt(int(raw), level, name)
}

func sysSetsockoptInt(raw Raw, level, name, value int) error {
	return unix.SetsockoptInt(int(raw), level, name, value)
}

func sysSetTimeout(raw Raw, name int, d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(int(raw), unix.SOL_SOCKET, name, &tv)
}

func sysSendTo(raw Raw, p []byte, to addr.Address) (int, error) {
	sa, err := toSockaddr(to)
	if err != nil {
		return 0, err
	}
	err = ignoreEINTR(func() error {
		return unix.Sendto(int(raw), p, 0, sa)
	})
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func sysRecvFrom(raw Raw, p []byte) (n int, from addr.Address, err error) {
	var sa unix.Sockaddr
	err = ignoreEINTR(func() (err error) {
		n, sa, err = unix.Recvfrom(int(raw), p, 0)
		return
	})
	if err != nil {
		return 0, addr.Address{}, err
	}
	return n, fromSockaddr(sa), nil
}

func sysRead(raw Raw, p []byte) (n int, err error) {
	err = ignoreEINTR(func() (err error) {
		n, err = unix.Read(int(raw), p)
		return
	})
	if n < 0 {
		n = 0
	}
	return
}

func sysWrite(raw Raw, p []byte) (n int, err error) {
	err = ignoreEINTR(func() (err error) {
		n, err = unix.Write(int(raw), p)
		return
	})
	if n < 0 {
		n = 0
	}
	return
}

func toSockaddr(a addr.Address) (unix.Sockaddr, error) {
	if !a.IsValid() {
		return nil, unix.EAFNOSUPPORT
	}
	switch a.Family() {
	case addr.FamilyInet:
		return &unix.SockaddrInet4{Port: int(a.Port()), Addr: a.Addr().As4()}, nil
	case addr.FamilyInet6:
		return &unix.SockaddrInet6{Port: int(a.Port()), ZoneId: a.ZoneIndex(), Addr: a.Addr().As16()}, nil
	case addr.FamilyUnix:
		return &unix.SockaddrUnix{Name: a.Path()}, nil
	}
	return nil, unix.EAFNOSUPPORT
}

func fromSockaddr(sa unix.Sockaddr) addr.Address {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return addr.FromInet4(v.Addr, v.Port)
	case *unix.SockaddrInet6:
		return addr.FromInet6(v.Addr, v.Port, v.ZoneId)
	case *unix.SockaddrUnix:
		a, _ := addr.Unix(v.Name)
		return a
	}
	return addr.Address{}
}
