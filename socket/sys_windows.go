//go:build windows

package socket

import (
	"syscall"
	"time"
	"unsafe"

	"github.com/lxt1045/netsock/addr"
	"github.com/lxt1045/netsock/sockerr"
	"golang.org/x/sys/windows"
)

// Raw 平台 socket 句柄
type Raw uintptr

const InvalidRaw = Raw(windows.InvalidHandle)

const (
	SOCK_STREAM = windows.SOCK_STREAM
	SOCK_DGRAM  = windows.SOCK_DGRAM

	SOL_SOCKET   = 0xffff
	SO_REUSEADDR = 0x4
	SO_REUSEPORT = 0x0F // windows 不支持，setsockopt 返回 WSAENOPROTOOPT
	SO_BROADCAST = 0x20
	SO_KEEPALIVE = 0x8
	SO_RCVBUF    = 0x1002
	SO_SNDBUF    = 0x1001
	SO_TYPE      = 0x1008
	SO_RCVTIMEO  = 0x1006
	SO_SNDTIMEO  = 0x1005
	IPPROTO_TCP  = 6
	TCP_NODELAY  = 1

	SHUT_RD   = 0
	SHUT_WR   = 1
	SHUT_RDWR = 2
)

const (
	socketError = ^uintptr(0)
	fionbio     = 0x8004667e
)

var (
	modws2_32       = windows.NewLazySystemDLL("ws2_32.dll")
	procAccept      = modws2_32.NewProc("accept")
	procRecv        = modws2_32.NewProc("recv")
	procSend        = modws2_32.NewProc("send")
	procIoctlsocket = modws2_32.NewProc("ioctlsocket")
	procSendto      = modws2_32.NewProc("sendto")
	procRecvfrom    = modws2_32.NewProc("recvfrom")
)

func errno(code int) error {
	return syscall.Errno(code)
}

func sysSocket(family addr.Family, typ, proto int) (Raw, error) {
	if family == addr.FamilyUnspec {
		return InvalidRaw, errno(sockerr.EAFNOSUPPORT)
	}
	h, err := windows.Socket(int(family), typ, proto)
	if err != nil {
		return InvalidRaw, err
	}
	return Raw(h), nil
}

func sysSocketpair(family addr.Family, typ, proto int) (Raw, Raw, error) {
	return InvalidRaw, InvalidRaw, errno(sockerr.EOPNOTSUPP)
}

func sysClose(raw Raw) error {
	return windows.Closesocket(windows.Handle(raw))
}

// listenControl windows 上 SO_REUSEADDR 允许抢占端口，不设置
func listenControl(raw Raw, a addr.Address) error {
	return nil
}

func sysBind(raw Raw, a addr.Address) error {
	sa, err := toSockaddr(a)
	if err != nil {
		return err
	}
	return windows.Bind(windows.Handle(raw), sa)
}

func sysConnect(raw Raw, a addr.Address) error {
	sa, err := toSockaddr(a)
	if err != nil {
		return err
	}
	return windows.Connect(windows.Handle(raw), sa)
}

func sysListen(raw Raw, backlog int) error {
	return windows.Listen(windows.Handle(raw), backlog)
}

func sysAccept(raw Raw) (Raw, addr.Address, error) {
	var rsa windows.RawSockaddrAny
	l := int32(unsafe.Sizeof(rsa))
	r, _, e := procAccept.Call(uintptr(raw), uintptr(unsafe.Pointer(&rsa)), uintptr(unsafe.Pointer(&l)))
	if Raw(r) == InvalidRaw {
		return InvalidRaw, addr.Address{}, e
	}
	sa, err := rsa.Sockaddr()
	if err != nil {
		return Raw(r), addr.Address{}, nil
	}
	return Raw(r), fromSockaddr(sa), nil
}

func sysGetsockname(raw Raw) (addr.Address, error) {
	sa, err := windows.Getsockname(windows.Handle(raw))
	if err != nil {
		return addr.Address{}, err
	}
	return fromSockaddr(sa), nil
}

func sysGetpeername(raw Raw) (addr.Address, error) {
	sa, err := windows.Getpeername(windows.Handle(raw))
	if err != nil {
		return addr.Address{}, err
	}
	return fromSockaddr(sa), nil
}

func sysShutdown(raw Raw, how int) error {
	return windows.Shutdown(windows.Handle(raw), how)
}

func sysSetNonblock(raw Raw, on bool) error {
	var arg uint32
	if on {
		arg = 1
	}
	r, _, e := procIoctlsocket.Call(uintptr(raw), fionbio, uintptr(unsafe.Pointer(&arg)))
	if r == socketError {
		return e
	}
	return nil
}

func sysGetsockoptInt(raw Raw, level, name int) (int, error) {
	return windows.GetsockoptInt(windows.Handle(raw), level, name)
}

func sysSetsockoptInt(raw Raw, level, name, value int) error {
	return windows.SetsockoptInt(windows.Handle(raw), level, name, value)
}

// sysSetTimeout windows 的超时是毫秒数(DWORD)
func sysSetTimeout(raw Raw, name int, d time.Duration) error {
	return windows.SetsockoptInt(windows.Handle(raw), SOL_SOCKET, name, timeoutMillis(d))
}

// sysSendTo windows.Sendto 未实现，直接调用 ws2_32
func sysSendTo(raw Raw, p []byte, to addr.Address) (int, error) {
	var (
		rsa windows.RawSockaddrAny
		l   int32
	)
	switch to.Family() {
	case addr.FamilyInet:
		sa := (*windows.RawSockaddrInet4)(unsafe.Pointer(&rsa))
		sa.Family = windows.AF_INET
		sa.Port = htons(to.Port())
		sa.Addr = to.Addr().As4()
		l = int32(unsafe.Sizeof(*sa))
	case addr.FamilyInet6:
		sa := (*windows.RawSockaddrInet6)(unsafe.Pointer(&rsa))
		sa.Family = windows.AF_INET6
		sa.Port = htons(to.Port())
		sa.Scope_id = to.ZoneIndex()
		sa.Addr = to.Addr().As16()
		l = int32(unsafe.Sizeof(*sa))
	default:
		return 0, errno(sockerr.EAFNOSUPPORT)
	}
	var buf uintptr
	if len(p) > 0 {
		buf = uintptr(unsafe.Pointer(&p[0]))
	}
	r, _, e := procSendto.Call(uintptr(raw), buf, uintptr(len(p)), 0, uintptr(unsafe.Pointer(&rsa)), uintptr(l))
	if r == socketError {
		return 0, e
	}
	return int(r), nil
}

func sysRecvFrom(raw Raw, p []byte) (int, addr.Address, error) {
	var rsa windows.RawSockaddrAny
	l := int32(unsafe.Sizeof(rsa))
	var buf uintptr
	if len(p) > 0 {
		buf = uintptr(unsafe.Pointer(&p[0]))
	}
	r, _, e := procRecvfrom.Call(uintptr(raw), buf, uintptr(len(p)), 0, uintptr(unsafe.Pointer(&rsa)), uintptr(unsafe.Pointer(&l)))
	if r == socketError {
		return 0, addr.Address{}, e
	}
	sa, err := rsa.Sockaddr()
	if err != nil {
		return int(r), addr.Address{}, nil
	}
	return int(r), fromSockaddr(sa), nil
}

func htons(v uint16) uint16 {
	return v<<8 | v>>8
}

func sysRead(raw Raw, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	r, _, e := procRecv.Call(uintptr(raw), uintptr(unsafe.Pointer(&p[0])), uintptr(len(p)), 0)
	if r == socketError {
		return 0, e
	}
	return int(r), nil
}

func sysWrite(raw Raw, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	r, _, e := procSend.Call(uintptr(raw), uintptr(unsafe.Pointer(&p[0])), uintptr(len(p)), 0)
	if r == socketError {
		return 0, e
	}
	return int(r), nil
}

func toSockaddr(a addr.Address) (windows.Sockaddr, error) {
	if !a.IsValid() {
		return nil, errno(sockerr.EAFNOSUPPORT)
	}
	switch a.Family() {
	case addr.FamilyInet:
		return &windows.SockaddrInet4{Port: int(a.Port()), Addr: a.Addr().As4()}, nil
	case addr.FamilyInet6:
		return &windows.SockaddrInet6{Port: int(a.Port()), ZoneId: a.ZoneIndex(), Addr: a.Addr().As16()}, nil
	case addr.FamilyUnix:
		return &windows.SockaddrUnix{Name: a.Path()}, nil
	}
	return nil, errno(sockerr.EAFNOSUPPORT)
}

func fromSockaddr(sa windows.Sockaddr) addr.Address {
	switch v := sa.(type) {
	case *windows.SockaddrInet4:
		return addr.FromInet4(v.Addr, v.Port)
	case *windows.SockaddrInet6:
		return addr.FromInet6(v.Addr, v.Port, v.ZoneId)
	case *windows.SockaddrUnix:
		a, _ := addr.Unix(v.Name)
		return a
	}
	return addr.Address{}
}
