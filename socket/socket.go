package socket

import (
	"context"
	"runtime"

	"github.com/lxt1045/netsock/addr"
	"github.com/lxt1045/netsock/log"
	"github.com/lxt1045/netsock/sockerr"
)

// noCopy 让 go vet 的 copylocks 检查拦住 Socket 的值拷贝
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// fd 只在 OPEN 状态存在，GC 回收时关闭 raw
type fd struct {
	raw Raw
}

func newFD(raw Raw) *fd {
	f := &fd{raw: raw}
	runtime.SetFinalizer(f, (*fd).finalize)
	return f
}

func (f *fd) finalize() {
	err := sysClose(f.raw)
	if err != nil {
		log.Ctx(context.Background()).Debug().Err(err).Int64("raw", int64(f.raw)).Msg("close on finalize failed")
	}
}

// release 解除 finalizer 并交出 raw
func (f *fd) release() Raw {
	runtime.SetFinalizer(f, nil)
	return f.raw
}

// Socket 独占一个平台句柄，零值即为空句柄。
//
// Socket 不能拷贝，转移所有权用 Take 或 Release。所有可能失败的操作既返回
// error，也把平台错误码记录在 LastError 上；成功的操作会把它清零。
// Socket 内部不加锁。
type Socket struct {
	noCopy noCopy

	fd  *fd
	err sockerr.LastError
}

// NewSocket 接管 raw，不做任何校验；raw 为 InvalidRaw 时得到空句柄且不记录错误
func NewSocket(raw Raw) *Socket {
	s := &Socket{}
	s.adopt(raw)
	return s
}

func (s *Socket) adopt(raw Raw) {
	if raw != InvalidRaw {
		s.fd = newFD(raw)
	}
}

// open 分配新句柄并执行 setup(bind/connect/listen)，任何一步失败都会关闭已分配的
// 句柄，Socket 保持为空并记录错误码
func (s *Socket) open(op string, family addr.Family, typ int, setup func(raw Raw) error) error {
	if s.fd != nil {
		return s.err.Fail(op, sockerr.EISCONN)
	}
	raw, err := sysSocket(family, typ, 0)
	if err != nil {
		return s.err.Record("socket", err)
	}
	if setup != nil {
		err = setup(raw)
		if err != nil {
			_ = sysClose(raw)
			return s.err.Record(op, err)
		}
	}
	s.fd = newFD(raw)
	s.err.Clear()
	return nil
}

func (s *Socket) IsOpen() bool {
	return s.fd != nil
}

// Handle 返回持有的句柄，空句柄返回 InvalidRaw
func (s *Socket) Handle() Raw {
	if s.fd == nil {
		return InvalidRaw
	}
	return s.fd.raw
}

func (s *Socket) LastError() int {
	return s.err.Get()
}

func (s *Socket) LastErrorStr() string {
	return sockerr.Message(s.err.Get())
}

func (s *Socket) ClearError() {
	s.err.Clear()
}

// Close 关闭句柄，重复调用是空操作。即使平台 close 失败 Socket 也会变为空
func (s *Socket) Close() error {
	if s.fd == nil {
		return nil
	}
	raw := s.fd.release()
	s.fd = nil
	return s.err.Record("close", sysClose(raw))
}

// Release 放弃所有权但不关闭，返回原句柄
func (s *Socket) Release() Raw {
	if s.fd == nil {
		return InvalidRaw
	}
	raw := s.fd.release()
	s.fd = nil
	return raw
}

// Reset 先关闭当前句柄，再接管 raw
func (s *Socket) Reset(raw Raw) (err error) {
	if s.fd != nil && s.fd.raw == raw {
		return
	}
	err = s.Close()
	s.adopt(raw)
	return
}

// Take 把 src 的句柄和错误码转移过来，src 变为零值状态；当前持有的句柄先关闭
func (s *Socket) Take(src *Socket) {
	if src == nil || src == s {
		return
	}
	if s.fd != nil {
		_ = sysClose(s.fd.release())
	}
	s.fd, src.fd = src.fd, nil
	s.err, src.err = src.err, sockerr.LastError{}
}

// Address 本地绑定地址(getsockname)，失败时返回无效地址并记录错误码
func (s *Socket) Address() addr.Address {
	a, err := sysGetsockname(s.Handle())
	if s.err.Record("getsockname", err) != nil {
		return addr.Address{}
	}
	return a
}

// PeerAddress 对端地址(getpeername)
func (s *Socket) PeerAddress() addr.Address {
	a, err := sysGetpeername(s.Handle())
	if s.err.Record("getpeername", err) != nil {
		return addr.Address{}
	}
	return a
}

// Family 由本地地址推出
func (s *Socket) Family() addr.Family {
	return s.Address().Family()
}

// Type SOCK_STREAM / SOCK_DGRAM
func (s *Socket) Type() (int, error) {
	return s.GetOption(SOL_SOCKET, SO_TYPE)
}

func (s *Socket) Bind(a addr.Address) error {
	return s.err.Record("bind", sysBind(s.Handle(), a))
}

// Shutdown how 取 SHUT_RD, SHUT_WR, SHUT_RDWR
func (s *Socket) Shutdown(how int) error {
	return s.err.Record("shutdown", sysShutdown(s.Handle(), how))
}

// NewPair 创建一对互相连接的 socket(socketpair)
func NewPair(family addr.Family, typ int) (a, b *Socket, err error) {
	a, b = &Socket{}, &Socket{}
	ra, rb, e := sysSocketpair(family, typ, 0)
	if e != nil {
		err = a.err.Record("socketpair", e)
		b.err.Set(a.err.Get())
		return
	}
	a.adopt(ra)
	b.adopt(rb)
	return
}
