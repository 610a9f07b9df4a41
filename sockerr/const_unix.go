//go:build unix

package sockerr

import "golang.org/x/sys/unix"

const (
	EAFNOSUPPORT  = int(unix.EAFNOSUPPORT)
	EADDRINUSE    = int(unix.EADDRINUSE)
	EADDRNOTAVAIL = int(unix.EADDRNOTAVAIL)
	EAGAIN        = int(unix.EAGAIN)
	EWOULDBLOCK   = int(unix.EWOULDBLOCK)
	EBADF         = int(unix.EBADF)
	ECONNREFUSED  = int(unix.ECONNREFUSED)
	EINTR         = int(unix.EINTR)
	EINVAL        = int(unix.EINVAL)
	EISCONN       = int(unix.EISCONN)
	EMSGSIZE      = int(unix.EMSGSIZE)
	ENAMETOOLONG  = int(unix.ENAMETOOLONG)
	ENOPROTOOPT   = int(unix.ENOPROTOOPT)
	ENOTCONN      = int(unix.ENOTCONN)
	ENOTSOCK      = int(unix.ENOTSOCK)
	EOPNOTSUPP    = int(unix.EOPNOTSUPP)
	ETIMEDOUT     = int(unix.ETIMEDOUT)
)

// getaddrinfo 错误码(glibc 编号)，与 errno 不重叠
const (
	EAINoName = -2
	EAIAgain  = -3
	EAIFail   = -4

	Unknown = -1
)
