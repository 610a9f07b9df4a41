//go:build windows

package sockerr

// Winsock 错误码
const (
	EINTR         = 10004
	EBADF         = 10009
	EINVAL        = 10022
	EAGAIN        = 10035
	EWOULDBLOCK   = 10035
	ENOTSOCK      = 10038
	EMSGSIZE      = 10040
	ENOPROTOOPT   = 10042
	EOPNOTSUPP    = 10045
	EAFNOSUPPORT  = 10047
	EADDRINUSE    = 10048
	EADDRNOTAVAIL = 10049
	EISCONN       = 10056
	ENOTCONN      = 10057
	ETIMEDOUT     = 10060
	ECONNREFUSED  = 10061
	ENAMETOOLONG  = 10063

	EAINoName = 11001 // WSAHOST_NOT_FOUND
	EAIAgain  = 11002 // WSATRY_AGAIN
	EAIFail   = 11003 // WSANO_RECOVERY

	Unknown = -1
)
