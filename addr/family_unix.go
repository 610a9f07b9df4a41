//go:build unix

package addr

import "golang.org/x/sys/unix"

const (
	FamilyUnspec Family = unix.AF_UNSPEC
	FamilyInet   Family = unix.AF_INET
	FamilyInet6  Family = unix.AF_INET6
	FamilyUnix   Family = unix.AF_UNIX
)

// sun_path 的容量，包含结尾的 '\0'
var maxPathLen = len(unix.RawSockaddrUnix{}.Path)
