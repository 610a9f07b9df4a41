//go:build windows

package addr

import "golang.org/x/sys/windows"

const (
	FamilyUnspec Family = windows.AF_UNSPEC
	FamilyInet   Family = windows.AF_INET
	FamilyInet6  Family = windows.AF_INET6
	FamilyUnix   Family = windows.AF_UNIX
)

var maxPathLen = len(windows.RawSockaddrUnix{}.Path)
