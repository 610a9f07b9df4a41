//go:build unix && !solaris

package socket

import "golang.org/x/sys/unix"

const SO_REUSEPORT = unix.SO_REUSEPORT
