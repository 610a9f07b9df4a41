//go:build solaris

package socket

// SO_REUSEPORT x/sys 在 solaris/illumos 上没有定义，setsockopt 返回 ENOPROTOOPT
const SO_REUSEPORT = -1
