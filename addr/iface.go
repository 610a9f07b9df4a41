package addr

import (
	"net/netip"

	sockaddr "github.com/hashicorp/go-sockaddr"
	"github.com/lxt1045/netsock/sockerr"
)

// Interface 取网卡 name 上的第一个 IP，例如 Interface("eth0", 8080)
func Interface(name string, port uint16) (a Address, err error) {
	ip, err := sockaddr.GetInterfaceIP(name)
	if err != nil {
		err = sockerr.Wrap("interface", err)
		return
	}
	return ipString("interface", ip, port)
}

// Private 取本机默认路由上的私有地址(RFC 6890)
func Private(port uint16) (a Address, err error) {
	ip, err := sockaddr.GetPrivateIP()
	if err != nil {
		err = sockerr.Wrap("private", err)
		return
	}
	return ipString("private", ip, port)
}

func ipString(op, s string, port uint16) (a Address, err error) {
	if s == "" {
		err = &sockerr.Error{Op: op, Code: sockerr.EADDRNOTAVAIL}
		return
	}
	ip, e := netip.ParseAddr(s)
	if e != nil {
		err = &sockerr.Error{Op: op, Code: sockerr.EINVAL}
		return
	}
	return FromAddrPort(netip.AddrPortFrom(ip, port)), nil
}
