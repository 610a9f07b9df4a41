package addr

import (
	"context"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/lxt1045/netsock/sockerr"
)

// Family 地址族，数值与平台 AF_* 一致
type Family int

func (f Family) String() string {
	switch f {
	case FamilyUnspec:
		return "unspec"
	case FamilyInet:
		return "inet"
	case FamilyInet6:
		return "inet6"
	case FamilyUnix:
		return "unix"
	}
	return "family(" + strconv.Itoa(int(f)) + ")"
}

// Address 是一个不可变的端点值，可以直接用 == 比较。
// 零值是无效地址；Any() 是合法但不能用于 bind/connect 的占位地址。
type Address struct {
	family Family
	ip     netip.Addr
	port   uint16
	path   string
	valid  bool
}

// Any 返回通配地址：结构上合法，但任何需要真实端点的操作都会以
// EAFNOSUPPORT 失败
func Any() Address {
	return Address{family: FamilyUnspec, valid: true}
}

// Inet 解析 IPv4 地址，host 可以是字面量或主机名，空串表示 0.0.0.0
func Inet(host string, port uint16) (Address, error) {
	return Resolve(context.Background(), FamilyInet, host, port)
}

// Inet6 解析 IPv6 地址，空串表示 ::
func Inet6(host string, port uint16) (Address, error) {
	return Resolve(context.Background(), FamilyInet6, host, port)
}

func InetAny(port uint16) Address {
	return Address{family: FamilyInet, ip: netip.IPv4Unspecified(), port: port, valid: true}
}

func Inet6Any(port uint16) Address {
	return Address{family: FamilyInet6, ip: netip.IPv6Unspecified(), port: port, valid: true}
}

func Loopback(port uint16) Address {
	return Address{family: FamilyInet, ip: netip.AddrFrom4([4]byte{127, 0, 0, 1}), port: port, valid: true}
}

func Loopback6(port uint16) Address {
	return Address{family: FamilyInet6, ip: netip.IPv6Loopback(), port: port, valid: true}
}

// Resolve 按地址族解析 host。失败时返回无效地址和带错误码的 *sockerr.Error
func Resolve(ctx context.Context, family Family, host string, port uint16) (a Address, err error) {
	var network string
	switch family {
	case FamilyInet:
		network = "ip4"
		if host == "" {
			return InetAny(port), nil
		}
	case FamilyInet6:
		network = "ip6"
		if host == "" {
			return Inet6Any(port), nil
		}
	default:
		err = &sockerr.Error{Op: "resolve", Code: sockerr.EAFNOSUPPORT}
		return
	}

	// 去掉 IPv6 字面量的方括号
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if ip, e := netip.ParseAddr(host); e == nil {
		return fromIP(family, ip, port)
	}

	ips, e := net.DefaultResolver.LookupNetIP(ctx, network, host)
	if e != nil {
		err = sockerr.Wrap("resolve", e)
		return
	}
	for _, ip := range ips {
		if a, err = fromIP(family, ip, port); err == nil {
			return
		}
	}
	err = &sockerr.Error{Op: "resolve", Code: sockerr.EAINoName}
	return Address{}, err
}

func fromIP(family Family, ip netip.Addr, port uint16) (Address, error) {
	switch family {
	case FamilyInet:
		ip = ip.Unmap()
		if !ip.Is4() {
			return Address{}, &sockerr.Error{Op: "resolve", Code: sockerr.EAFNOSUPPORT}
		}
	case FamilyInet6:
		if ip.Is4() {
			ip = netip.AddrFrom16(ip.As16())
		}
		ip = normalizeZone(ip)
	}
	return Address{family: family, ip: ip, port: port, valid: true}, nil
}

// Unix 构造 unix 域地址，path 为空表示未命名的 socket
func Unix(path string) (Address, error) {
	if len(path) >= maxPathLen {
		return Address{}, &sockerr.Error{Op: "unix", Code: sockerr.ENAMETOOLONG}
	}
	return Address{family: FamilyUnix, path: path, valid: true}, nil
}

// FromAddrPort IPv4 和 4in6 都归为 FamilyInet
func FromAddrPort(ap netip.AddrPort) Address {
	ip := ap.Addr()
	if !ip.IsValid() {
		return Address{}
	}
	if ip.Is4() || ip.Is4In6() {
		return Address{family: FamilyInet, ip: ip.Unmap(), port: ap.Port(), valid: true}
	}
	return Address{family: FamilyInet6, ip: normalizeZone(ip), port: ap.Port(), valid: true}
}

func FromNetAddr(na net.Addr) Address {
	switch v := na.(type) {
	case nil:
		return Address{}
	case *net.UDPAddr:
		return FromAddrPort(v.AddrPort())
	case *net.TCPAddr:
		return FromAddrPort(v.AddrPort())
	case *net.IPAddr:
		ip, ok := netip.AddrFromSlice(v.IP)
		if !ok {
			return Address{}
		}
		return FromAddrPort(netip.AddrPortFrom(ip.WithZone(v.Zone), 0))
	case *net.UnixAddr:
		a, _ := Unix(v.Name)
		return a
	}
	a, _ := Parse(na.String())
	return a
}

// Parse 支持 "host:port"、"[v6]:port"、"unix:/path"
func Parse(s string) (a Address, err error) {
	if path, ok := strings.CutPrefix(s, "unix:"); ok {
		return Unix(path)
	}
	host, sport, e := net.SplitHostPort(s)
	if e != nil {
		err = &sockerr.Error{Op: "parse", Code: sockerr.EINVAL}
		return
	}
	port, e := strconv.ParseUint(sport, 10, 16)
	if e != nil {
		err = &sockerr.Error{Op: "parse", Code: sockerr.EINVAL}
		return
	}
	if ip, e := netip.ParseAddr(host); e == nil {
		return FromAddrPort(netip.AddrPortFrom(ip, uint16(port))), nil
	}
	a, err = Inet(host, uint16(port))
	if err == nil {
		return
	}
	if a6, e := Inet6(host, uint16(port)); e == nil {
		return a6, nil
	}
	return
}

func (a Address) Family() Family {
	return a.family
}

// IsValid 零值和解析失败得到的地址返回 false
func (a Address) IsValid() bool {
	return a.valid
}

func (a Address) IsAny() bool {
	return a.valid && a.family == FamilyUnspec
}

func (a Address) Addr() netip.Addr {
	return a.ip
}

func (a Address) Port() uint16 {
	return a.port
}

func (a Address) Path() string {
	return a.path
}

func (a Address) AddrPort() netip.AddrPort {
	if a.family != FamilyInet && a.family != FamilyInet6 {
		return netip.AddrPort{}
	}
	return netip.AddrPortFrom(a.ip, a.port)
}

// WithPort 只对 inet/inet6 地址有效，其他地址原样返回
func (a Address) WithPort(port uint16) Address {
	if a.family == FamilyInet || a.family == FamilyInet6 {
		a.port = port
	}
	return a
}

// Equal 地址族和内容都相同
func (a Address) Equal(o Address) bool {
	return a == o
}

func (a Address) String() string {
	switch {
	case !a.valid:
		return "<invalid>"
	case a.family == FamilyUnspec:
		return "<any>"
	case a.family == FamilyUnix:
		return "unix:" + a.path
	case a.family == FamilyInet, a.family == FamilyInet6:
		return a.AddrPort().String()
	}
	return a.family.String()
}

func (a Address) UDPAddr() *net.UDPAddr {
	return net.UDPAddrFromAddrPort(a.AddrPort())
}

func (a Address) TCPAddr() *net.TCPAddr {
	return net.TCPAddrFromAddrPort(a.AddrPort())
}

func (a Address) UnixAddr(network string) *net.UnixAddr {
	return &net.UnixAddr{Name: a.path, Net: network}
}

// FromInet4 由 sockaddr 的字段构造地址，供平台层使用
func FromInet4(ip [4]byte, port int) Address {
	return Address{family: FamilyInet, ip: netip.AddrFrom4(ip), port: uint16(port), valid: true}
}

func FromInet6(ip [16]byte, port int, zoneID uint32) Address {
	a := netip.AddrFrom16(ip)
	if zoneID != 0 {
		a = a.WithZone(zoneName(zoneID))
	}
	return Address{family: FamilyInet6, ip: a, port: uint16(port), valid: true}
}

// zoneName 网卡存在时用网卡名，否则用序号
func zoneName(zoneID uint32) string {
	if ifi, err := net.InterfaceByIndex(int(zoneID)); err == nil {
		return ifi.Name
	}
	return strconv.FormatUint(uint64(zoneID), 10)
}

// normalizeZone 数字 zone 统一成 zoneName 的写法，
// 这样 fe80::1%2 与 getsockname 得到的地址可以直接比较
func normalizeZone(ip netip.Addr) netip.Addr {
	n, err := strconv.ParseUint(ip.Zone(), 10, 32)
	if err != nil || n == 0 {
		return ip
	}
	return ip.WithZone(zoneName(uint32(n)))
}

// ZoneIndex 返回 IPv6 zone 对应的网卡序号，没有 zone 时返回 0
func (a Address) ZoneIndex() uint32 {
	zone := a.ip.Zone()
	if zone == "" {
		return 0
	}
	if n, err := strconv.ParseUint(zone, 10, 32); err == nil {
		return uint32(n)
	}
	if ifi, err := net.InterfaceByName(zone); err == nil {
		return uint32(ifi.Index)
	}
	return 0
}
