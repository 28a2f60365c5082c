package tool

import "net"

// ShareInterfaceFlags reports whether an interface with flags can carry a
// direct TCP share from another host on the LAN. Multicast support is not
// required.
func ShareInterfaceFlags(flags net.Flags) bool {
	if flags&net.FlagUp == 0 {
		return false
	}
	if flags&net.FlagLoopback != 0 {
		return false
	}
	// utun / tun / vpn
	return flags&net.FlagPointToPoint == 0
}

// ShareIPv4s returns the non-loopback IPv4 addresses in addrs.
func ShareIPv4s(addrs []net.Addr) []net.IP {
	var ips []net.IP
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP.To4()
		if ip == nil || ip.IsLoopback() {
			continue
		}
		ips = append(ips, ip)
	}
	return ips
}

// GetLocalIPv4Set is every non-loopback IPv4 address of this host.
func GetLocalIPv4Set() map[string]struct{} {
	result := make(map[string]struct{})

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return result
	}
	for _, ip := range ShareIPv4s(addrs) {
		result[ip.String()] = struct{}{}
	}
	return result
}
