package share

import (
	"fmt"
	"net"
	"strconv"

	"github.com/moyoez/sharesession/tool"
	"github.com/moyoez/sharesession/types"
)

// GetNetworkInfos lists the local IPv4 addresses a peer could dial to reach
// a Service listening on port. Tunnel and loopback interfaces are skipped.
// The number is the last octet, so 192.168.3.12 becomes #12.
func GetNetworkInfos(port int) []types.NetworkInfo {
	var result []types.NetworkInfo

	interfaces, err := net.Interfaces()
	if err != nil {
		tool.DefaultLogger.Errorf("[Network] Failed to get network interfaces: %v", err)
		return result
	}

	for _, iface := range interfaces {
		if !tool.ShareInterfaceFlags(iface.Flags) {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, ip := range tool.ShareIPv4s(addrs) {
			lastOctet := int(ip[3])
			result = append(result, types.NetworkInfo{
				InterfaceName: iface.Name,
				IPAddress:     ip.String(),
				Number:        fmt.Sprintf("#%d", lastOctet),
				NumberInt:     lastOctet,
				ShareAddress:  net.JoinHostPort(ip.String(), strconv.Itoa(port)),
			})
		}
	}
	return result
}
