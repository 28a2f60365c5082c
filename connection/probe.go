package connection

import (
	"net"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/moyoez/sharesession/tool"
)

// Probe sends one ICMP echo to the host part of addr and reports whether a
// reply came back within timeout.
func Probe(addr string, timeout time.Duration) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	pinger, err := probing.NewPinger(host)
	if err != nil {
		tool.DefaultLogger.Warnf("[Probe] Failed to create pinger for %s: %v", host, err)
		return false
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(false)
	if err := pinger.Run(); err != nil {
		tool.DefaultLogger.Warnf("[Probe] Ping %s failed: %v", host, err)
		return false
	}
	stats := pinger.Statistics()
	tool.DefaultLogger.Debugf("[Probe] %s: %d/%d replies, rtt %v", host, stats.PacketsRecv, stats.PacketsSent, stats.AvgRtt)
	return stats.PacketsRecv > 0
}
