package probe

import (
	"net"
	"strings"
)

// cgnat is 100.64.0.0/10, used by carrier-grade NAT and most mesh VPNs.
var cgnat = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

var tunnelPrefixes = []string{"tun", "tap", "wg", "ppp", "warp", "utun"}

// behindTunnel reports whether an active interface looks like a VPN or sits
// behind CGNAT, where direct candidates rarely connect.
func behindTunnel() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if isTunnelName(iface.Name) {
			return true
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && cgnat.Contains(ipnet.IP) {
				return true
			}
		}
	}
	return false
}

func isTunnelName(name string) bool {
	name = strings.ToLower(name)
	for _, p := range tunnelPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
