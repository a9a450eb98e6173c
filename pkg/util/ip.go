package util

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// ParseIPWithMask parses an IP address with CIDR notation
// Returns the IP, mask length, and any error
func ParseIPWithMask(cidr string) (net.IP, int, error) {
	ip, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid CIDR notation: %s", cidr)
	}
	ones, _ := ipNet.Mask.Size()
	return ip, ones, nil
}

// InterfaceAddr joins a host address with the prefix length of subnet, where
// subnet is either CIDR ("10.0.0.0/24") or a dotted mask ("255.255.255.0").
// The result is the interface form "10.0.0.1/24".
func InterfaceAddr(addr, subnet string) (string, error) {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", addr, err)
	}

	var bits int
	if strings.Contains(subnet, "/") {
		pfx, err := netip.ParsePrefix(subnet)
		if err != nil {
			return "", fmt.Errorf("invalid subnet %q: %w", subnet, err)
		}
		bits = pfx.Bits()
	} else {
		mask := net.ParseIP(subnet).To4()
		if mask == nil {
			return "", fmt.Errorf("invalid subnet mask %q", subnet)
		}
		ones, size := net.IPMask(mask).Size()
		if size == 0 {
			return "", fmt.Errorf("non-contiguous subnet mask %q", subnet)
		}
		bits = ones
	}

	return netip.PrefixFrom(ip, bits).String(), nil
}
