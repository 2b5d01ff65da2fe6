package util

import (
	"encoding/binary"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// ValidIpv4 reports whether ip is a usable unicast address for a scenario
// node. Addresses inside the scenario pools (1.0.0.0/8 internet side,
// 7.0.0.0/8 UE side) are reserved for the builder's allocators.
func ValidIpv4(ip string) bool {
	// legal IP address format: 192.168.1.1/24
	re := regexp.MustCompile(`^([0-9]{1,3}\.){3}[0-9]{1,3}(/([8-9]|1[0-9]|2[0-9]|3[0-2]))?$`)

	if !re.MatchString(ip) {
		return false
	}

	ipParts := strings.Split(ip, "/")
	ipAddress := ipParts[0]

	// check each part of the IP address
	parts := strings.Split(ipAddress, ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		if val, err := strconv.Atoi(part); err != nil || val < 0 || val > 255 {
			return false
		}
	}

	// pools owned by the address allocators
	if parts[0] == "1" || parts[0] == "7" {
		return false
	}

	return true
}

// AddressPool hands out consecutive host addresses from a base network,
// the way the framework's address helper does: first call returns .1,
// second .2, and so on.
type AddressPool struct {
	network *net.IPNet
	next    uint32
	limit   uint32
}

func NewAddressPool(base, mask string) (*AddressPool, error) {
	ip := net.ParseIP(base)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("invalid pool base %q", base)
	}
	m := net.IPMask(net.ParseIP(mask).To4())
	if m == nil {
		return nil, fmt.Errorf("invalid pool mask %q", mask)
	}
	ones, bits := m.Size()
	if bits != 32 {
		return nil, fmt.Errorf("invalid pool mask %q", mask)
	}
	hostBits := uint(bits - ones)

	return &AddressPool{
		network: &net.IPNet{IP: ip.Mask(m), Mask: m},
		next:    1,
		limit:   1<<hostBits - 1, // broadcast excluded
	}, nil
}

// Next returns the next address in CIDR notation, or an error once the
// pool is exhausted.
func (p *AddressPool) Next() (string, error) {
	if p.next >= p.limit {
		return "", fmt.Errorf("address pool %s exhausted", p.network.String())
	}
	base := binary.BigEndian.Uint32(p.network.IP.To4())
	addr := make(net.IP, 4)
	binary.BigEndian.PutUint32(addr, base+p.next)
	p.next++

	ones, _ := p.network.Mask.Size()
	return fmt.Sprintf("%s/%d", addr.String(), ones), nil
}

// Network returns the pool's network address in dotted form.
func (p *AddressPool) Network() string {
	return p.network.IP.String()
}

// Mask returns the pool's mask in dotted form.
func (p *AddressPool) Mask() string {
	return net.IP(p.network.Mask).String()
}

// ParseDataRate converts strings like "100Gb/s", "500Mb/s" or "64Kb/s"
// into bits per second.
func ParseDataRate(s string) (uint64, error) {
	val := strings.TrimSuffix(s, "b/s")
	if val == s {
		return 0, fmt.Errorf("invalid data rate %q", s)
	}

	var mult uint64 = 1
	switch {
	case strings.HasSuffix(val, "K"):
		mult = 1000
		val = strings.TrimSuffix(val, "K")
	case strings.HasSuffix(val, "M"):
		mult = 1000 * 1000
		val = strings.TrimSuffix(val, "M")
	case strings.HasSuffix(val, "G"):
		mult = 1000 * 1000 * 1000
		val = strings.TrimSuffix(val, "G")
	}

	n, err := strconv.ParseUint(strings.TrimSpace(val), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid data rate %q: %v", s, err)
	}
	return n * mult, nil
}
