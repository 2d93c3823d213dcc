package app

import "net"

// networkInterface is the part of net.Interface LAN detection reads
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags           { return r.iface.Flags }
func (r realInterface) Addrs() ([]net.Addr, error) { return r.iface.Addrs() }

// networkProvider lists interfaces; tests substitute fixed ones
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP picks the IPv4 address phones on the same network should use
// for join links. Private addresses win over public ones; with neither it
// returns localhost.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var fallback net.IP
	for _, iface := range ifaces {
		if flags := iface.Flags(); flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ip := ipv4Of(addr)
			if ip == nil || ip.IsLoopback() {
				continue
			}
			if ip.IsPrivate() {
				return ip.String()
			}
			if fallback == nil {
				fallback = ip
			}
		}
	}

	if fallback != nil {
		return fallback.String()
	}
	return "localhost"
}

// ipv4Of returns the IPv4 address carried by addr, or nil
func ipv4Of(addr net.Addr) net.IP {
	var ip net.IP
	switch v := addr.(type) {
	case *net.IPNet:
		ip = v.IP
	case *net.IPAddr:
		ip = v.IP
	}
	return ip.To4()
}
