package app

import (
	"net"
	"testing"
)

// mockInterface implements networkInterface for testing
type mockInterface struct {
	flags net.Flags
	addrs []net.Addr
	err   error
}

func (m mockInterface) Flags() net.Flags {
	return m.flags
}

func (m mockInterface) Addrs() ([]net.Addr, error) {
	return m.addrs, m.err
}

// mockNetworkProvider implements networkProvider for testing
type mockNetworkProvider struct {
	interfaces []networkInterface
	err        error
}

func (m mockNetworkProvider) Interfaces() ([]networkInterface, error) {
	return m.interfaces, m.err
}

func ipNet(s string) *net.IPNet {
	return &net.IPNet{IP: net.ParseIP(s), Mask: net.CIDRMask(24, 32)}
}

func TestGetPreferredIP(t *testing.T) {
	tests := []struct {
		name     string
		provider mockNetworkProvider
		expected string
	}{
		{
			name:     "network error",
			provider: mockNetworkProvider{err: net.ErrClosed},
			expected: "localhost",
		},
		{
			name: "addrs error",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, err: net.ErrClosed},
			}},
			expected: "localhost",
		},
		{
			name: "interface down",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{addrs: []net.Addr{ipNet("192.168.1.10")}},
			}},
			expected: "localhost",
		},
		{
			name: "ip addr",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{&net.IPAddr{IP: net.ParseIP("192.168.1.100")}}},
			}},
			expected: "192.168.1.100",
		},
		{
			name: "public fallback",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("8.8.8.8")}},
			}},
			expected: "8.8.8.8",
		},
		{
			name: "private preferred",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("8.8.8.8"), ipNet("172.20.0.5")}},
			}},
			expected: "172.20.0.5",
		},
		{
			name: "loopback ip skipped",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("127.0.0.1"), ipNet("192.168.1.50")}},
			}},
			expected: "192.168.1.50",
		},
		{
			name: "ipv6 only",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{&net.IPNet{IP: net.ParseIP("fe80::1")}}},
			}},
			expected: "localhost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getPreferredIP(tt.provider); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestGetPreferredIP_RealNetwork(t *testing.T) {
	ip := getPreferredIP(realNetworkProvider{})

	if ip == "" {
		t.Fatal("expected non-empty IP")
	}
	if ip != "localhost" {
		parsed := net.ParseIP(ip)
		if parsed == nil || parsed.To4() == nil {
			t.Errorf("expected IPv4 address, got: %s", ip)
		}
	}
}

func TestIPv4Of(t *testing.T) {
	tests := []struct {
		name     string
		addr     net.Addr
		expected string
	}{
		{"ipnet", ipNet("10.0.0.7"), "10.0.0.7"},
		{"ipaddr", &net.IPAddr{IP: net.ParseIP("192.168.0.2")}, "192.168.0.2"},
		{"ipv6", &net.IPNet{IP: net.ParseIP("fe80::1")}, ""},
		{"other", &net.TCPAddr{IP: net.ParseIP("10.0.0.1")}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip := ipv4Of(tt.addr)
			got := ""
			if ip != nil {
				got = ip.String()
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
