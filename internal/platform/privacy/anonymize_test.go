package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"ipv4", "192.168.1.47", "192.168.1.0"},
		{"ipv4 already network", "10.0.0.0", "10.0.0.0"},
		{"ipv4 mapped ipv6", "::ffff:172.16.50.255", "172.16.50.0"},
		{"ipv6", "2001:db8:85a3::8a2e:370:7334", "2001:db8:85a3::"},
		{"ipv6 zone dropped", "fe80::1%eth0", "fe80::"},
		{"ipv6 loopback", "::1", "::"},
		{"empty", "", "unknown"},
		{"unknown", "unknown", "unknown"},
		{"garbage", "not-an-ip", "invalid"},
		{"partial", "192.168.1", "invalid"},
		{"with port", "192.168.1.1:8080", "invalid"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, AnonymizeIP(tc.input))
		})
	}
}

func TestAnonymizeIP_SameNetworkCollapses(t *testing.T) {
	assert.Equal(t, AnonymizeIP("203.0.113.7"), AnonymizeIP("203.0.113.200"))
	assert.NotEqual(t, AnonymizeIP("203.0.113.7"), AnonymizeIP("203.0.114.7"))
}

func TestMaskRecipient(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"email", "alice@example.com", "a***@example.com"},
		{"email without local part", "@example.com", "***"},
		{"phone", "+48 123 456 789", "***89"},
		{"short number", "1234", "***"},
		{"empty", "  ", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MaskRecipient(tc.input))
		})
	}
}
