// Package privacy reduces personal data to what logs and audit events need.
package privacy

import (
	"net/netip"
	"strings"
)

const (
	ipv4Bits = 24
	ipv6Bits = 48
)

// AnonymizeIP keeps the network part of an address: a /24 for IPv4 (and
// IPv4-mapped IPv6) and a /48 for IPv6, e.g. "192.168.1.47" -> "192.168.1.0".
// Empty input yields "unknown" and anything unparseable "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap().WithZone("")

	bits := ipv6Bits
	if addr.Is4() {
		bits = ipv4Bits
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}

// MaskRecipient hides a notification address. Emails keep the first
// character and the domain ("a***@example.com"); anything else is treated
// as a phone number and keeps its last two digits ("***67").
func MaskRecipient(recipient string) string {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return ""
	}
	if at := strings.LastIndex(recipient, "@"); at >= 0 {
		if at == 0 {
			return "***"
		}
		return recipient[:1] + "***" + recipient[at:]
	}

	var digits []byte
	for i := 0; i < len(recipient); i++ {
		if c := recipient[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) < 6 {
		return "***"
	}
	return "***" + string(digits[len(digits)-2:])
}
