package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// TrustedProxies matches peers whose forwarding headers are believed.
// A nil *TrustedProxies trusts nobody.
type TrustedProxies struct {
	ips  map[string]struct{}
	nets []*net.IPNet
}

// NewTrustedProxies parses IPs and CIDRs. Invalid entries are logged and
// skipped. Returns nil when nothing valid remains.
func NewTrustedProxies(entries []string, logger *slog.Logger) *TrustedProxies {
	if logger == nil {
		logger = slog.Default()
	}
	ips := make(map[string]struct{})
	var nets []*net.IPNet

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, network, err := net.ParseCIDR(entry)
			if err != nil {
				logger.Warn("invalid trusted proxy CIDR", "entry", entry, "error", err)
				continue
			}
			nets = append(nets, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			logger.Warn("invalid trusted proxy IP", "entry", entry)
			continue
		}
		ips[ip.String()] = struct{}{}
	}

	if len(ips) == 0 && len(nets) == 0 {
		return nil
	}
	return &TrustedProxies{ips: ips, nets: nets}
}

// Contains reports whether ip is a trusted proxy.
func (t *TrustedProxies) Contains(ip net.IP) bool {
	if t == nil || ip == nil {
		return false
	}
	if _, ok := t.ips[ip.String()]; ok {
		return true
	}
	for _, network := range t.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the client address of r. Forwarding headers are only
// consulted when the direct peer is trusted, and the right-most untrusted
// hop wins.
func ClientIP(r *http.Request, trusted *TrustedProxies) string {
	remote := remoteIP(r)
	if remote == nil {
		return ""
	}
	if !trusted.Contains(remote) {
		return remote.String()
	}

	hops := parseForwarded(r.Header.Get("Forwarded"))
	if len(hops) == 0 {
		hops = parseXForwardedFor(r.Header.Get("X-Forwarded-For"))
	}
	if len(hops) == 0 {
		return remote.String()
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if !trusted.Contains(hops[i]) {
			return hops[i].String()
		}
	}
	return hops[0].String()
}

func remoteIP(r *http.Request) net.IP {
	if r == nil {
		return nil
	}
	return parseHostIP(r.RemoteAddr)
}

func parseForwarded(header string) []net.IP {
	var out []net.IP
	for _, part := range strings.Split(header, ",") {
		for _, param := range strings.Split(part, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(k), "for") {
				continue
			}
			if ip := parseHostIP(v); ip != nil {
				out = append(out, ip)
			}
		}
	}
	return out
}

func parseXForwardedFor(header string) []net.IP {
	var out []net.IP
	for _, part := range strings.Split(header, ",") {
		if ip := parseHostIP(part); ip != nil {
			out = append(out, ip)
		}
	}
	return out
}

// parseHostIP accepts "ip", "ip:port", "[v6]:port" and quoted forms.
func parseHostIP(value string) net.IP {
	host := strings.Trim(strings.TrimSpace(value), "\"")
	if host == "" || strings.EqualFold(host, "unknown") {
		return nil
	}
	if strings.HasPrefix(host, "[") {
		if end := strings.Index(host, "]"); end != -1 {
			host = host[1:end]
		}
	} else if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if zone := strings.Index(host, "%"); zone != -1 {
		host = host[:zone]
	}
	return net.ParseIP(host)
}
