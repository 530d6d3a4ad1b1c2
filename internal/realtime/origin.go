package realtime

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// originChecker accepts requests without an Origin header, same-host and
// loopback origins, and any host named in allowed. "*" admits everything.
func originChecker(allowed []string) func(*http.Request) bool {
	hosts := make(map[string]struct{}, len(allowed))
	allowAll := false
	for _, origin := range allowed {
		if strings.TrimSpace(origin) == "*" {
			allowAll = true
			continue
		}
		if host := originHost(origin); host != "" {
			hosts[host] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		host := originHost(origin)
		if _, ok := hosts[host]; ok {
			return true
		}
		return host == originHost(r.Host) || isLoopback(host)
	}
}

// originHost lowercases the host of an origin or host:port, dropping the port.
func originHost(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if strings.Contains(value, "://") {
		parsed, err := url.Parse(value)
		if err != nil {
			return ""
		}
		return strings.ToLower(parsed.Hostname())
	}
	if host, _, err := net.SplitHostPort(value); err == nil {
		value = host
	}
	return strings.ToLower(strings.Trim(value, "[]"))
}

func isLoopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return host == "localhost"
}
