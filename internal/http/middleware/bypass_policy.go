package middleware

import (
	"net"
	"net/http"
	"strings"
)

// BypassEvaluator decides whether a request is exempt from rate limiting
// and, if so, names the reason for the log line.
type BypassEvaluator func(r *http.Request) (bool, string)

// BypassConfig lists the exemptions this service supports: the kubelet
// probe paths, which must never be throttled into failing a health check,
// and operator-configured source networks such as an internal VPN range.
type BypassConfig struct {
	ProbePaths   []string
	TrustedCIDRs []string
}

// NewBypassEvaluator compiles the config into an evaluator. Malformed CIDR
// entries are dropped; when nothing remains there is nothing to evaluate
// and nil is returned so callers can skip the check entirely.
func NewBypassEvaluator(cfg BypassConfig) BypassEvaluator {
	probes := make(map[string]struct{}, len(cfg.ProbePaths))
	for _, p := range cfg.ProbePaths {
		if v := strings.ToLower(strings.TrimSpace(p)); v != "" {
			probes[v] = struct{}{}
		}
	}
	var nets []*net.IPNet
	for _, cidr := range cfg.TrustedCIDRs {
		v := strings.TrimSpace(cidr)
		if v == "" {
			continue
		}
		if _, network, err := net.ParseCIDR(v); err == nil {
			nets = append(nets, network)
		}
	}
	if len(probes) == 0 && len(nets) == 0 {
		return nil
	}

	return func(r *http.Request) (bool, string) {
		if r == nil {
			return false, ""
		}
		if _, ok := probes[strings.ToLower(r.URL.Path)]; ok {
			return true, "probe_path"
		}
		if ip := remoteIP(r); ip != nil {
			for _, network := range nets {
				if network.Contains(ip) {
					return true, "trusted_cidr"
				}
			}
		}
		return false, ""
	}
}

func remoteIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil || host == "" {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	if host == "" {
		return nil
	}
	return net.ParseIP(host)
}
