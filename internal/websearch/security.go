package websearch

// security.go validates outbound URLs before fetching.
//
// Search results come from an external engine and page URLs are effectively
// attacker-controlled, so every fetch target is checked against internal
// hostnames, cloud metadata endpoints, and private IP ranges before a
// request is made.

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Validator checks URLs for SSRF risk.
type Validator struct {
	allowedSchemes []string
	allowPrivate   bool // set in tests to reach loopback servers
}

// NewValidator creates a Validator with the default policy.
func NewValidator() *Validator {
	return &Validator{allowedSchemes: []string{"http", "https"}}
}

// ValidateURL reports whether a URL is safe to fetch.
// Checks scheme, hostname, and every resolved IP address.
func (v *Validator) ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !slices.Contains(v.allowedSchemes, scheme) {
		return fmt.Errorf("disallowed protocol: %s (only http/https allowed)", parsed.Scheme)
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return fmt.Errorf("invalid hostname")
	}

	if v.allowPrivate {
		return nil
	}

	if isDangerousHostname(hostname) {
		slog.Warn("blocked fetch of internal hostname",
			"url", urlStr,
			"hostname", hostname,
			"security_event", "ssrf_dangerous_hostname")
		return fmt.Errorf("access denied: internal networks and metadata services are not allowed")
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return fmt.Errorf("unable to resolve hostname: %w", err)
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			slog.Warn("blocked fetch of private IP",
				"url", urlStr,
				"hostname", hostname,
				"resolved_ip", ip.String(),
				"security_event", "ssrf_private_ip")
			return fmt.Errorf("access denied: internal network IP %s is not allowed", ip.String())
		}
	}

	return nil
}

// NewSafeClient creates an HTTP client that re-validates every redirect.
func (v *Validator) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			if err := v.ValidateURL(req.URL.String()); err != nil {
				return fmt.Errorf("redirect to unsafe URL: %w", err)
			}
			return nil
		},
	}
}

// isDangerousHostname checks for local hostnames and metadata endpoints.
func isDangerousHostname(hostname string) bool {
	hostname = strings.ToLower(hostname)

	localHostnames := []string{"localhost", "127.0.0.1", "::1", "0.0.0.0"}
	if slices.Contains(localHostnames, hostname) {
		return true
	}

	metadataEndpoints := []string{
		"169.254.169.254", // AWS, Azure, GCP
		"metadata.google.internal",
		"metadata",
	}
	for _, endpoint := range metadataEndpoints {
		if hostname == endpoint || strings.Contains(hostname, endpoint) {
			return true
		}
	}
	return false
}

// isPrivateIP checks private, loopback, link-local, and reserved ranges.
func isPrivateIP(ip net.IP) bool {
	privateIPv4Ranges := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"0.0.0.0/8",
		"224.0.0.0/4",
		"240.0.0.0/4",
	}
	for _, cidr := range privateIPv4Ranges {
		_, subnet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if subnet.Contains(ip) {
			return true
		}
	}

	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}

	// IPv6 Unique Local Address fc00::/7
	if len(ip) == net.IPv6len && (ip[0] == 0xfc || ip[0] == 0xfd) {
		return true
	}
	return false
}
