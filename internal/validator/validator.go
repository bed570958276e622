package validator

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var (
	ErrInvalidURL   = errors.New("invalid url")
	ErrMaliciousURL = errors.New("malicious url")
	ErrInvalidCode  = errors.New("invalid short code")
)

// DefaultBlockedDomains are hosts rejected regardless of configuration
var DefaultBlockedDomains = []string{
	"malicious-site.com",
	"phishing-example.org",
	"fake-bank.net",
}

// DefaultSuspiciousPatterns flag injection attempts and scam bait in the raw URL text
var DefaultSuspiciousPatterns = []string{
	`\b(?:union|select|insert|delete|update|drop|create|alter)\b`,
	`<script`,
	`\b(?:bitcoin|cryptocurrency|wallet)\b`,
}

var (
	schemePrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
	hostLabel    = regexp.MustCompile(`^[a-zA-Z0-9_]([a-zA-Z0-9_-]{0,61}[a-zA-Z0-9_])?$`)
	codeFormat   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// hostProfile maps internationalized hosts to their ASCII form. Underscores
// are allowed since real hostnames carry them.
var hostProfile = idna.New(idna.MapForLookup(), idna.StrictDomainName(false), idna.Transitional(false))

// opaqueSchemes never carry a host, so https:// is not prepended to them
var opaqueSchemes = map[string]struct{}{
	"mailto":     {},
	"javascript": {},
	"data":       {},
	"tel":        {},
}

// reserved route words that cannot be claimed as custom codes
var reserved = []string{"api", "admin", "health", "shorten", "stats", "static", "preview", "qr"}

// URLValidator admits URLs that are well-formed and not flagged as malicious
type URLValidator struct {
	maxLength       int
	allowedSchemes  []string
	blockedDomains  map[string]struct{}
	patterns        []*regexp.Regexp
	blockPrivateIPs bool
}

// NewURLValidator creates a validator with default settings
func NewURLValidator() *URLValidator {
	v := &URLValidator{
		maxLength:      2048,
		allowedSchemes: []string{"http", "https", "ftp"},
		blockedDomains: make(map[string]struct{}),
	}
	v.WithBlockedDomains(DefaultBlockedDomains...)
	v.WithPatterns(DefaultSuspiciousPatterns...)
	return v
}

// Validate runs sanitize, syntactic validation and the safety check in that
// order and returns the normalized URL.
func (v *URLValidator) Validate(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("%w: url is empty", ErrInvalidURL)
	}

	normalized := rawURL
	if err := v.checkSyntax(rawURL); err != nil {
		sanitized := Sanitize(rawURL)
		if sanitized == rawURL {
			return "", err
		}
		if err := v.checkSyntax(sanitized); err != nil {
			return "", err
		}
		normalized = sanitized
	}

	if err := v.CheckSafety(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// Sanitize prepends https:// when the URL carries no scheme.
// host:port input is treated as schemeless.
func Sanitize(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" || schemePrefix.MatchString(rawURL) || hasOpaqueScheme(rawURL) {
		return rawURL
	}
	return "https://" + rawURL
}

func hasOpaqueScheme(rawURL string) bool {
	i := strings.IndexByte(rawURL, ':')
	if i <= 0 {
		return false
	}
	_, ok := opaqueSchemes[strings.ToLower(rawURL[:i])]
	return ok
}

// CheckSafety rejects deny-listed hosts and URLs matching a suspicious pattern
func (v *URLValidator) CheckSafety(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err == nil {
		host := strings.ToLower(parsed.Hostname())
		if v.isBlockedDomain(host) || v.isBlockedDomain(strings.ToLower(parsed.Host)) {
			return fmt.Errorf("%w: domain %s is blocked", ErrMaliciousURL, host)
		}
		if v.blockPrivateIPs && isPrivateHost(host) {
			return fmt.Errorf("%w: private or local address", ErrMaliciousURL)
		}
	}

	texts := []string{rawURL}
	if unescaped, err := url.PathUnescape(rawURL); err == nil && unescaped != rawURL {
		texts = append(texts, unescaped)
	}
	for _, pattern := range v.patterns {
		for _, text := range texts {
			if pattern.MatchString(text) {
				return fmt.Errorf("%w: suspicious content", ErrMaliciousURL)
			}
		}
	}
	return nil
}

// ValidateShortCode validates a short code format
func (v *URLValidator) ValidateShortCode(code string) error {
	if code == "" {
		return fmt.Errorf("%w: code is empty", ErrInvalidCode)
	}

	if len(code) < 3 || len(code) > 20 {
		return fmt.Errorf("%w: must be between 3 and 20 characters", ErrInvalidCode)
	}

	if !codeFormat.MatchString(code) {
		return fmt.Errorf("%w: only letters, numbers, hyphens, and underscores are allowed", ErrInvalidCode)
	}

	return nil
}

// ValidateCustomCode validates a user-chosen short code
func (v *URLValidator) ValidateCustomCode(code string) error {
	for _, r := range reserved {
		if strings.EqualFold(code, r) {
			return fmt.Errorf("%w: %q is reserved", ErrInvalidCode, code)
		}
	}

	return v.ValidateShortCode(code)
}

// ============================================================
// HELPER METHODS
// ============================================================

func (v *URLValidator) checkSyntax(rawURL string) error {
	if len(rawURL) > v.maxLength {
		return fmt.Errorf("%w: exceeds maximum length of %d characters", ErrInvalidURL, v.maxLength)
	}
	if strings.ContainsAny(rawURL, " \t\r\n") {
		return fmt.Errorf("%w: contains whitespace", ErrInvalidURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: could not be parsed", ErrInvalidURL)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%w: scheme and host are required", ErrInvalidURL)
	}

	if !v.isAllowedScheme(parsed.Scheme) {
		return fmt.Errorf("%w: scheme %s is not allowed", ErrInvalidURL, parsed.Scheme)
	}

	if !isValidHost(parsed.Hostname()) {
		return fmt.Errorf("%w: host %q is not valid", ErrInvalidURL, parsed.Hostname())
	}

	return nil
}

func (v *URLValidator) isAllowedScheme(scheme string) bool {
	if len(v.allowedSchemes) == 0 {
		return true
	}
	scheme = strings.ToLower(scheme)
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

func (v *URLValidator) isBlockedDomain(host string) bool {
	_, blocked := v.blockedDomains[host]
	return blocked
}

func isValidHost(host string) bool {
	if host == "" {
		return false
	}
	if net.ParseIP(host) != nil {
		return true
	}

	host, err := hostProfile.ToASCII(strings.TrimSuffix(host, "."))
	if err != nil || host == "" {
		return false
	}
	if len(host) > 253 {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if !hostLabel.MatchString(label) {
			return false
		}
	}
	return true
}

func isPrivateHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}

// ============================================================
// CONFIGURATION METHODS
// ============================================================

// WithMaxLength sets maximum URL length
func (v *URLValidator) WithMaxLength(length int) *URLValidator {
	v.maxLength = length
	return v
}

// WithAllowedSchemes replaces the accepted schemes; empty accepts any
func (v *URLValidator) WithAllowedSchemes(schemes ...string) *URLValidator {
	v.allowedSchemes = nil
	for _, s := range schemes {
		v.allowedSchemes = append(v.allowedSchemes, strings.ToLower(s))
	}
	return v
}

// WithBlockedDomains adds domains to block list
func (v *URLValidator) WithBlockedDomains(domains ...string) *URLValidator {
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			v.blockedDomains[d] = struct{}{}
		}
	}
	return v
}

// WithPatterns adds case-insensitive suspicious content patterns.
// It panics on an invalid expression, like regexp.MustCompile.
func (v *URLValidator) WithPatterns(patterns ...string) *URLValidator {
	for _, p := range patterns {
		v.patterns = append(v.patterns, regexp.MustCompile(`(?i)`+p))
	}
	return v
}

// WithBlockPrivateIPs rejects loopback, private and link-local hosts
func (v *URLValidator) WithBlockPrivateIPs(block bool) *URLValidator {
	v.blockPrivateIPs = block
	return v
}
