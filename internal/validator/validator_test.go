package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	v := NewURLValidator()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"https", "https://example.com/some/long/path", "https://example.com/some/long/path"},
		{"http with port", "http://example.com:8080/x?q=1", "http://example.com:8080/x?q=1"},
		{"ftp", "ftp://files.example.org/pub", "ftp://files.example.org/pub"},
		{"ipv4", "http://203.0.113.7/", "http://203.0.113.7/"},
		{"ipv6", "http://[2001:db8::1]/a", "http://[2001:db8::1]/a"},
		{"surrounding whitespace", "  https://example.com  ", "https://example.com"},
		{"missing scheme", "example.com/page", "https://example.com/page"},
		{"missing scheme with port", "example.com:8443/page", "https://example.com:8443/page"},
		{"missing scheme bare host", "sub.example.co.uk", "https://sub.example.co.uk"},
		{"internationalized host", "https://münchen.de/page", "https://münchen.de/page"},
		{"internationalized host without scheme", "bücher.example/x", "https://bücher.example/x"},
		{"punycode host", "https://xn--mnchen-3ya.de/", "https://xn--mnchen-3ya.de/"},
		{"underscore in host", "https://my_site.example.com/", "https://my_site.example.com/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Validate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestValidate_Invalid(t *testing.T) {
	v := NewURLValidator()

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"just text", "not a url"},
		{"scheme only", "https://"},
		{"bad scheme", "gopher://example.com"},
		{"javascript", "javascript:alert(1)"},
		{"bad host", "https://exa!mple.com"},
		{"mailto", "mailto:a@b.com"},
		{"tel", "tel:+15551234"},
		{"data", "data:text/html,hi"},
		{"label starts with hyphen", "https://-example.com"},
		{"too long", "https://example.com/" + strings.Repeat("a", 2048)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.input)
			assert.ErrorIs(t, err, ErrInvalidURL)
		})
	}
}

func TestValidate_Malicious(t *testing.T) {
	v := NewURLValidator().WithBlockedDomains("Evil.Example")

	tests := []struct {
		name  string
		input string
	}{
		{"default deny-list", "https://malicious-site.com/login"},
		{"deny-list case-insensitive", "https://PHISHING-EXAMPLE.org"},
		{"deny-list with port", "http://fake-bank.net:8080/"},
		{"configured deny-list", "https://evil.example/"},
		{"deny-list without scheme", "malicious-site.com/x"},
		{"sql keyword", "https://example.com/?q=1+UNION+SELECT+*"},
		{"sql keyword in path", "https://example.com/drop/table"},
		{"script tag", "https://example.com/<SCRIPT>alert(1)"},
		{"encoded script tag", "https://example.com/%3Cscript%3Ealert(1)"},
		{"scam keyword", "https://example.com/free-bitcoin"},
		{"wallet", "https://example.com/connect?to=Wallet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.input)
			assert.ErrorIs(t, err, ErrMaliciousURL)
		})
	}
}

func TestValidate_DenyListIsExact(t *testing.T) {
	v := NewURLValidator()

	_, err := v.Validate("https://notmalicious-site.com/")
	assert.NoError(t, err)

	_, err = v.Validate("https://sub.malicious-site.com/")
	assert.NoError(t, err)
}

func TestValidate_WholeWordsOnly(t *testing.T) {
	v := NewURLValidator()

	for _, u := range []string{
		"https://example.com/selection",
		"https://example.com/creator",
		"https://example.com/walletless",
	} {
		_, err := v.Validate(u)
		assert.NoError(t, err, u)
	}
}

func TestValidate_PrivateIPs(t *testing.T) {
	open := NewURLValidator()
	strict := NewURLValidator().WithBlockPrivateIPs(true)

	for _, u := range []string{
		"http://localhost:3000/",
		"http://127.0.0.1/",
		"http://10.1.2.3/",
		"http://192.168.0.10/",
		"http://[::1]/",
	} {
		_, err := open.Validate(u)
		assert.NoError(t, err, u)

		_, err = strict.Validate(u)
		assert.ErrorIs(t, err, ErrMaliciousURL, u)
	}
}

func TestValidate_AnyScheme(t *testing.T) {
	v := NewURLValidator().WithAllowedSchemes()

	got, err := v.Validate("gopher://example.com")
	require.NoError(t, err)
	assert.Equal(t, "gopher://example.com", got)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"example.com", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"HTTPS://example.com", "HTTPS://example.com"},
		{"example.com:80", "https://example.com:80"},
		{"example.com:8080/page", "https://example.com:8080/page"},
		{"mailto:a@b.com", "mailto:a@b.com"},
		{"JavaScript:alert(1)", "JavaScript:alert(1)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Sanitize(tt.input), tt.input)
	}
}

func TestValidateCustomCode(t *testing.T) {
	v := NewURLValidator()

	valid := []string{"promo", "my-link", "A_b_C", "abc", strings.Repeat("x", 20)}
	for _, code := range valid {
		assert.NoError(t, v.ValidateCustomCode(code), code)
	}

	invalid := []string{"", "ab", strings.Repeat("x", 21), "has space", "emoji😀", "admin", "Shorten", "qr"}
	for _, code := range invalid {
		assert.ErrorIs(t, v.ValidateCustomCode(code), ErrInvalidCode, code)
	}
}
