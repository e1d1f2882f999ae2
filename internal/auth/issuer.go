package auth

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// tenantPattern restricts tenant identifiers to DNS-label characters so the
// derived issuer URL is always a valid host.
var tenantPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// IssuerURL derives the identity provider issuer URL from a tenant identifier,
// following the documented `https://<tenant>.<domain>/oauth2/default` pattern.
func IssuerURL(tenant, domain string) (string, error) {
	tenant = strings.ToLower(strings.TrimSpace(tenant))
	if !tenantPattern.MatchString(tenant) {
		return "", fmt.Errorf("invalid tenant identifier %q", tenant)
	}
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return "", fmt.Errorf("issuer domain is empty")
	}
	return fmt.Sprintf("https://%s.%s/oauth2/default", tenant, domain), nil
}

// ValidateIssuer checks that issuer matches the URL IssuerURL would derive for
// tenant and domain. It guards against configuration drift between the
// security-integration statement and the identity provider setup.
func ValidateIssuer(issuer, tenant, domain string) error {
	want, err := IssuerURL(tenant, domain)
	if err != nil {
		return err
	}

	u, err := url.Parse(issuer)
	if err != nil {
		return fmt.Errorf("invalid issuer URL %q: %w", issuer, err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("issuer URL %q must use https", issuer)
	}
	if strings.TrimRight(issuer, "/") != want {
		return fmt.Errorf("issuer URL %q does not match derived %q", issuer, want)
	}
	return nil
}
