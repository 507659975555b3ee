package whitelist

import (
	"net/mail"
	"strings"

	"go.uber.org/zap"
)

// Checker decides which sender domains may drive a verification task
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new whitelist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalizedDomains := make([]string, 0, len(domains))
	for _, domain := range domains {
		d := strings.ToLower(strings.TrimSpace(domain))
		if d != "" {
			normalizedDomains = append(normalizedDomains, d)
		}
	}

	if len(normalizedDomains) > 0 && logger != nil {
		logger.Info("Initialized sender whitelist", zap.Strings("domains", normalizedDomains))
	}

	return &Checker{
		domains: normalizedDomains,
		logger:  logger,
	}
}

// Enabled reports whether any domain is configured
func (c *Checker) Enabled() bool {
	return c != nil && len(c.domains) > 0
}

// Allows reports whether the sender may be used. With no domains configured every sender is allowed.
func (c *Checker) Allows(sender string) bool {
	if !c.Enabled() {
		return true
	}
	return c.IsWhitelisted(sender)
}

// IsWhitelisted checks if the sender's domain, or a parent of it, is in the whitelist
func (c *Checker) IsWhitelisted(sender string) bool {
	if c == nil || len(c.domains) == 0 {
		return false
	}

	domain := Domain(sender)
	if domain == "" {
		return false
	}

	for _, whitelisted := range c.domains {
		if whitelisted == domain || strings.HasSuffix(domain, "."+whitelisted) {
			if c.logger != nil {
				c.logger.Debug("Domain is whitelisted",
					zap.String("domain", domain),
					zap.String("sender", sender))
			}
			return true
		}
	}

	return false
}

// Domain returns the lower-cased domain of an address, accepting "Name <a@b>" forms
func Domain(sender string) string {
	addr := strings.TrimSpace(sender)
	if parsed, err := mail.ParseAddress(addr); err == nil {
		addr = parsed.Address
	}

	parts := strings.Split(addr, "@")
	if len(parts) != 2 || parts[1] == "" {
		return ""
	}
	return strings.ToLower(parts[1])
}
