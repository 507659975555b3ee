package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestChecker(t *testing.T) {
	c := NewChecker([]string{" Example.com ", "", "service.io"}, zap.NewNop())

	assert.True(t, c.Enabled())
	assert.True(t, c.IsWhitelisted("noreply@example.com"))
	assert.True(t, c.IsWhitelisted("Accounts <accounts@mail.service.io>"))
	assert.False(t, c.IsWhitelisted("someone@notexample.com"))
	assert.False(t, c.IsWhitelisted("not-an-address"))
	assert.False(t, c.Allows("x@other.org"))
}

func TestCheckerWithoutDomainsAllowsEveryone(t *testing.T) {
	c := NewChecker(nil, nil)

	assert.False(t, c.Enabled())
	assert.True(t, c.Allows("anyone@anywhere.test"))
	assert.False(t, c.IsWhitelisted("anyone@anywhere.test"))
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "example.com", Domain("A <a@Example.COM>"))
	assert.Equal(t, "", Domain("a@"))
}
