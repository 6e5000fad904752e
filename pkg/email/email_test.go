package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "buyer@centcom.mil", Fold("  Buyer@CENTCOM.MIL "))
	assert.Equal(t, "x@y.gov", Fold("x@y.gov"))
}

func TestHasAllowedDomain(t *testing.T) {
	allowed := []string{".mil", ".gov"}

	assert.True(t, HasAllowedDomain("officer@af.mil", allowed))
	assert.True(t, HasAllowedDomain("Officer@PENTAGON.GOV", allowed))
	assert.True(t, HasAllowedDomain("buyer@procurement.state.gov", allowed))

	assert.False(t, HasAllowedDomain("someone@gmail.com", allowed))
	assert.False(t, HasAllowedDomain("trailing@mil.example.com", allowed))
	assert.False(t, HasAllowedDomain("no-at-sign.mil", allowed))
	assert.False(t, HasAllowedDomain("dangling@", allowed))
	assert.False(t, HasAllowedDomain("officer@af.mil", nil))
}

func TestHasAllowedDomainBareSuffix(t *testing.T) {
	// Suffixes may be configured with or without the leading dot.
	assert.True(t, HasAllowedDomain("officer@af.mil", []string{"mil"}))
	assert.True(t, HasAllowedDomain("officer@mil", []string{"mil"}))
}

func TestDeriveDisplayName(t *testing.T) {
	assert.Equal(t, "John Mitchell", DeriveDisplayName("john.mitchell@af.mil"))
	assert.Equal(t, "Jane Doe", DeriveDisplayName("jane_doe@pentagon.gov"))
	assert.Equal(t, "Procurement", DeriveDisplayName("procurement@navy.mil"))
	assert.Equal(t, "Customer", DeriveDisplayName("@navy.mil"))
}
