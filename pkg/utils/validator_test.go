package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCurrency(t *testing.T) {
	assert.NoError(t, ValidateCurrency("USD"))
	assert.NoError(t, ValidateCurrency("CNY"))
	assert.Error(t, ValidateCurrency("usd"))
	assert.Error(t, ValidateCurrency("DOLLARS"))
	assert.Error(t, ValidateCurrency(""))
}

func TestValidateAmountCents(t *testing.T) {
	assert.NoError(t, ValidateAmountCents(1))
	assert.Error(t, ValidateAmountCents(0))
	assert.Error(t, ValidateAmountCents(-100))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "office chairs", SanitizeString("office\x00 chairs\x1f"))
	assert.Equal(t, "plain", SanitizeString("plain"))
}
