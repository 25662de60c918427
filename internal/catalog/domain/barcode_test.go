package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeBarcode(t *testing.T) {
	assert.True(t, LooksLikeBarcode("123456"))
	assert.True(t, LooksLikeBarcode("\t7501010 \r"))
	assert.False(t, LooksLikeBarcode("12345"))
	assert.False(t, LooksLikeBarcode("12 3456"))
	assert.False(t, LooksLikeBarcode(""))
}
