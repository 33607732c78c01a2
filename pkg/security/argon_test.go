package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFromPassword(t *testing.T) {
	a := New()

	encoded, err := a.GenerateFromPassword("Abcd123!")
	require.NoError(t, err)

	assert.NotEqual(t, "Abcd123!", encoded)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))
	assert.NotContains(t, encoded, "Abcd123!")
}

func TestGenerateFromPasswordUniqueSalts(t *testing.T) {
	a := New()

	first, err := a.GenerateFromPassword("Abcd123!")
	require.NoError(t, err)

	second, err := a.GenerateFromPassword("Abcd123!")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyPasswd(t *testing.T) {
	a := New()

	encoded, err := a.GenerateFromPassword("Abcd123!")
	require.NoError(t, err)

	ok, err := a.VerifyPasswd("Abcd123!", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.VerifyPasswd("abcd123!", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswdMalformedHash(t *testing.T) {
	a := New()

	_, err := a.VerifyPasswd("Abcd123!", "not-a-phc-string")
	assert.Error(t, err)
}
