package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	svc, err := NewService(&Config{AgePublicKey: pub, AgePrivateKey: priv}, nil)
	require.NoError(t, err)
	assert.True(t, svc.CanEncrypt())
	assert.True(t, svc.CanDecrypt())

	ciphertext, err := svc.EncryptString("my-ssh-passphrase")
	require.NoError(t, err)
	assert.NotEqual(t, "my-ssh-passphrase", ciphertext)

	plaintext, err := svc.DecryptString(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "my-ssh-passphrase", plaintext)
}

func TestEncryptWithoutKey(t *testing.T) {
	svc, err := NewService(&Config{}, nil)
	require.NoError(t, err)
	assert.False(t, svc.CanEncrypt())

	_, err = svc.EncryptString("x")
	assert.ErrorIs(t, err, ErrNoPublicKey)

	_, err = svc.DecryptString("x")
	assert.ErrorIs(t, err, ErrNoPrivateKey)
}

func TestInvalidKeys(t *testing.T) {
	_, err := NewService(&Config{AgePublicKey: "not-a-key"}, nil)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewService(&Config{AgePrivateKey: "not-a-key"}, nil)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestDecryptGarbage(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)
	svc, err := NewService(&Config{AgePublicKey: pub, AgePrivateKey: priv}, nil)
	require.NoError(t, err)

	_, err = svc.DecryptString("%%%not-base64%%%")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}
