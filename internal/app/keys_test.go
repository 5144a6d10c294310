package app

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeyPEM(t *testing.T, key *rsa.PrivateKey, pkcs8 bool) string {
	t.Helper()

	var block *pem.Block
	if pkcs8 {
		der, err := x509.MarshalPKCS8PrivateKey(key)
		require.NoError(t, err)
		block = &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	} else {
		block = &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	}

	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))
	return path
}

func TestLoadSigningKeyPKCS1(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	loaded, err := loadSigningKey(writeKeyPEM(t, key, false))
	require.NoError(t, err)
	assert.True(t, key.Equal(loaded))
}

func TestLoadSigningKeyPKCS8(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	loaded, err := loadSigningKey(writeKeyPEM(t, key, true))
	require.NoError(t, err)
	assert.True(t, key.Equal(loaded))
}

func TestLoadSigningKeyMissingFile(t *testing.T) {
	_, err := loadSigningKey(filepath.Join(t.TempDir(), "absent.pem"))
	assert.Error(t, err)
}

func TestLoadSigningKeyNotPEM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0600))

	_, err := loadSigningKey(path)
	assert.Error(t, err)
}

func TestLoadCertificate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cert.pem")
	content := "-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cert, err := loadCertificate(path)
	require.NoError(t, err)
	assert.Equal(t, content, cert)
}

func TestLoadCertificateEmptyPath(t *testing.T) {
	cert, err := loadCertificate("")
	require.NoError(t, err)
	assert.Empty(t, cert)
}
