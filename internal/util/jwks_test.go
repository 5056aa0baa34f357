package util

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func TestJWKPEM_EC(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	key := JWK{Kty: "EC", Crv: "P-256", Alg: "ES256", Use: "sig", X: b64(priv.X.Bytes()), Y: b64(priv.Y.Bytes())}
	pemKey, err := key.PEM()
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodES256, &Claims{
		Email: "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(priv)
	require.NoError(t, err)

	claims, err := ValidateJWT(signed, string(pemKey))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
}

func TestJWKPEM_RSA(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	key := JWK{Kty: "RSA", Alg: "RS256", N: b64(priv.N.Bytes()), E: b64(big.NewInt(int64(priv.E)).Bytes())}
	pemKey, err := key.PEM()
	require.NoError(t, err)

	pub, err := ParseRSAPublicKey(string(pemKey))
	require.NoError(t, err)
	assert.Equal(t, priv.E, pub.E)
	assert.Equal(t, 0, priv.N.Cmp(pub.N))
}

func TestJWKPEM_Unsupported(t *testing.T) {
	_, err := JWK{Kty: "oct"}.PEM()
	assert.Error(t, err)

	_, err = JWK{Kty: "EC", Crv: "P-384"}.PEM()
	assert.Error(t, err)
}

func TestJWKSSigningKey(t *testing.T) {
	set := JWKS{Keys: []JWK{{Kty: "RSA", Use: "enc"}, {Kty: "EC", Use: "sig", Kid: "k2"}}}
	k, err := set.SigningKey()
	require.NoError(t, err)
	assert.Equal(t, "k2", k.Kid)

	_, err = JWKS{}.SigningKey()
	assert.Error(t, err)
}
