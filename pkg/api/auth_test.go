/*
Copyright 2024 The InfraWeave Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret []byte, sub string, allowedProjects []string, expiresIn time.Duration) string {
	t.Helper()
	c := claims{
		AllowedProjects: allowedProjects,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(secret)
	require.NoError(t, err, "signing token")
	return signed
}

func TestParseTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	signed := signToken(t, secret, "user-1", []string{"proj1", "proj2"}, time.Hour)

	c, err := parseToken(signed, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.Subject)
	if assert.Len(t, c.AllowedProjects, 2) {
		assert.Equal(t, "proj1", c.AllowedProjects[0])
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	signed := signToken(t, []byte("right-secret"), "user-1", []string{"proj1"}, time.Hour)
	_, err := parseToken(signed, []byte("wrong-secret"))
	assert.Error(t, err, "expected signature verification to fail")
}

func TestParseTokenRejectsExpired(t *testing.T) {
	secret := []byte("test-secret")
	signed := signToken(t, secret, "user-1", []string{"proj1"}, -time.Hour)
	_, err := parseToken(signed, secret)
	assert.Error(t, err, "expected expired token to be rejected")
}

func TestParseTokenRejectsNoneAlgorithm(t *testing.T) {
	c := claims{
		AllowedProjects: []string{"proj1"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, c)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err, "signing unsigned token")
	_, err = parseToken(signed, []byte("test-secret"))
	assert.Error(t, err, "expected alg=none token to be rejected")
}
