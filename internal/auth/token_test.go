package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/models"
)

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	u := &models.User{ID: bson.NewObjectID(), Role: models.RoleRoomOwner}

	tok, exp, err := iss.Issue(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	uid, claims, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, uid)
	assert.Equal(t, models.RoleRoomOwner, claims.Role)
	assert.Equal(t, u.ID.Hex(), claims.Subject)
}

func TestParseRejectsExpired(t *testing.T) {
	iss := NewIssuer("secret", time.Minute)
	tok, _, err := iss.Issue(&models.User{ID: bson.NewObjectID()})
	require.NoError(t, err)

	iss.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, err = iss.Parse(tok)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseRejectsWrongSecretAndAlg(t *testing.T) {
	tok, _, err := NewIssuer("one", time.Hour).Issue(&models.User{ID: bson.NewObjectID()})
	require.NoError(t, err)
	_, _, err = NewIssuer("two", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"uid": bson.NewObjectID().Hex()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, _, err = NewIssuer("one", time.Hour).Parse(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = NewIssuer("one", time.Hour).Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokens(t *testing.T) {
	a, err := NewRefreshToken()
	require.NoError(t, err)
	b, _ := NewRefreshToken()
	assert.NotEqual(t, a, b)
	assert.False(t, strings.ContainsAny(a, "+/="))

	assert.Len(t, HashToken(a), 64)
	assert.Equal(t, HashToken(a), HashToken(a))
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
