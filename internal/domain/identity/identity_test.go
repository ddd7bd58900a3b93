package identity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIdentity(t *testing.T) {
	id := User(7)

	require.NoError(t, id.Validate())
	assert.True(t, id.IsUser())
	assert.False(t, id.IsSession())
	assert.Equal(t, "user:7", id.Key())

	userID, sessionKey := id.Owner()
	require.NotNil(t, userID)
	assert.Equal(t, uint(7), *userID)
	assert.Nil(t, sessionKey)
}

func TestSessionIdentity(t *testing.T) {
	id := Session(" abc ")

	require.NoError(t, id.Validate())
	assert.True(t, id.IsSession())
	assert.Equal(t, "abc", id.SessionKey())
	assert.Equal(t, "session:abc", id.Key())

	userID, sessionKey := id.Owner()
	assert.Nil(t, userID)
	require.NotNil(t, sessionKey)
	assert.Equal(t, "abc", *sessionKey)
}

func TestEmptyIdentityIsRejected(t *testing.T) {
	for _, id := range []Identity{{}, Session(""), User(0)} {
		err := id.Validate()
		assert.True(t, errors.Is(err, ErrIdentityRequired))
		assert.Equal(t, "anonymous", id.String())
	}
}

func TestResolvePrefersUser(t *testing.T) {
	assert.Equal(t, User(3), Resolve(3, "sess"))
	assert.Equal(t, Session("sess"), Resolve(0, "sess"))
}
