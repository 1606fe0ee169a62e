package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_New(t *testing.T) {
	for _, typeID := range Types() {
		ch, err := New(typeID, "")
		require.NoError(t, err, typeID)
		assert.NotNil(t, ch)
	}

	_, err := New("ProxyChallengeTypeBogus", "{}")
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = New(TypeLogin, "not json")
	assert.Error(t, err)
}

func TestRegistry_TypesSorted(t *testing.T) {
	ids := Types()
	require.Len(t, ids, 5)
	assert.Contains(t, ids, TypeLogin)
	assert.Contains(t, ids, TypeAdminLogin)
	assert.Contains(t, ids, TypeOTP)
	assert.Contains(t, ids, TypeManualApproval)
	assert.Contains(t, ids, TypeSecretQueryString)
	for i := 1; i < len(ids); i++ {
		assert.LessOrEqual(t, ids[i-1], ids[i])
	}
}
