package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/civicmirror/civic-backend/internal/models"
	"github.com/civicmirror/civic-backend/internal/roles"
)

func TestTokenManager_AccessCarriesPrincipal(t *testing.T) {
	manager := NewTokenManager("access", "refresh", time.Minute, time.Hour)
	role := roles.Plumber
	user := &models.User{ID: uuid.New(), IsSuperuser: true, Role: &role}

	pair, _, _, err := manager.GeneratePair(user)
	assert.NoError(t, err)

	principal, err := manager.ParseAccess(pair.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.True(t, principal.IsSuperuser)
	assert.Equal(t, roles.Plumber, principal.Role)
}

func TestTokenManager_RegularUserHasNoRole(t *testing.T) {
	manager := NewTokenManager("access", "refresh", time.Minute, time.Hour)
	user := &models.User{ID: uuid.New()}

	pair, _, _, err := manager.GeneratePair(user)
	assert.NoError(t, err)

	principal, err := manager.ParseAccess(pair.AccessToken)
	assert.NoError(t, err)
	assert.False(t, principal.IsSuperuser)
	assert.Equal(t, roles.None, principal.Role)
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	manager := NewTokenManager("access", "refresh", time.Minute, time.Hour)
	other := NewTokenManager("different", "refresh2", time.Minute, time.Hour)
	user := &models.User{ID: uuid.New()}

	pair, _, _, err := manager.GeneratePair(user)
	assert.NoError(t, err)

	_, err = other.ParseAccess(pair.AccessToken)
	assert.Error(t, err)
}

func TestTokenManager_RefreshRoundTrip(t *testing.T) {
	manager := NewTokenManager("access", "refresh", time.Minute, time.Hour)
	user := &models.User{ID: uuid.New()}

	pair, _, _, err := manager.GeneratePair(user)
	assert.NoError(t, err)

	claims, err := manager.ParseRefresh(pair.RefreshToken)
	assert.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)

	// Access токен не принимается как refresh.
	_, err = manager.ParseRefresh(pair.AccessToken)
	assert.Error(t, err)
}
