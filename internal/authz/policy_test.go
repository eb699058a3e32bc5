package authz_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"marketplace-api/internal/authz"
	"marketplace-api/internal/model"
)

func TestCanPublishSessions(t *testing.T) {
	assert.False(t, authz.CanPublishSessions(nil))
	assert.False(t, authz.CanPublishSessions(&authz.Caller{ID: uuid.New(), Role: model.RoleUser}))
	assert.True(t, authz.CanPublishSessions(&authz.Caller{ID: uuid.New(), Role: model.RoleCreator}))
}

func TestCanManageSession(t *testing.T) {
	owner := &authz.Caller{ID: uuid.New(), Role: model.RoleCreator}
	session := &model.Session{ID: uuid.New(), CreatorID: owner.ID}

	assert.True(t, authz.CanManageSession(owner, session))
	assert.False(t, authz.CanManageSession(nil, session))
	assert.False(t, authz.CanManageSession(owner, nil))

	// another creator does not own this instance
	assert.False(t, authz.CanManageSession(&authz.Caller{ID: uuid.New(), Role: model.RoleCreator}, session))

	// the owner demoted to USER could not manage it either
	assert.False(t, authz.CanManageSession(&authz.Caller{ID: owner.ID, Role: model.RoleUser}, session))
}

func TestCanViewBooking(t *testing.T) {
	booker := &authz.Caller{ID: uuid.New(), Role: model.RoleUser}
	creator := &authz.Caller{ID: uuid.New(), Role: model.RoleCreator}
	booking := &model.BookingDetails{ID: uuid.New(), UserID: booker.ID, CreatorID: creator.ID}

	assert.True(t, authz.CanViewBooking(booker, booking))
	assert.True(t, authz.CanViewBooking(creator, booking))
	assert.False(t, authz.CanViewBooking(nil, booking))
	assert.False(t, authz.CanViewBooking(&authz.Caller{ID: uuid.New(), Role: model.RoleUser}, booking))
	assert.False(t, authz.CanViewBooking(&authz.Caller{ID: uuid.New(), Role: model.RoleCreator}, booking))
}

func TestCanCancelBooking(t *testing.T) {
	booker := &authz.Caller{ID: uuid.New(), Role: model.RoleUser}
	creator := &authz.Caller{ID: uuid.New(), Role: model.RoleCreator}
	booking := &model.BookingDetails{ID: uuid.New(), UserID: booker.ID, CreatorID: creator.ID}

	assert.True(t, authz.CanCancelBooking(booker, booking))

	// even the session's creator cannot cancel on the booker's behalf
	assert.False(t, authz.CanCancelBooking(creator, booking))
	assert.False(t, authz.CanCancelBooking(nil, booking))
}
