package sharesync

import (
	"time"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
)

// Direction names the way data last moved between the local store and the
// share document.
type Direction string

const (
	DirectionPush Direction = "push"
	DirectionPull Direction = "pull"
)

// Callbacks is how the share core reports to the UI layer. Every field is
// optional. Failures inside the core always arrive here; they never stop a
// subscription.
type Callbacks struct {
	// OnStatus reports the share's enabled flag whenever it changes.
	OnStatus func(enabled bool)

	// OnSyncDirection reports every completed push and every applied pull.
	OnSyncDirection func(dir Direction, at time.Time)

	// OnSyncError reports a short user-facing message, e.g. "upload failed: ...".
	OnSyncError func(msg string)

	// OnAuthRequired reports whether a password prompt is needed, and why
	// ("password needed" or "password incorrect").
	OnAuthRequired func(required bool, msg string)

	// OnNameRequired asks the UI to prompt for a display name.
	OnNameRequired func()

	// OnMembersChanged delivers the member list from every snapshot.
	OnMembersChanged func(members []domain.Member)

	// OnAccessDenied reports that this client is banned from the share.
	OnAccessDenied func()

	// OnShareDisabled reports that the share was disabled. The local trip has
	// already been deleted unless this client is the owner.
	OnShareDisabled func(ownerID string)
}

func (c Callbacks) status(enabled bool) {
	if c.OnStatus != nil {
		c.OnStatus(enabled)
	}
}

func (c Callbacks) direction(dir Direction, at time.Time) {
	if c.OnSyncDirection != nil {
		c.OnSyncDirection(dir, at)
	}
}

func (c Callbacks) syncError(msg string) {
	if c.OnSyncError != nil {
		c.OnSyncError(msg)
	}
}

func (c Callbacks) authRequired(required bool, msg string) {
	if c.OnAuthRequired != nil {
		c.OnAuthRequired(required, msg)
	}
}

func (c Callbacks) nameRequired() {
	if c.OnNameRequired != nil {
		c.OnNameRequired()
	}
}

func (c Callbacks) membersChanged(members []domain.Member) {
	if c.OnMembersChanged != nil {
		c.OnMembersChanged(members)
	}
}

func (c Callbacks) accessDenied() {
	if c.OnAccessDenied != nil {
		c.OnAccessDenied()
	}
}

func (c Callbacks) shareDisabled(ownerID string) {
	if c.OnShareDisabled != nil {
		c.OnShareDisabled(ownerID)
	}
}
