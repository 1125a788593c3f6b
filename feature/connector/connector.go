package connector

import "context"

// RoleChange is the minimal delta to apply to one remote user.
type RoleChange struct {
	ToAdd    []string
	ToRemove []string
}

// Empty reports whether the change would touch nothing.
func (c RoleChange) Empty() bool {
	return len(c.ToAdd) == 0 && len(c.ToRemove) == 0
}

// Connector adapts one remote community system (a Discord server, a forum)
// to the reconciliation engine. Implementations are safe for concurrent use.
type Connector interface {
	// GetAllUsersWithRoles returns every known remote user id mapped to the
	// managed role names the user currently holds.
	GetAllUsersWithRoles(ctx context.Context) (map[int64][]string, error)

	// GetRolesForUser returns the managed role names one user holds. The
	// bool is false when the user is not present on the remote system.
	GetRolesForUser(ctx context.Context, userID int64) ([]string, bool, error)

	// ChangeRoles applies the given per-user deltas.
	ChangeRoles(ctx context.Context, changes map[int64]RoleChange) error

	// SetCharacterNames publishes the user's character names, sorted by the
	// caller; implementations decide how to surface them (nickname, profile
	// field) and may ignore the call entirely.
	SetCharacterNames(ctx context.Context, userID int64, names []string) error

	// DeleteInactiveUsers removes the given users from the remote system and
	// returns how many were actually removed.
	DeleteInactiveUsers(ctx context.Context, userIDs []int64, reason string) (int, error)

	// DeleteUsersAfterInactiveDays is the pruning window configured for this
	// system. Zero disables inactivity pruning.
	DeleteUsersAfterInactiveDays() int

	// Close releases remote resources held by the connector.
	Close() error
}
