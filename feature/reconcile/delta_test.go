package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guildsync/feature/roster/models"
)

func deltaSyncer(formerMemberGroup *string, managed ...string) *Syncer {
	return &Syncer{
		system:    models.RemoteSystem{MemberGroup: "member", FormerMemberGroup: formerMemberGroup},
		allGroups: NewGroupSet(managed...),
	}
}

func str(s string) *string { return &s }

func TestCalculateRoleChange_NotPresent(t *testing.T) {
	s := deltaSyncer(nil, "member")
	assert.Nil(t, s.calculateRoleChange(nil, false, NewGroupSet("member")))
}

func TestCalculateRoleChange_MissingOfficerRole(t *testing.T) {
	s := deltaSyncer(nil, "member", "officer")

	change := s.calculateRoleChange([]string{"member"}, true, NewGroupSet("member", "officer"))
	require.NotNil(t, change)
	assert.Equal(t, []string{"officer"}, change.ToAdd)
	assert.Empty(t, change.ToRemove)
}

func TestCalculateRoleChange_MemberLeft(t *testing.T) {
	s := deltaSyncer(str("alumni"), "member", "officer")

	change := s.calculateRoleChange([]string{"member", "officer"}, true, NewGroupSet())
	require.NotNil(t, change)
	assert.Equal(t, []string{"alumni"}, change.ToAdd)
	assert.ElementsMatch(t, []string{"member", "officer"}, change.ToRemove)
}

func TestCalculateRoleChange_MemberLeftNoFormerGroup(t *testing.T) {
	s := deltaSyncer(nil, "member")

	change := s.calculateRoleChange([]string{"member"}, true, NewGroupSet())
	require.NotNil(t, change)
	assert.Empty(t, change.ToAdd)
	assert.Equal(t, []string{"member"}, change.ToRemove)
}

func TestCalculateRoleChange_ReturningFormerMemberLosesMarker(t *testing.T) {
	s := deltaSyncer(str("alumni"), "member")

	change := s.calculateRoleChange([]string{"alumni"}, true, NewGroupSet("member"))
	require.NotNil(t, change)
	assert.Equal(t, []string{"member"}, change.ToAdd)
	assert.Equal(t, []string{"alumni"}, change.ToRemove,
		"the former-member marker is cleared even though it is outside the managed universe")
}

func TestCalculateRoleChange_UnmanagedRolesUntouched(t *testing.T) {
	s := deltaSyncer(nil, "member")

	change := s.calculateRoleChange([]string{"member", "dj", "admin"}, true, NewGroupSet("member"))
	require.NotNil(t, change)
	assert.Empty(t, change.ToAdd)
	assert.Empty(t, change.ToRemove)
}

func TestCalculateRoleChange_AddAndRemoveDisjoint(t *testing.T) {
	s := deltaSyncer(str("alumni"), "member", "officer", "raider")

	change := s.calculateRoleChange([]string{"member", "raider", "alumni"}, true, NewGroupSet("member", "officer"))
	require.NotNil(t, change)
	assert.Equal(t, []string{"officer"}, change.ToAdd)
	assert.ElementsMatch(t, []string{"raider", "alumni"}, change.ToRemove)
	for _, added := range change.ToAdd {
		assert.NotContains(t, change.ToRemove, added)
	}
}

func TestCalculateRoleChange_Idempotent(t *testing.T) {
	s := deltaSyncer(str("alumni"), "member", "officer", "raider")
	expected := NewGroupSet("member", "officer")

	actual := []string{"member", "raider", "alumni", "unmanaged"}
	change := s.calculateRoleChange(actual, true, expected)
	require.NotNil(t, change)

	applied := NewGroupSet(actual...)
	for _, name := range change.ToRemove {
		delete(applied, name)
	}
	for _, name := range change.ToAdd {
		applied.Add(name)
	}

	again := s.calculateRoleChange(applied.Names(), true, expected)
	require.NotNil(t, again)
	assert.True(t, again.Empty(), "recomputing after applying the change must be a no-op")
}

func TestCalculateRoleChange_InSyncIsEmptyButPresent(t *testing.T) {
	s := deltaSyncer(nil, "member", "officer")

	change := s.calculateRoleChange([]string{"member", "officer"}, true, NewGroupSet("member", "officer"))
	require.NotNil(t, change, "an empty change is distinct from not-applicable")
	assert.True(t, change.Empty())
}
