package reconcile

import "guildsync/feature/connector"

// calculateRoleChange computes the minimal delta from the user's actual
// roles to the expected set. Returns nil when the user is not present on the
// remote system (nothing can be changed). Only roles inside the managed
// universe are ever touched, with one exception: a configured former-member
// marker is removed from a returning member even though it lies outside the
// managed universe.
func (s *Syncer) calculateRoleChange(allActualRoles []string, present bool, expectedRoles GroupSet) *connector.RoleChange {
	if !present {
		return nil
	}

	actualAll := NewGroupSet(allActualRoles...)
	actualManaged := NewGroupSet()
	for name := range actualAll {
		if s.allGroups.Has(name) {
			actualManaged.Add(name)
		}
	}

	if len(expectedRoles) == 0 && len(actualManaged) > 0 {
		// User left the guild: strip every managed role, mark as former
		// member when a marker group is configured.
		change := &connector.RoleChange{ToRemove: actualManaged.Names()}
		if s.system.FormerMemberGroup != nil {
			change.ToAdd = []string{*s.system.FormerMemberGroup}
		}
		return change
	}

	toAdd := NewGroupSet()
	for name := range expectedRoles {
		if !actualManaged.Has(name) {
			toAdd.Add(name)
		}
	}
	toRemove := NewGroupSet()
	for name := range actualManaged {
		if !expectedRoles.Has(name) {
			toRemove.Add(name)
		}
	}
	if s.system.FormerMemberGroup != nil && actualAll.Has(*s.system.FormerMemberGroup) {
		toRemove.Add(*s.system.FormerMemberGroup)
	}
	return &connector.RoleChange{ToAdd: toAdd.Names(), ToRemove: toRemove.Names()}
}
