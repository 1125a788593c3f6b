package reconcile

import (
	"sort"

	"guildsync/feature/roster/models"
)

// GroupSet is a set of group names.
type GroupSet map[string]struct{}

func NewGroupSet(names ...string) GroupSet {
	set := make(GroupSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func (s GroupSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s GroupSet) Add(name string) {
	s[name] = struct{}{}
}

// Names returns the set's members in sorted order.
func (s GroupSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildRankGroups resolves the rank-range rules of one remote system into a
// total mapping from every rank in [0, maxRankSeen] to the group names that
// apply at that rank. Ranges are inclusive on both ends; overlapping rules
// all contribute their group. Every mapped rank carries at least the member
// group. An empty rule set yields an empty map and callers fall back to the
// member group alone.
func BuildRankGroups(rules []models.RankToGroup, memberGroup string) map[uint8]GroupSet {
	if len(rules) == 0 {
		return map[uint8]GroupSet{}
	}
	var maxRank uint8
	for _, rule := range rules {
		if rule.GuildRankTo > maxRank {
			maxRank = rule.GuildRankTo
		}
	}
	result := make(map[uint8]GroupSet, int(maxRank)+1)
	for rank := uint8(0); ; rank++ {
		groups := NewGroupSet(memberGroup)
		for _, rule := range rules {
			if rule.GuildRankFrom <= rank && rank <= rule.GuildRankTo {
				groups.Add(rule.GroupName)
			}
		}
		result[rank] = groups
		if rank == maxRank {
			break
		}
	}
	return result
}

// AllManagedGroups is the union of every group any rank maps to plus the
// member group: the complete universe of group names this system owns.
func AllManagedGroups(rankToGroups map[uint8]GroupSet, memberGroup string) GroupSet {
	all := NewGroupSet(memberGroup)
	for _, groups := range rankToGroups {
		for name := range groups {
			all.Add(name)
		}
	}
	return all
}
