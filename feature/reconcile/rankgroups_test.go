package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guildsync/feature/roster/models"
)

func TestBuildRankGroups_EmptyRules(t *testing.T) {
	assert.Empty(t, BuildRankGroups(nil, "member"))
}

func TestBuildRankGroups_EveryRankHasMemberGroup(t *testing.T) {
	rules := []models.RankToGroup{
		{GuildRankFrom: 2, GuildRankTo: 4, GroupName: "raider"},
	}
	groups := BuildRankGroups(rules, "member")
	require.Len(t, groups, 5)
	for rank := uint8(0); rank <= 4; rank++ {
		assert.True(t, groups[rank].Has("member"), "rank %d must carry the member group", rank)
	}
	assert.False(t, groups[1].Has("raider"))
	assert.True(t, groups[2].Has("raider"))
	assert.True(t, groups[4].Has("raider"))
}

func TestBuildRankGroups_OverlappingRulesUnion(t *testing.T) {
	rules := []models.RankToGroup{
		{GuildRankFrom: 0, GuildRankTo: 5, GroupName: "A"},
		{GuildRankFrom: 3, GuildRankTo: 5, GroupName: "B"},
	}
	groups := BuildRankGroups(rules, "member")

	assert.ElementsMatch(t, []string{"member", "A", "B"}, groups[4].Names())
	assert.ElementsMatch(t, []string{"member", "A"}, groups[1].Names())
}

func TestAllManagedGroups(t *testing.T) {
	rules := []models.RankToGroup{
		{GuildRankFrom: 0, GuildRankTo: 1, GroupName: "officer"},
		{GuildRankFrom: 0, GuildRankTo: 5, GroupName: "raider"},
	}
	all := AllManagedGroups(BuildRankGroups(rules, "member"), "member")
	assert.ElementsMatch(t, []string{"member", "officer", "raider"}, all.Names())
}

func TestAllManagedGroups_NoRules(t *testing.T) {
	all := AllManagedGroups(BuildRankGroups(nil, "member"), "member")
	assert.Equal(t, []string{"member"}, all.Names())
}
