package reconcile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"guildsync/feature/connector"
	"guildsync/feature/roster"
	"guildsync/feature/roster/models"
)

// Syncer reconciles one remote system. The rank mapping and the managed
// group universe are resolved once at construction time.
type Syncer struct {
	db           *gorm.DB
	system       models.RemoteSystem
	conn         connector.Connector
	rankToGroups map[uint8]GroupSet
	allGroups    GroupSet
	log          *zap.Logger
	now          func() time.Time
}

// NewSyncer builds a syncer for one remote system, loading its rank rules.
func NewSyncer(db *gorm.DB, system models.RemoteSystem, conn connector.Connector, log *zap.Logger) (*Syncer, error) {
	rules, err := roster.RankRules(db, system.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rank rules for remote system %d: %w", system.ID, err)
	}
	rankToGroups := BuildRankGroups(rules, system.MemberGroup)
	return &Syncer{
		db:           db,
		system:       system,
		conn:         conn,
		rankToGroups: rankToGroups,
		allGroups:    AllManagedGroups(rankToGroups, system.MemberGroup),
		log:          log,
		now:          time.Now,
	}, nil
}

// expectedRoles is the union over the given characters of the groups their
// rank maps to, falling back to the member group for unmapped ranks.
func (s *Syncer) expectedRoles(characters []models.Character) GroupSet {
	expected := NewGroupSet()
	for _, c := range characters {
		groups, ok := s.rankToGroups[c.Rank]
		if !ok {
			expected.Add(s.system.MemberGroup)
			continue
		}
		for name := range groups {
			expected.Add(name)
		}
	}
	return expected
}

// sortedCharacterNames orders by rank ascending, then name, then server, and
// returns the names. The first entry is the highest-authority character.
func sortedCharacterNames(characters []models.Character) []string {
	sorted := make([]models.Character, len(characters))
	copy(sorted, characters)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Server < b.Server
	})
	names := make([]string, len(sorted))
	for i, c := range sorted {
		names[i] = c.Name
	}
	return names
}

// SyncForUser reconciles a single just-authenticated user. Reports whether a
// visible change was pushed. The change is only applied when it adds at
// least one role; a removal-only correction is deferred to the next bulk
// pass so a fresh authentication never starts with a demotion.
func (s *Syncer) SyncForUser(ctx context.Context, remoteUserID int64) (bool, error) {
	characters, err := roster.CharactersForRemoteUser(s.db, s.system.GuildID, s.system.ID, remoteUserID)
	if err != nil {
		return false, err
	}
	if len(characters) == 0 {
		return false, nil
	}

	expected := s.expectedRoles(characters)
	actual, present, err := s.conn.GetRolesForUser(ctx, remoteUserID)
	if err != nil {
		return false, err
	}
	change := s.calculateRoleChange(actual, present, expected)
	if change == nil || len(change.ToAdd) == 0 {
		return false, nil
	}

	if err := s.conn.SetCharacterNames(ctx, remoteUserID, sortedCharacterNames(characters)); err != nil {
		return false, err
	}
	if err := s.conn.ChangeRoles(ctx, map[int64]connector.RoleChange{remoteUserID: *change}); err != nil {
		return false, err
	}
	return true, nil
}

// SyncToConnector bulk-reconciles every user known on either side: users
// with guild characters and users still holding roles on the remote system.
// All non-empty deltas go out in a single batched call.
func (s *Syncer) SyncToConnector(ctx context.Context) error {
	charactersByRemoteID, err := roster.CharactersByRemoteID(s.db, s.system.GuildID, s.system.ID)
	if err != nil {
		return err
	}
	expectedPerUser := make(map[int64]GroupSet, len(charactersByRemoteID))
	for remoteID, characters := range charactersByRemoteID {
		expectedPerUser[remoteID] = s.expectedRoles(characters)
	}

	actualPerUser, err := s.conn.GetAllUsersWithRoles(ctx)
	if err != nil {
		return err
	}

	allRemoteIDs := make(map[int64]struct{}, len(expectedPerUser)+len(actualPerUser))
	for id := range expectedPerUser {
		allRemoteIDs[id] = struct{}{}
	}
	for id := range actualPerUser {
		allRemoteIDs[id] = struct{}{}
	}

	changes := make(map[int64]connector.RoleChange, len(allRemoteIDs))
	for remoteID := range allRemoteIDs {
		actual, present := actualPerUser[remoteID]
		change := s.calculateRoleChange(actual, present, expectedPerUser[remoteID])
		if change != nil && !change.Empty() {
			changes[remoteID] = *change
		}
	}
	s.log.Debug("bulk role sync computed",
		zap.Int64("remote_system_id", s.system.ID),
		zap.Int("users", len(allRemoteIDs)),
		zap.Int("changes", len(changes)))
	return s.conn.ChangeRoles(ctx, changes)
}

// DeleteInactiveUsers removes members whose recorded last-online date is
// older than the connector's configured window. Members holding any managed
// group are never candidates, regardless of the recorded date. Returns how
// many users the connector reports removed; a window of zero disables
// pruning entirely.
func (s *Syncer) DeleteInactiveUsers(ctx context.Context) (int, error) {
	days := s.conn.DeleteUsersAfterInactiveDays()
	if days <= 0 {
		return 0, nil
	}

	actualPerUser, err := s.conn.GetAllUsersWithRoles(ctx)
	if err != nil {
		return 0, err
	}
	protected := make(map[int64]struct{}, len(actualPerUser))
	for remoteID, groups := range actualPerUser {
		for _, name := range groups {
			if s.allGroups.Has(name) {
				protected[remoteID] = struct{}{}
				break
			}
		}
	}

	cutoff := s.now().AddDate(0, 0, -days)
	stale, err := roster.OnlineUsersLastSeenBefore(s.db, s.system.SystemID, cutoff)
	if err != nil {
		return 0, err
	}
	candidates := make([]int64, 0, len(stale))
	for _, user := range stale {
		if _, ok := protected[user.MemberID]; ok {
			continue
		}
		candidates = append(candidates, user.MemberID)
	}
	if len(candidates) == 0 {
		return 0, nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	reason := fmt.Sprintf("Inactive more than %d days", days)
	removed, err := s.conn.DeleteInactiveUsers(ctx, candidates, reason)
	if err != nil {
		return 0, err
	}
	s.log.Info("removed inactive users",
		zap.Int64("remote_system_id", s.system.ID),
		zap.Int("candidates", len(candidates)),
		zap.Int("removed", removed))
	return removed, nil
}
