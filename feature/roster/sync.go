package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"guildsync/core/retry"
	"guildsync/feature/battlenet"
	"guildsync/feature/roster/models"
)

// RosterAPI is the capability the mirror sync consumes from the remote
// roster/profile service.
type RosterAPI interface {
	Profile(ctx context.Context, token battlenet.UserToken) (battlenet.ProfileInfo, error)
	AccountCharacters(ctx context.Context, token battlenet.UserToken) ([]battlenet.Character, error)
	GuildMembers(ctx context.Context, region battlenet.Region, realmSlug, guildSlug string) ([]battlenet.Character, error)
}

// TokenSource yields the currently-valid user tokens for one region.
type TokenSource interface {
	Valid(region battlenet.Region) []battlenet.UserToken
}

// ErrInvalidBatchScope signals an updateCharacters call that was not scoped
// to exactly one of account or guild. This is a programming-contract
// violation, not a data condition.
var ErrInvalidBatchScope = errors.New("character update batch must be scoped to exactly one of account or guild")

// Sync mirrors remote account/character/guild-member data into the local
// store. All remote fetches go through a bounded-retry executor; a failed
// unit (one guild, one user) is logged and skipped, never aborting the pass.
type Sync struct {
	db     *gorm.DB
	api    RosterAPI
	tokens TokenSource
	exec   *retry.Executor
	cfg    Config
	log    *zap.Logger
	now    func() time.Time
}

// NewSync creates a mirror sync.
func NewSync(db *gorm.DB, api RosterAPI, tokens TokenSource, cfg Config, log *zap.Logger) *Sync {
	return &Sync{
		db:     db,
		api:    api,
		tokens: tokens,
		exec:   retry.NewExecutor(cfg.MaxRequestRetries, log),
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// Run executes a full mirror pass: refresh from user tokens, refresh from
// guild rosters, then prune stale accounts and characters. The pass runs in
// one transaction; per-unit remote failures are isolated and do not roll it
// back.
func (s *Sync) Run(ctx context.Context) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		s.UpdateFromUserTokens(ctx, tx)
		s.UpdateFromGuildRosters(ctx, tx)
		if err := s.RemoveUnusedAccounts(tx); err != nil {
			return err
		}
		return s.RemoveUnusedCharacters(tx)
	})
}

// UpdateFromUserTokens refreshes accounts and their characters from every
// currently-valid user credential, per region.
func (s *Sync) UpdateFromUserTokens(ctx context.Context, tx *gorm.DB) {
	for _, region := range battlenet.AllRegions {
		tokens := s.tokens.Valid(region)
		s.log.Debug("updating accounts from tokens",
			zap.String("region", region.String()),
			zap.Int("tokens", len(tokens)))
		for _, token := range tokens {
			if err := s.updateFromUserToken(ctx, tx, region, token); err != nil {
				s.log.Error("failed to update account from token",
					zap.String("region", region.String()),
					zap.Error(err))
			}
		}
	}
}

func (s *Sync) updateFromUserToken(ctx context.Context, tx *gorm.DB, region battlenet.Region, token battlenet.UserToken) error {
	var profile battlenet.ProfileInfo
	err := s.exec.Do(ctx, "profile", func(ctx context.Context) error {
		p, err := s.api.Profile(ctx, token)
		if err == nil {
			profile = p
		}
		return err
	})
	if err != nil {
		return err
	}

	account, err := s.upsertAccount(tx, profile)
	if err != nil {
		return err
	}

	var characters []battlenet.Character
	err = s.exec.Do(ctx, "account-characters", func(ctx context.Context) error {
		cs, err := s.api.AccountCharacters(ctx, token)
		if err == nil {
			characters = cs
		}
		return err
	})
	if err != nil {
		return err
	}

	_, err = s.updateCharacters(tx, region, account, nil, characters)
	return err
}

// UpdateFromGuildRosters refreshes the characters of every tracked guild
// from the guild member lists and clears the guild reference of characters
// that dropped off the roster.
func (s *Sync) UpdateFromGuildRosters(ctx context.Context, tx *gorm.DB) {
	for _, region := range battlenet.AllRegions {
		guilds, err := GuildsByRegion(tx, region)
		if err != nil {
			s.log.Error("failed to load guilds", zap.String("region", region.String()), zap.Error(err))
			continue
		}
		for _, guild := range guilds {
			if err := s.updateFromGuildRoster(ctx, tx, guild); err != nil {
				s.log.Error("failed to fetch guild members",
					zap.String("region", region.String()),
					zap.String("server", guild.Server),
					zap.String("guild", guild.Name),
					zap.Error(err))
			}
		}
	}
}

func (s *Sync) updateFromGuildRoster(ctx context.Context, tx *gorm.DB, guild models.Guild) error {
	s.log.Debug("requesting guild members",
		zap.String("region", guild.Region.String()),
		zap.String("server", guild.Server),
		zap.String("guild", guild.Name))

	var members []battlenet.Character
	err := s.exec.Do(ctx, "guild-members", func(ctx context.Context) error {
		ms, err := s.api.GuildMembers(ctx, guild.Region, guild.Server, guild.Name)
		if err == nil {
			members = ms
		}
		return err
	})
	if err != nil {
		return err
	}

	fetchedIDs, err := s.updateCharacters(tx, guild.Region, nil, &guild, members)
	if err != nil {
		return err
	}

	removed, err := ClearGuildWhereBnetIDNotIn(tx, guild.Region, guild.ID, fetchedIDs)
	if err != nil {
		return err
	}
	s.log.Debug("removed characters from guild", zap.Int64("count", removed))
	return nil
}

// updateCharacters upserts the fetched characters, scoped to exactly one of
// account or guild as the authoritative source. Only changed rows are
// written; rank is only taken over when the payload supplies one. Returns
// the full set of fetched remote character ids for guild-scoped pruning.
func (s *Sync) updateCharacters(tx *gorm.DB, region battlenet.Region, account *models.Account, guild *models.Guild, fetched []battlenet.Character) ([]int64, error) {
	if (account != nil) == (guild != nil) {
		return nil, fmt.Errorf("%w: account=%v guild=%v", ErrInvalidBatchScope, account != nil, guild != nil)
	}

	byID := make(map[int64]battlenet.Character, len(fetched))
	ids := make([]int64, 0, len(fetched))
	for _, c := range fetched {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	existing, err := CharactersByBnetIDs(tx, region, ids)
	if err != nil {
		return nil, err
	}
	existingIDs := make(map[int64]struct{}, len(existing))
	for _, c := range existing {
		existingIDs[c.BnetID] = struct{}{}
	}

	now := s.now()

	for _, id := range ids {
		if _, ok := existingIDs[id]; ok {
			continue
		}
		fetchedChar := byID[id]
		character := models.Character{
			BnetID:     fetchedChar.ID,
			Region:     region,
			Server:     fetchedChar.Realm,
			Name:       fetchedChar.Name,
			LastUpdate: now,
		}
		if fetchedChar.Rank != nil {
			character.Rank = *fetchedChar.Rank
		}
		if account != nil {
			character.AccountID = &account.ID
		}
		if guild != nil {
			character.GuildID = &guild.ID
		}
		if err := tx.Create(&character).Error; err != nil {
			return nil, err
		}
	}

	for i := range existing {
		character := &existing[i]
		fetchedChar := byID[character.BnetID]
		needSave := false
		if characterChanged(character, fetchedChar) {
			character.Server = fetchedChar.Realm
			character.Name = fetchedChar.Name
			if fetchedChar.Rank != nil {
				character.Rank = *fetchedChar.Rank
			}
			needSave = true
		}
		if account != nil && (character.AccountID == nil || *character.AccountID != account.ID) {
			character.AccountID = &account.ID
			needSave = true
		}
		if guild != nil && (character.GuildID == nil || *character.GuildID != guild.ID) {
			character.GuildID = &guild.ID
			needSave = true
		}
		if needSave {
			character.LastUpdate = now
			if err := tx.Save(character).Error; err != nil {
				return nil, err
			}
		}
	}

	return ids, nil
}

func characterChanged(character *models.Character, fetched battlenet.Character) bool {
	if fetched.Rank != nil && character.Rank != *fetched.Rank {
		return true
	}
	return character.Server != fetched.Realm || character.Name != fetched.Name
}

// upsertAccount inserts an account on first sight or refreshes its tag and
// last-update timestamp. Added is never touched after insert.
func (s *Sync) upsertAccount(tx *gorm.DB, profile battlenet.ProfileInfo) (*models.Account, error) {
	account, err := AccountByBnetID(tx, profile.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if account == nil {
		account = &models.Account{
			BnetID:     profile.ID,
			BnetTag:    profile.BattleTag,
			Added:      now,
			LastUpdate: now,
		}
		return account, tx.Create(account).Error
	}
	account.BnetTag = profile.BattleTag
	account.LastUpdate = now
	return account, tx.Save(account).Error
}

// RemoveUnusedAccounts deletes accounts past the retention window that have
// no character linking them to a tracked guild, together with their
// characters, then clears fully-orphaned characters.
func (s *Sync) RemoveUnusedAccounts(tx *gorm.DB) error {
	cutoff := s.now().AddDate(0, 0, -s.cfg.KeepNewAccountsWithoutGuildDays)
	accounts, err := AccountsWithoutGuildCharacterAddedBefore(tx, cutoff)
	if err != nil {
		return err
	}
	accountIDs := make([]int64, 0, len(accounts))
	for _, a := range accounts {
		accountIDs = append(accountIDs, a.ID)
	}
	deletedAccounts, deletedCharacters, err := DeleteAccountsWithCharacters(tx, accountIDs)
	if err != nil {
		return err
	}
	deletedOrphans, err := DeleteOrphanedCharacters(tx)
	if err != nil {
		return err
	}
	s.log.Debug("removed unused accounts",
		zap.Int64("accounts", deletedAccounts),
		zap.Int64("characters", deletedCharacters),
		zap.Int64("orphaned_characters", deletedOrphans))
	return nil
}

// RemoveUnusedCharacters deletes characters that have an account but no
// guild and were not updated within the retention window (players who left
// the tracked guild and never rejoined).
func (s *Sync) RemoveUnusedCharacters(tx *gorm.DB) error {
	cutoff := s.now().AddDate(0, 0, -s.cfg.KeepCharactersWithoutGuildDays)
	deleted, err := DeleteGuildlessCharactersBefore(tx, cutoff)
	if err != nil {
		return err
	}
	s.log.Debug("removed characters without guild", zap.Int64("count", deleted))
	return nil
}

// AuthFinished mirrors a user's account and characters right after a
// completed authorization and links the account to its remote user id.
// The credential's region must match the target guild's region; a mismatch
// is a hard error. Returns the redirect target for forum-type systems.
func (s *Sync) AuthFinished(ctx context.Context, system models.RemoteSystem, remoteUserID int64, token battlenet.UserToken) (string, error) {
	if !token.Valid() {
		return "", fmt.Errorf("access token for remote user %d on system %d is not valid", remoteUserID, system.ID)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		guild, err := GuildByID(tx, system.GuildID)
		if err != nil {
			return err
		}
		if guild.Region != token.Region {
			return fmt.Errorf("got access for region %s but guild %d is in region %s",
				token.Region, guild.ID, guild.Region)
		}

		var profile battlenet.ProfileInfo
		err = s.exec.Do(ctx, "profile", func(ctx context.Context) error {
			p, err := s.api.Profile(ctx, token)
			if err == nil {
				profile = p
			}
			return err
		})
		if err != nil {
			return err
		}

		account, err := s.upsertAccount(tx, profile)
		if err != nil {
			return err
		}
		if err := UpsertAccountRemoteID(tx, account.ID, system.ID, remoteUserID); err != nil {
			return err
		}

		var characters []battlenet.Character
		err = s.exec.Do(ctx, "account-characters", func(ctx context.Context) error {
			cs, err := s.api.AccountCharacters(ctx, token)
			if err == nil {
				characters = cs
			}
			return err
		})
		if err != nil {
			return err
		}

		_, err = s.updateCharacters(tx, guild.Region, account, nil, characters)
		return err
	})
	if err != nil {
		return "", err
	}

	if system.Type == models.RemoteSystemForum {
		return system.NameOrLink, nil
	}
	return "", nil
}
