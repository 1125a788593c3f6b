package roster

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"guildsync/feature/battlenet"
	"guildsync/feature/roster/models"
)

// GuildsByRegion returns all tracked guilds of one region.
func GuildsByRegion(db *gorm.DB, region battlenet.Region) ([]models.Guild, error) {
	var guilds []models.Guild
	err := db.Where("region = ?", region).Find(&guilds).Error
	return guilds, err
}

// GuildByID loads a single guild.
func GuildByID(db *gorm.DB, id int64) (models.Guild, error) {
	var guild models.Guild
	err := db.First(&guild, "id = ?", id).Error
	return guild, err
}

// AccountByBnetID returns the account with the given remote-profile id,
// or nil when none exists.
func AccountByBnetID(db *gorm.DB, bnetID int64) (*models.Account, error) {
	var account models.Account
	err := db.First(&account, "bnet_id = ?", bnetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// CharactersByBnetIDs returns the characters of one region matching any of
// the given remote character ids.
func CharactersByBnetIDs(db *gorm.DB, region battlenet.Region, bnetIDs []int64) ([]models.Character, error) {
	if len(bnetIDs) == 0 {
		return nil, nil
	}
	var characters []models.Character
	err := db.Where("region = ? AND bnet_id IN ?", region, bnetIDs).Find(&characters).Error
	return characters, err
}

// ClearGuildWhereBnetIDNotIn removes the guild reference from every
// character of the guild whose remote id is not in the fetched set.
// The characters themselves are kept (guild-scoped removal, not deletion).
func ClearGuildWhereBnetIDNotIn(db *gorm.DB, region battlenet.Region, guildID int64, bnetIDs []int64) (int64, error) {
	q := db.Model(&models.Character{}).Where("region = ? AND guild_id = ?", region, guildID)
	if len(bnetIDs) > 0 {
		q = q.Where("bnet_id NOT IN ?", bnetIDs)
	}
	res := q.Update("guild_id", nil)
	return res.RowsAffected, res.Error
}

// AccountsWithoutGuildCharacterAddedBefore returns accounts created before
// the cutoff that have no character linking them to any tracked guild.
func AccountsWithoutGuildCharacterAddedBefore(db *gorm.DB, cutoff time.Time) ([]models.Account, error) {
	var accounts []models.Account
	err := db.
		Where("added < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM characters c WHERE c.account_id = accounts.id AND c.guild_id IS NOT NULL)").
		Find(&accounts).Error
	return accounts, err
}

// DeleteAccountsWithCharacters removes the given accounts together with
// their characters and remote-id links. Returns (accounts, characters) deleted.
func DeleteAccountsWithCharacters(db *gorm.DB, accountIDs []int64) (int64, int64, error) {
	if len(accountIDs) == 0 {
		return 0, 0, nil
	}
	chars := db.Where("account_id IN ?", accountIDs).Delete(&models.Character{})
	if chars.Error != nil {
		return 0, 0, chars.Error
	}
	if err := db.Where("account_id IN ?", accountIDs).Delete(&models.AccountRemoteID{}).Error; err != nil {
		return 0, chars.RowsAffected, err
	}
	accounts := db.Where("id IN ?", accountIDs).Delete(&models.Account{})
	return accounts.RowsAffected, chars.RowsAffected, accounts.Error
}

// DeleteOrphanedCharacters removes characters referencing neither a guild
// nor an account.
func DeleteOrphanedCharacters(db *gorm.DB) (int64, error) {
	res := db.Where("guild_id IS NULL AND account_id IS NULL").Delete(&models.Character{})
	return res.RowsAffected, res.Error
}

// DeleteGuildlessCharactersBefore removes characters that still have an
// account but no guild and were last updated before the cutoff.
func DeleteGuildlessCharactersBefore(db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.
		Where("account_id IS NOT NULL AND guild_id IS NULL AND last_update < ?", cutoff).
		Delete(&models.Character{})
	return res.RowsAffected, res.Error
}

// RemoteSystems returns every configured remote system.
func RemoteSystems(db *gorm.DB) ([]models.RemoteSystem, error) {
	var systems []models.RemoteSystem
	err := db.Find(&systems).Error
	return systems, err
}

// RemoteSystemByID loads a single remote system.
func RemoteSystemByID(db *gorm.DB, id int64) (models.RemoteSystem, error) {
	var system models.RemoteSystem
	err := db.First(&system, "id = ?", id).Error
	return system, err
}

// RemoteSystemByTypeAndSystemID resolves a remote system by its platform
// type and platform-side id (e.g. the Discord guild id).
func RemoteSystemByTypeAndSystemID(db *gorm.DB, typ models.RemoteSystemType, systemID int64) (models.RemoteSystem, error) {
	var system models.RemoteSystem
	err := db.First(&system, "type = ? AND system_id = ?", typ, systemID).Error
	return system, err
}

// RankRules returns the rank-range rules of one remote system.
func RankRules(db *gorm.DB, remoteSystemID int64) ([]models.RankToGroup, error) {
	var rules []models.RankToGroup
	err := db.Where("remote_system_id = ?", remoteSystemID).Find(&rules).Error
	return rules, err
}

// DiscordSettingsFor returns the Discord settings of a remote system,
// falling back to zero values (pruning disabled) when none are stored.
func DiscordSettingsFor(db *gorm.DB, remoteSystemID int64) (models.DiscordSettings, error) {
	var settings models.DiscordSettings
	err := db.First(&settings, "remote_system_id = ?", remoteSystemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DiscordSettings{RemoteSystemID: remoteSystemID}, nil
	}
	return settings, err
}

// CharactersForRemoteUser returns the guild characters belonging to the
// account that the given remote user id maps to on this remote system.
func CharactersForRemoteUser(db *gorm.DB, guildID, remoteSystemID, remoteID int64) ([]models.Character, error) {
	var characters []models.Character
	err := db.Model(&models.Character{}).
		Joins("JOIN account_remote_ids ari ON ari.account_id = characters.account_id").
		Where("ari.remote_system_id = ? AND ari.remote_id = ? AND characters.guild_id = ?",
			remoteSystemID, remoteID, guildID).
		Find(&characters).Error
	return characters, err
}

// CharactersByRemoteID groups all guild characters by the remote user id of
// their owning account on the given remote system.
func CharactersByRemoteID(db *gorm.DB, guildID, remoteSystemID int64) (map[int64][]models.Character, error) {
	type row struct {
		models.Character
		RemoteID int64 `gorm:"column:remote_id"`
	}
	var rows []row
	err := db.Model(&models.Character{}).
		Select("characters.*, ari.remote_id AS remote_id").
		Joins("JOIN account_remote_ids ari ON ari.account_id = characters.account_id").
		Where("ari.remote_system_id = ? AND characters.guild_id = ?", remoteSystemID, guildID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[int64][]models.Character, len(rows))
	for _, r := range rows {
		result[r.RemoteID] = append(result[r.RemoteID], r.Character)
	}
	return result, nil
}

// UpsertAccountRemoteID creates or updates the mapping between an account
// and its id on one remote system.
func UpsertAccountRemoteID(db *gorm.DB, accountID, remoteSystemID, remoteID int64) error {
	var existing models.AccountRemoteID
	err := db.First(&existing, "account_id = ? AND remote_system_id = ?", accountID, remoteSystemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&models.AccountRemoteID{
			AccountID:      accountID,
			RemoteSystemID: remoteSystemID,
			RemoteID:       remoteID,
		}).Error
	}
	if err != nil {
		return err
	}
	if existing.RemoteID == remoteID {
		return nil
	}
	return db.Model(&models.AccountRemoteID{}).
		Where("account_id = ? AND remote_system_id = ?", accountID, remoteSystemID).
		Update("remote_id", remoteID).Error
}

// UpsertOnlineUser records that a member was seen online today.
func UpsertOnlineUser(db *gorm.DB, guildID, memberID int64, memberName string, seenAt time.Time) error {
	var existing models.DiscordOnlineUser
	err := db.First(&existing, "guild_id = ? AND member_id = ?", guildID, memberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&models.DiscordOnlineUser{
			GuildID:    guildID,
			MemberID:   memberID,
			MemberName: memberName,
			LastOnline: seenAt,
		}).Error
	}
	if err != nil {
		return err
	}
	return db.Model(&models.DiscordOnlineUser{}).
		Where("guild_id = ? AND member_id = ?", guildID, memberID).
		Updates(map[string]any{"member_name": memberName, "last_online": seenAt}).Error
}

// OnlineUsersLastSeenBefore returns the members of one Discord guild whose
// recorded last-online date predates the cutoff.
func OnlineUsersLastSeenBefore(db *gorm.DB, guildID int64, cutoff time.Time) ([]models.DiscordOnlineUser, error) {
	var users []models.DiscordOnlineUser
	err := db.Where("guild_id = ? AND last_online < ?", guildID, cutoff).Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load online users: %w", err)
	}
	return users, nil
}
