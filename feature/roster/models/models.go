package models

import (
	"time"

	"gorm.io/gorm"

	"guildsync/feature/battlenet"
)

// RemoteSystemType discriminates the connector implementations.
type RemoteSystemType string

const (
	RemoteSystemDiscord   RemoteSystemType = "Discord"
	RemoteSystemTeamspeak RemoteSystemType = "Teamspeak"
	RemoteSystemForum     RemoteSystemType = "Forum"
)

// Guild is one tracked in-game guild, identified by (region, server, name).
type Guild struct {
	ID     int64            `gorm:"column:id;primaryKey;autoIncrement"`
	Region battlenet.Region `gorm:"column:region;size:2;not null;uniqueIndex:idx_guilds_region_server_name"`
	Server string           `gorm:"column:server;size:32;not null;uniqueIndex:idx_guilds_region_server_name"`
	Name   string           `gorm:"column:name;size:32;not null;uniqueIndex:idx_guilds_region_server_name"`
}

func (Guild) TableName() string { return "guilds" }

// Account mirrors one Battle.net account. Added is immutable after insert,
// LastUpdate is refreshed on every successful profile fetch.
type Account struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	BnetID     int64     `gorm:"column:bnet_id;not null;uniqueIndex:idx_accounts_bnet_id"`
	BnetTag    string    `gorm:"column:bnet_tag;size:32;not null"`
	Added      time.Time `gorm:"column:added;not null"`
	LastUpdate time.Time `gorm:"column:last_update;not null;index:idx_accounts_last_update"`
}

func (Account) TableName() string { return "accounts" }

// Character mirrors one WoW character. AccountID and GuildID are both
// nullable; an update batch is scoped to exactly one of them.
type Character struct {
	ID         int64            `gorm:"column:id;primaryKey;autoIncrement"`
	BnetID     int64            `gorm:"column:bnet_id;not null;uniqueIndex:idx_characters_bnet_id_region"`
	Region     battlenet.Region `gorm:"column:region;size:2;not null;uniqueIndex:idx_characters_bnet_id_region"`
	AccountID  *int64           `gorm:"column:account_id;index:idx_characters_account_id"`
	GuildID    *int64           `gorm:"column:guild_id;index:idx_characters_guild_id"`
	Server     string           `gorm:"column:server;size:32;not null"`
	Name       string           `gorm:"column:name;size:32;not null"`
	Rank       uint8            `gorm:"column:rank;not null;default:0"`
	LastUpdate time.Time        `gorm:"column:last_update;not null"`
}

func (Character) TableName() string { return "characters" }

// AccountRemoteID links an Account to the numeric id the member uses on one
// remote system.
type AccountRemoteID struct {
	AccountID      int64 `gorm:"column:account_id;primaryKey;autoIncrement:false"`
	RemoteSystemID int64 `gorm:"column:remote_system_id;primaryKey;autoIncrement:false;uniqueIndex:idx_account_remote_ids_system_remote"`
	RemoteID       int64 `gorm:"column:remote_id;not null;uniqueIndex:idx_account_remote_ids_system_remote"`
}

func (AccountRemoteID) TableName() string { return "account_remote_ids" }

// RemoteSystem is one externally connected community instance, tied 1:1 to
// a Guild. HmacKey authenticates authorization-callback links.
type RemoteSystem struct {
	ID                int64            `gorm:"column:id;primaryKey;autoIncrement"`
	GuildID           int64            `gorm:"column:guild_id;not null;index:idx_remote_systems_guild_id"`
	Type              RemoteSystemType `gorm:"column:type;size:32;not null;uniqueIndex:idx_remote_systems_type_system_id"`
	SystemID          int64            `gorm:"column:system_id;not null;uniqueIndex:idx_remote_systems_type_system_id"`
	NameOrLink        string           `gorm:"column:name_link;size:255;not null"`
	MemberGroup       string           `gorm:"column:member_group;size:64;not null"`
	FormerMemberGroup *string          `gorm:"column:former_member_group;size:64"`
	HmacKey           string           `gorm:"column:hmac_key;size:88;not null"`
}

func (RemoteSystem) TableName() string { return "remote_systems" }

// RankToGroup maps an inclusive guild-rank range to a managed group name.
// Ranges of different rules may overlap; every matching rule contributes.
type RankToGroup struct {
	RemoteSystemID int64  `gorm:"column:remote_system_id;primaryKey;autoIncrement:false;index:idx_rank_to_group_remote_system_id"`
	GuildRankFrom  uint8  `gorm:"column:guild_rank_from;primaryKey;autoIncrement:false"`
	GuildRankTo    uint8  `gorm:"column:guild_rank_to;primaryKey;autoIncrement:false"`
	GroupName      string `gorm:"column:group_name;size:64;primaryKey"`
}

func (RankToGroup) TableName() string { return "remote_system_rank_to_group" }

// DiscordSettings carries per-remote-system Discord specifics.
// DeleteUserAfterInactiveDays of 0 disables inactivity pruning.
type DiscordSettings struct {
	RemoteSystemID              int64  `gorm:"column:remote_system_id;primaryKey;autoIncrement:false"`
	ReactionMessageID           *int64 `gorm:"column:reaction_message_id"`
	DeleteUserAfterInactiveDays int    `gorm:"column:delete_user_after_inactive_days;not null;default:0"`
}

func (DiscordSettings) TableName() string { return "discord_settings" }

// DiscordOnlineUser tracks when a member was last seen online, keyed by
// (discord guild id, member id). Used purely for inactivity pruning.
type DiscordOnlineUser struct {
	GuildID    int64     `gorm:"column:guild_id;primaryKey;autoIncrement:false;index:idx_discord_online_users_guild_id"`
	MemberID   int64     `gorm:"column:member_id;primaryKey;autoIncrement:false"`
	MemberName string    `gorm:"column:member_name;size:64;not null"`
	LastOnline time.Time `gorm:"column:last_online;not null"`
}

func (DiscordOnlineUser) TableName() string { return "discord_online_users" }

// Migrate creates or updates all tables. Production schemas are managed by
// hand, this is used by tests and first-time setups.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Guild{},
		&Account{},
		&Character{},
		&AccountRemoteID{},
		&RemoteSystem{},
		&RankToGroup{},
		&DiscordSettings{},
		&DiscordOnlineUser{},
	)
}
