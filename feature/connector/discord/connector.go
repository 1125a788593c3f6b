package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guildsync/feature/connector"
	"guildsync/feature/roster/models"
)

const memberPageSize = 1000

// Connector serves one Discord server on the shared gateway.
type Connector struct {
	gw       *Gateway
	system   models.RemoteSystem
	settings models.DiscordSettings
	guildID  string
	log      *zap.Logger
}

var _ connector.Connector = (*Connector)(nil)

// NewConnector builds the connector for one remote system. A configured
// reaction message is registered on the gateway so reactions to it hand out
// authorization links.
func NewConnector(gw *Gateway, system models.RemoteSystem, settings models.DiscordSettings, log *zap.Logger) *Connector {
	if settings.ReactionMessageID != nil {
		gw.addReactionMessage(*settings.ReactionMessageID)
	}
	return &Connector{
		gw:       gw,
		system:   system,
		settings: settings,
		guildID:  strconv.FormatInt(system.SystemID, 10),
		log:      log,
	}
}

func (c *Connector) Close() error {
	if c.settings.ReactionMessageID != nil {
		c.gw.removeReactionMessage(*c.settings.ReactionMessageID)
	}
	return nil
}

// roleNames resolves the server's role ids to names.
func (c *Connector) roleNames() (map[string]string, error) {
	roles, err := c.gw.session.GuildRoles(c.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles for guild %s: %w", c.guildID, err)
	}
	names := make(map[string]string, len(roles))
	for _, role := range roles {
		names[role.ID] = role.Name
	}
	return names, nil
}

// rolesByName groups role ids by name. Discord allows several roles with the
// same name; a change by name affects all of them.
func (c *Connector) rolesByName() (map[string][]string, error) {
	roles, err := c.gw.session.GuildRoles(c.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles for guild %s: %w", c.guildID, err)
	}
	byName := make(map[string][]string, len(roles))
	for _, role := range roles {
		byName[role.Name] = append(byName[role.Name], role.ID)
	}
	return byName, nil
}

func (c *Connector) GetAllUsersWithRoles(ctx context.Context) (map[int64][]string, error) {
	names, err := c.roleNames()
	if err != nil {
		return nil, err
	}

	result := make(map[int64][]string)
	after := ""
	for {
		members, err := c.gw.session.GuildMembers(c.guildID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch members for guild %s: %w", c.guildID, err)
		}
		for _, member := range members {
			memberID, err := strconv.ParseInt(member.User.ID, 10, 64)
			if err != nil {
				continue
			}
			roles := make([]string, 0, len(member.Roles))
			for _, roleID := range member.Roles {
				if name, ok := names[roleID]; ok {
					roles = append(roles, name)
				}
			}
			result[memberID] = roles
			after = member.User.ID
		}
		if len(members) < memberPageSize {
			return result, nil
		}
	}
}

func (c *Connector) GetRolesForUser(ctx context.Context, userID int64) ([]string, bool, error) {
	member, err := c.gw.session.GuildMember(c.guildID, strconv.FormatInt(userID, 10), discordgo.WithContext(ctx))
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Message != nil &&
			restErr.Message.Code == discordgo.ErrCodeUnknownMember {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to fetch member %d of guild %s: %w", userID, c.guildID, err)
	}

	names, err := c.roleNames()
	if err != nil {
		return nil, false, err
	}
	roles := make([]string, 0, len(member.Roles))
	for _, roleID := range member.Roles {
		if name, ok := names[roleID]; ok {
			roles = append(roles, name)
		}
	}
	return roles, true, nil
}

func (c *Connector) ChangeRoles(ctx context.Context, changes map[int64]connector.RoleChange) error {
	if len(changes) == 0 {
		return nil
	}
	byName, err := c.rolesByName()
	if err != nil {
		return err
	}

	for memberID, change := range changes {
		member := strconv.FormatInt(memberID, 10)
		for _, name := range change.ToAdd {
			for _, roleID := range byName[name] {
				if err := c.gw.session.GuildMemberRoleAdd(c.guildID, member, roleID, discordgo.WithContext(ctx)); err != nil {
					c.log.Error("failed to add role",
						zap.Int64("member_id", memberID), zap.String("role", name), zap.Error(err))
				}
			}
		}
		for _, name := range change.ToRemove {
			for _, roleID := range byName[name] {
				if err := c.gw.session.GuildMemberRoleRemove(c.guildID, member, roleID, discordgo.WithContext(ctx)); err != nil {
					c.log.Error("failed to remove role",
						zap.Int64("member_id", memberID), zap.String("role", name), zap.Error(err))
				}
			}
		}
	}
	return nil
}

// SetCharacterNames sets the member's nickname to the first name of the
// sorted list, the highest-authority character.
func (c *Connector) SetCharacterNames(ctx context.Context, userID int64, names []string) error {
	if len(names) == 0 {
		return nil
	}
	err := c.gw.session.GuildMemberNickname(c.guildID, strconv.FormatInt(userID, 10), names[0], discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to set nickname for member %d: %w", userID, err)
	}
	return nil
}

func (c *Connector) DeleteInactiveUsers(ctx context.Context, userIDs []int64, reason string) (int, error) {
	removed := 0
	for _, userID := range userIDs {
		err := c.gw.session.GuildMemberDeleteWithReason(c.guildID, strconv.FormatInt(userID, 10), reason, discordgo.WithContext(ctx))
		if err != nil {
			c.log.Error("failed to kick inactive member",
				zap.Int64("member_id", userID), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

func (c *Connector) DeleteUsersAfterInactiveDays() int {
	return c.settings.DeleteUserAfterInactiveDays
}
