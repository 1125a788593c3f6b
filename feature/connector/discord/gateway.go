package discord

import (
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"guildsync/core/signature"
	"guildsync/feature/roster"
	"guildsync/feature/roster/models"
)

var onlineStatuses = map[discordgo.Status]struct{}{
	discordgo.StatusOnline:       {},
	discordgo.StatusIdle:         {},
	discordgo.StatusDoNotDisturb: {},
}

// Gateway is the single shared bot session. All per-server connectors run on
// top of it. It records member presence for inactivity pruning and answers
// the bnet-auth slash command and configured reaction messages with a signed
// authorization link.
type Gateway struct {
	session *discordgo.Session
	db      *gorm.DB
	rootURL string
	log     *zap.Logger
	now     func() time.Time

	mu               sync.Mutex
	reactionMessages map[int64]struct{}
}

// NewGateway connects the bot session and registers the event handlers.
func NewGateway(cfg Config, db *gorm.DB, rootURL string, log *zap.Logger) (*Gateway, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	gw := &Gateway{
		session:          session,
		db:               db,
		rootURL:          rootURL,
		log:              log,
		now:              time.Now,
		reactionMessages: make(map[int64]struct{}),
	}

	session.Identify.Intents = discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildPresences |
		discordgo.IntentsGuildMessageReactions
	session.AddHandler(gw.onReady)
	session.AddHandler(gw.onGuildCreate)
	session.AddHandler(gw.onPresenceUpdate)
	session.AddHandler(gw.onMessageReactionAdd)
	session.AddHandler(gw.onInteraction)

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open discord session: %w", err)
	}
	return gw, nil
}

// Close shuts the bot session down.
func (g *Gateway) Close() error {
	return g.session.Close()
}

func (g *Gateway) addReactionMessage(messageID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reactionMessages[messageID] = struct{}{}
}

func (g *Gateway) removeReactionMessage(messageID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.reactionMessages, messageID)
}

func (g *Gateway) isReactionMessage(messageID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.reactionMessages[messageID]
	return ok
}

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	_, err := s.ApplicationCommandCreate(r.User.ID, "", &discordgo.ApplicationCommand{
		Name:        "bnet-auth",
		Description: "Link your Battle.net account",
	})
	if err != nil {
		g.log.Error("failed to register bnet-auth command", zap.Error(err))
		return
	}
	g.log.Info("discord gateway ready", zap.String("user", r.User.Username))
}

func (g *Gateway) onGuildCreate(s *discordgo.Session, e *discordgo.GuildCreate) {
	guildID, err := strconv.ParseInt(e.ID, 10, 64)
	if err != nil {
		return
	}
	names := make(map[string]string, len(e.Members))
	for _, m := range e.Members {
		names[m.User.ID] = m.User.Username
	}
	seenAt := g.now()
	for _, p := range e.Presences {
		if _, online := onlineStatuses[p.Status]; !online {
			continue
		}
		memberID, err := strconv.ParseInt(p.User.ID, 10, 64)
		if err != nil {
			continue
		}
		if err := roster.UpsertOnlineUser(g.db, guildID, memberID, names[p.User.ID], seenAt); err != nil {
			g.log.Error("failed to record online member",
				zap.Int64("guild_id", guildID), zap.Int64("member_id", memberID), zap.Error(err))
		}
	}
}

func (g *Gateway) onPresenceUpdate(s *discordgo.Session, e *discordgo.PresenceUpdate) {
	if _, online := onlineStatuses[e.Status]; !online {
		return
	}
	guildID, err := strconv.ParseInt(e.GuildID, 10, 64)
	if err != nil {
		return
	}
	memberID, err := strconv.ParseInt(e.User.ID, 10, 64)
	if err != nil {
		return
	}
	if err := roster.UpsertOnlineUser(g.db, guildID, memberID, e.User.Username, g.now()); err != nil {
		g.log.Error("failed to record online member",
			zap.Int64("guild_id", guildID), zap.Int64("member_id", memberID), zap.Error(err))
	}
}

func (g *Gateway) onMessageReactionAdd(s *discordgo.Session, e *discordgo.MessageReactionAdd) {
	messageID, err := strconv.ParseInt(e.MessageID, 10, 64)
	if err != nil || !g.isReactionMessage(messageID) {
		return
	}
	text, err := g.authStartText(e.GuildID, e.UserID)
	if err != nil {
		g.log.Error("failed to build auth link", zap.String("guild_id", e.GuildID), zap.Error(err))
		return
	}
	channel, err := s.UserChannelCreate(e.UserID)
	if err != nil {
		g.log.Error("failed to open direct channel", zap.String("user_id", e.UserID), zap.Error(err))
		return
	}
	if _, err := s.ChannelMessageSend(channel.ID, text); err != nil {
		g.log.Error("failed to send auth link", zap.String("user_id", e.UserID), zap.Error(err))
	}
}

func (g *Gateway) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.ApplicationCommandData().Name != "bnet-auth" {
		return
	}
	if i.Member == nil {
		return
	}
	text, err := g.authStartText(i.GuildID, i.Member.User.ID)
	if err != nil {
		g.log.Error("failed to build auth link", zap.String("guild_id", i.GuildID), zap.Error(err))
		text = "Authentication is not available for this server."
	}
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		g.log.Error("failed to respond to bnet-auth", zap.Error(err))
	}
}

// authStartText builds the signed authorization link for one member of one
// Discord server.
func (g *Gateway) authStartText(discordGuildID, discordUserID string) (string, error) {
	systemID, err := strconv.ParseInt(discordGuildID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed guild id %q: %w", discordGuildID, err)
	}
	system, err := roster.RemoteSystemByTypeAndSystemID(g.db, models.RemoteSystemDiscord, systemID)
	if err != nil {
		return "", fmt.Errorf("no remote system for discord guild %d: %w", systemID, err)
	}
	mac, err := signature.Sign(system.HmacKey, discordUserID)
	if err != nil {
		return "", err
	}
	link := fmt.Sprintf("%s/auth/start?systemId=%d&userId=%s&mac=%s",
		g.rootURL, system.ID, discordUserID, url.QueryEscape(mac))
	return "To authenticate follow this link: " + link, nil
}
