package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guild-loot/internal/command"
	"guild-loot/pkg/config"
	"guild-loot/pkg/logger"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const commandTimeout = 15 * time.Second

// responder is the slice of the discord session used to answer interactions.
type responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Bot serves slash commands through the dispatcher.
type Bot struct {
	session    *discordgo.Session
	dispatcher *command.Dispatcher
	cfg        config.BotConfig
}

func New(cfg config.BotConfig, dispatcher *command.Dispatcher) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("bot token is not configured")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{session: session, dispatcher: dispatcher, cfg: cfg}
	session.AddHandler(b.onReady)
	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.handleInteraction(s, i)
	})
	return b, nil
}

// Start connects to the gateway and registers the slash commands.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	appID := b.cfg.AppID
	if appID == "" && b.session.State != nil && b.session.State.User != nil {
		appID = b.session.State.User.ID
	}
	registered, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, ApplicationCommands())
	if err != nil {
		b.session.Close()
		return fmt.Errorf("failed to register slash commands: %w", err)
	}
	logger.L.Info("Slash commands registered", zap.Int("count", len(registered)), zap.String("guildID", b.cfg.GuildID))
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	logger.L.Info("Bot connected", zap.String("user", r.User.Username), zap.Int("guilds", len(r.Guilds)))
	if err := s.UpdateGameStatus(0, b.cfg.Status); err != nil {
		logger.L.Warn("Failed to set presence", zap.Error(err))
	}
}

func (b *Bot) handleInteraction(s responder, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	inv := Invocation(i.Interaction)
	base := logger.NewContext(context.Background(), zap.String("interactionID", i.ID))

	// rejections need no store access and are answered directly, privately
	def, ok := command.Lookup(inv.Command)
	if !ok || (def.Admin && !b.dispatcher.Admin(inv)) {
		resp := b.dispatcher.Execute(base, inv)
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: resp.Pages[0], Flags: discordgo.MessageFlagsEphemeral},
		})
		if err != nil {
			logger.L.Error("Failed to answer interaction", zap.String("command", inv.Command), zap.Error(err))
		}
		return
	}

	// Discord wants an answer within three seconds; acknowledge first.
	deferred := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if def.Name == "myloot" {
		deferred.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := s.InteractionRespond(i.Interaction, deferred); err != nil {
		logger.L.Error("Failed to acknowledge interaction", zap.String("command", inv.Command), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(base, commandTimeout)
	defer cancel()
	resp := b.dispatcher.Execute(ctx, inv)

	for _, page := range resp.Pages {
		params := &discordgo.WebhookParams{Content: page}
		if resp.Ephemeral {
			params.Flags = discordgo.MessageFlagsEphemeral
		}
		if _, err := s.FollowupMessageCreate(i.Interaction, true, params); err != nil {
			logger.L.Error("Failed to send follow-up", zap.String("command", inv.Command), zap.Error(err))
			return
		}
	}
}
