package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"ctfhost/config"
	"ctfhost/service"
	"ctfhost/utils"

	"github.com/bwmarrin/discordgo"
)

// DiscordAnnouncer posts solve announcements to a Discord channel. It
// consumes the solve feed, so announcements survive restarts and work
// even when the solve happened in another process.
type DiscordAnnouncer struct {
	session   *discordgo.Session
	channelId string
}

func NewDiscordAnnouncer() (*DiscordAnnouncer, error) {
	cfg := config.Env()
	if cfg.DiscordBotToken == "" || cfg.DiscordChannelID == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN or DISCORD_CHANNEL_ID environment variable not set")
	}
	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		return nil, err
	}
	if err := session.Open(); err != nil {
		return nil, err
	}
	return &DiscordAnnouncer{
		session:   session,
		channelId: cfg.DiscordChannelID,
	}, nil
}

// Run consumes the solve feed until the context is cancelled.
func (a *DiscordAnnouncer) Run(ctx context.Context) {
	reader, err := config.GetSolveReader("discord-announcer")
	if err != nil {
		log.Printf("Discord announcer disabled: %v", err)
		return
	}
	defer utils.Closer(reader)()
	defer utils.Closer(a.session)()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Failed to read solve event: %v", err)
			continue
		}
		event := service.SolveEvent{}
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("Failed to decode solve event: %v", err)
			continue
		}
		a.announce(&event)
	}
}

func (a *DiscordAnnouncer) announce(event *service.SolveEvent) {
	var text string
	if event.FirstBlood {
		text = fmt.Sprintf(":drop_of_blood: First blood! **%s** solved **%s** for %d points", event.Team, event.TaskTitle, event.Points)
	} else {
		text = fmt.Sprintf(":triangular_flag_on_post: **%s** solved **%s** for %d points", event.Team, event.TaskTitle, event.Points)
	}
	_, err := a.session.ChannelMessageSend(a.channelId, text)
	if err != nil {
		log.Printf("Failed to send solve announcement: %v", err)
	}
}
