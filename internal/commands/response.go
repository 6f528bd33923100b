package commands

import (
	"log"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// ParseGuildID returns 0 for interactions outside a guild.
func ParseGuildID(guildID string) int64 {
	if guildID == "" {
		return 0
	}
	id, err := strconv.ParseInt(guildID, 10, 64)
	if err != nil {
		log.Printf("Failed to parse guild ID '%s': %v", guildID, err)
		return 0
	}
	return id
}

// respondText answers the interaction with the first chunk of content and
// posts any remaining chunks to the channel.
func respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	chunks := splitMessage(content)
	if len(chunks) == 0 {
		chunks = []string{"(empty)"}
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: chunks[0]},
	})
	if err != nil {
		log.Printf("Failed to respond to interaction: %v", err)
		return
	}
	for _, c := range chunks[1:] {
		if _, err := s.ChannelMessageSend(i.ChannelID, c); err != nil {
			log.Printf("Failed to send message to channel %s: %v", i.ChannelID, err)
		}
	}
}

func getStringOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) *string {
	for _, o := range opts {
		if o.Name == name {
			v := o.StringValue()
			return &v
		}
	}
	return nil
}

func invokerID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
