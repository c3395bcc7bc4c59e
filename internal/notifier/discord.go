package notifier

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/sk-sanagustin/yep-id/internal/models"
)

// ChannelSender is the slice of *discordgo.Session the staff feed needs.
type ChannelSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts registrations and check-ins to the staff channel.
// Per-participant mail (reminders, points, announcements) is not mirrored.
type DiscordNotifier struct {
	session   ChannelSender
	channelID string
}

func NewDiscordNotifier(session ChannelSender, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

func (n *DiscordNotifier) post(message string) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	_, err := n.session.ChannelMessageSend(n.channelID, message)
	if err != nil {
		log.Printf("Failed to send discord message: %v", err)
		return err
	}

	return nil
}

func (n *DiscordNotifier) NotifyRegistration(p models.Participant, _ []byte) error {
	zone := p.Zone
	if zone == "" {
		zone = "-"
	}
	return n.post(fmt.Sprintf("📝 **New Registration**\n**ID:** %s\n**Name:** %s\n**Zone:** %s\n**Age Group:** %s",
		p.DisplayID,
		p.Name,
		zone,
		p.YouthAgeGroup,
	))
}

func (n *DiscordNotifier) NotifyAttendance(p models.Participant, event models.Event, pointsEarned int) error {
	return n.post(fmt.Sprintf("✅ **Check-in**\n**Event:** %s (%s)\n**Participant:** %s (%s)\n**Points:** +%d",
		event.Name,
		event.Date,
		p.Name,
		p.DisplayID,
		pointsEarned,
	))
}

func (n *DiscordNotifier) NotifyReminder(models.Participant, models.Event) error { return nil }

func (n *DiscordNotifier) NotifyPoints(models.Participant, int, int) error { return nil }

func (n *DiscordNotifier) Announce(models.Participant, string, string) error { return nil }
