package notify

import "mushroom-dashboard/internal/domain"

// Audience resolves who receives which notification.
type Audience struct {
	AdminPhones []string
	AdminEmails []string
	// VoiceReminderThreshold escalates reminders to a phone call once this many
	// rewards are unclaimed. Zero disables voice reminders.
	VoiceReminderThreshold int
}

// Customer targets a customer key on the given channels.
func Customer(key string, channels ...domain.Channel) []Target {
	out := make([]Target, 0, len(channels))
	for _, ch := range channels {
		out = append(out, Target{Channel: ch, Address: key})
	}
	return out
}

// Admins targets every configured admin phone over WhatsApp and every admin email.
func (a Audience) Admins() []Target {
	out := make([]Target, 0, len(a.AdminPhones)+len(a.AdminEmails))
	for _, p := range a.AdminPhones {
		out = append(out, Target{Channel: domain.ChannelWhatsApp, Address: p})
	}
	for _, e := range a.AdminEmails {
		out = append(out, Target{Channel: domain.ChannelEmail, Address: e})
	}
	return out
}

// Reminder targets a reward reminder over WhatsApp, escalating to voice for
// large unclaimed pools.
func (a Audience) Reminder(c domain.Customer) []Target {
	targets := Customer(c.Key, domain.ChannelWhatsApp)
	if a.VoiceReminderThreshold > 0 && c.FreeRewardsAvailable-c.RewardsRedeemed >= a.VoiceReminderThreshold {
		targets = append(targets, Target{Channel: domain.ChannelVoice, Address: c.Key})
	}
	return targets
}

// ReminderFallback targets the reminder over SMS when the WhatsApp attempt was not sent.
func (a Audience) ReminderFallback(c domain.Customer) []Target {
	return Customer(c.Key, domain.ChannelSMS)
}
