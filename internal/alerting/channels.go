package alerting

import (
	"io"
	"time"

	"go.uber.org/zap"

	"sentineldb/internal/config"
)

// ChannelsFromConfig builds the configured channels. The console channel is
// added when requested explicitly or when no remote channel is configured.
func ChannelsFromConfig(cfg config.Alerting, console io.Writer, logger *zap.Logger) []Channel {
	if logger == nil {
		logger = zap.NewNop()
	}

	var channels []Channel
	if cfg.SlackWebhookURL != "" {
		channels = append(channels, NewSlackChannel(cfg.SlackWebhookURL, time.Duration(cfg.TimeoutSeconds)*time.Second))
	}
	if cfg.Twilio.Enabled() {
		channels = append(channels, NewTwilioChannel(TwilioConfig{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			FromPhone:  cfg.Twilio.FromPhone,
			ToPhone:    cfg.Twilio.ToPhone,
		}))
	}

	if len(channels) == 0 {
		logger.Warn("no alerting channels configured, printing to console instead")
	}
	if cfg.Console || len(channels) == 0 {
		channels = append([]Channel{NewConsoleChannel(console)}, channels...)
	}
	return channels
}
