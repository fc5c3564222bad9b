package alerting

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the slice of the Twilio REST client used for SMS.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromPhone  string
	ToPhone    string
}

// TwilioChannel sends alerts as SMS through the Twilio Messages API.
type TwilioChannel struct {
	api  messageCreator
	from string
	to   string

	lastSID string
}

func NewTwilioChannel(cfg TwilioConfig) *TwilioChannel {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioChannel{api: client.Api, from: cfg.FromPhone, to: cfg.ToPhone}
}

func (t *TwilioChannel) Name() string { return "twilio" }

func (t *TwilioChannel) Deliver(_ context.Context, message string) error {
	return t.send("DB MONITOR ALERT: " + message)
}

// SendTest sends a fixed SMS confirming the credentials and numbers work.
func (t *TwilioChannel) SendTest(_ context.Context) error {
	return t.send("✅ DB Monitor Test Alert: Twilio integration verified successfully!")
}

func (t *TwilioChannel) send(body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(t.to)
	params.SetFrom(t.from)
	params.SetBody(body)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	if resp != nil && resp.Sid != nil {
		t.lastSID = *resp.Sid
	}
	return nil
}

// LastSID returns the SID of the most recent message accepted by Twilio.
func (t *TwilioChannel) LastSID() string { return t.lastSID }
