package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sentineldb/internal/alerting"
	"sentineldb/internal/collector"
	"sentineldb/internal/config"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check database connectivity and send test alerts",
	Long: `Connects to the monitored database and prints its version, then sends a
test message through Slack and Twilio. Exits non-zero unless the database is
reachable and at least one remote channel works.`,
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger = logger.Named("verify")

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	separator := strings.Repeat("-", 50)
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, separator)
	dbOK := verifyDatabase(ctx, cfg.Database, logger)
	fmt.Fprintln(out, separator)
	slackOK := verifySlack(ctx, cfg.Alerting, logger)
	fmt.Fprintln(out, separator)
	twilioOK := verifyTwilio(ctx, cfg.Alerting.Twilio, logger)
	fmt.Fprintln(out, separator)

	if !dbOK || !(slackOK || twilioOK) {
		logger.Warn("verification incomplete, fix the errors above and try again")
		return fmt.Errorf("verification failed (database=%t slack=%t twilio=%t)", dbOK, slackOK, twilioOK)
	}
	logger.Info("setup verification complete, ready to start the monitor")
	return nil
}

func verifyDatabase(ctx context.Context, cfg config.Database, logger *zap.Logger) bool {
	logger.Info("checking database connection", zap.String("driver", cfg.Driver))

	source, err := collector.NewSQLSource(cfg, 0, logger)
	if err != nil {
		logger.Error("database connection failed", zap.Error(err))
		return false
	}
	defer source.Close()

	if err := source.Ping(ctx); err != nil {
		logger.Error("database connection failed", zap.Error(err))
		return false
	}
	version, err := source.Version(ctx)
	if err != nil {
		logger.Error("failed to read database version", zap.Error(err))
		return false
	}
	logger.Info("database connected", zap.String("version", firstLine(version)))
	return true
}

func verifySlack(ctx context.Context, cfg config.Alerting, logger *zap.Logger) bool {
	logger.Info("checking slack webhook")
	if !strings.Contains(cfg.SlackWebhookURL, "hooks.slack.com") {
		logger.Warn("slack webhook url is not configured or invalid")
		return false
	}

	ch := alerting.NewSlackChannel(cfg.SlackWebhookURL, time.Duration(cfg.TimeoutSeconds)*time.Second)
	if err := ch.SendTest(ctx); err != nil {
		logger.Error("slack test alert failed", zap.Error(err))
		return false
	}
	logger.Info("slack test alert sent")
	return true
}

func verifyTwilio(ctx context.Context, cfg config.Twilio, logger *zap.Logger) bool {
	logger.Info("checking twilio sms")
	if !cfg.Enabled() {
		logger.Warn("twilio credentials are missing")
		return false
	}

	ch := alerting.NewTwilioChannel(alerting.TwilioConfig{
		AccountSID: cfg.AccountSID,
		AuthToken:  cfg.AuthToken,
		FromPhone:  cfg.FromPhone,
		ToPhone:    cfg.ToPhone,
	})
	if err := ch.SendTest(ctx); err != nil {
		logger.Error("twilio test sms failed", zap.Error(err))
		return false
	}
	logger.Info("twilio test sms sent", zap.String("sid", ch.LastSID()))
	return true
}

// firstLine trims multi-line version banners such as SQL Server's @@VERSION.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
