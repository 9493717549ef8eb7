package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guizzs26/attendance_poll_bot/internal/model"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_APP_TOKEN", "xapp-test")
	t.Setenv("CHANNEL_ID", "C123")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "xoxb-test", cfg.SlackBotToken)
	assert.Equal(t, "C123", cfg.ChannelID)
	assert.Equal(t, uint(0), cfg.PollInterval)
	assert.Equal(t, model.DefaultCategories, cfg.PollCategories())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "none", cfg.EventBackend)
	assert.Equal(t, "none", cfg.ArchiveBackend)
}

func TestLoadMissingRequired(t *testing.T) {
	testCases := []string{"SLACK_BOT_TOKEN", "SLACK_APP_TOKEN", "CHANNEL_ID"}

	for _, name := range testCases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(name, "")

			_, err := Load(nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadIntervalFlagOverridesEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("POLL_INTERVAL", "60")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, uint(60), cfg.PollInterval)

	cfg, err = Load([]string{"-interval", "5", "-addr", ":9090"})
	require.NoError(t, err)
	assert.Equal(t, uint(5), cfg.PollInterval)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
}

func TestLoadRejectsNegativeInterval(t *testing.T) {
	setRequired(t)

	_, err := Load([]string{"-interval", "-1"})
	assert.Error(t, err)
}

func TestLoadCustomCategories(t *testing.T) {
	setRequired(t)
	t.Setenv("POLL_CATEGORIES", "Sat,Sun,Sat,")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, []model.Category{"Sat", "Sun"}, cfg.PollCategories())
}

func TestLoadUnsupportedBackends(t *testing.T) {
	setRequired(t)
	t.Setenv("EVENT_BACKEND", "nats")
	_, err := Load(nil)
	assert.Error(t, err)

	t.Setenv("EVENT_BACKEND", "kafka")
	t.Setenv("ARCHIVE_BACKEND", "mongo")
	_, err = Load(nil)
	assert.Error(t, err)
}
