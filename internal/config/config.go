// Package config loads sekia-discord settings from file, environment, and defaults.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/sekia-ai/sekia-discord/internal/secrets"
)

// Config is the full configuration. It is built once at startup and handed to
// the webhook server and gateway listener constructors.
type Config struct {
	Discord DiscordConfig `mapstructure:"discord"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// DiscordConfig holds application credentials from the Developer Portal.
type DiscordConfig struct {
	PublicKey     string `mapstructure:"public_key"`
	BotToken      string `mapstructure:"bot_token"` // #nosec G117 -- config deserialization, not hardcoded
	ApplicationID string `mapstructure:"application_id"`
	GuildID       string `mapstructure:"guild_id"`
}

// WebhookConfig holds interactions endpoint HTTP settings.
type WebhookConfig struct {
	Listen string `mapstructure:"listen"`
	Path   string `mapstructure:"path"`
}

// Load reads the configuration. A missing public key is not an error here:
// the webhook server fails closed on its own.
func Load(cfgFile string) (Config, error) {
	v := viper.New()

	v.SetDefault("webhook.listen", ":8080")
	v.SetDefault("webhook.path", "/")

	v.SetConfigType("toml")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("sekia-discord")
		v.AddConfigPath("/etc/sekia")
		v.AddConfigPath("$HOME/.config/sekia")
		v.AddConfigPath(".")
	}

	v.BindEnv("discord.public_key", "DISCORD_PUBLIC_KEY")
	v.BindEnv("discord.bot_token", "DISCORD_BOT_TOKEN")
	v.BindEnv("discord.application_id", "DISCORD_APPLICATION_ID")
	v.BindEnv("discord.guild_id", "DISCORD_GUILD_ID")
	v.BindEnv("webhook.listen", "SEKIA_DISCORD_LISTEN")
	v.BindEnv("webhook.path", "SEKIA_DISCORD_PATH")

	if err := v.ReadInConfig(); err != nil {
		// The config file is optional unless explicitly requested.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	// Only look for an identity when there is something to decrypt.
	if secrets.HasEncryptedValues(v) {
		identities, err := secrets.ResolveIdentity(v)
		if err != nil {
			return Config{}, fmt.Errorf("resolve age identity: %w", err)
		}
		if identities == nil {
			return Config{}, secrets.ErrNoIdentity
		}
		if err := secrets.DecryptViperConfig(v, identities); err != nil {
			return Config{}, fmt.Errorf("decrypt config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// RequireBotToken returns an error if no bot token is configured.
func (c Config) RequireBotToken() error {
	if c.Discord.BotToken == "" {
		return errors.New("discord.bot_token is required (set via config file or DISCORD_BOT_TOKEN env var)")
	}
	return nil
}

// RequireApplicationID returns an error if no application ID is configured.
func (c Config) RequireApplicationID() error {
	if c.Discord.ApplicationID == "" {
		return errors.New("discord.application_id is required (set via config file or DISCORD_APPLICATION_ID env var)")
	}
	return nil
}
