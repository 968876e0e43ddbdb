package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Bot       BotConfig       `mapstructure:"bot"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Messaging MessagingConfig `mapstructure:"messaging"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "mysql".
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type BotConfig struct {
	Token   string `mapstructure:"token"`
	AppID   string `mapstructure:"app_id"`
	GuildID string `mapstructure:"guild_id"`
	// AdminIDs are platform user ids allowed to run guild master commands.
	AdminIDs []string `mapstructure:"admin_ids"`
	Status   string   `mapstructure:"status"`
	// GuildName heads the rendered item list.
	GuildName string `mapstructure:"guild_name"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	Level          string `mapstructure:"level"`
	ProductionMode bool   `mapstructure:"production_mode"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type MessagingConfig struct {
	// Provider is "channel" (in-process) or "kafka".
	Provider string      `mapstructure:"provider"`
	Kafka    KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
}

type WebSocketConfig struct {
	BroadcastBufferSize int `mapstructure:"broadcast_buffer_size"`

	WriteWaitSeconds int `mapstructure:"write_wait_seconds"`
	PongWaitSeconds  int `mapstructure:"pong_wait_seconds"`
	MaxMessageSize   int `mapstructure:"max_message_size"`
	// retry settings for slow board clients
	MessageRetryCount      int `mapstructure:"message_retry_count"`
	MessageRetryIntervalMs int `mapstructure:"message_retry_interval_ms"`
}

// IsAdmin reports whether the platform user id is a configured admin.
func (c BotConfig) IsAdmin(externalID string) bool {
	for _, id := range c.AdminIDs {
		if id == externalID {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "loot.db")
	v.SetDefault("bot.status", "Type /help")
	v.SetDefault("bot.guild_name", "Guild")
	v.SetDefault("server.port", 10000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.production_mode", false)
	v.SetDefault("jwt.expiration", 24*time.Hour)
	v.SetDefault("messaging.provider", "channel")
	v.SetDefault("messaging.kafka.topic", "loot_queue_events")
	v.SetDefault("messaging.kafka.consumer_group", "loot-board")
	v.SetDefault("websocket.broadcast_buffer_size", 256)
	v.SetDefault("websocket.write_wait_seconds", 10)
	v.SetDefault("websocket.pong_wait_seconds", 60)
	v.SetDefault("websocket.max_message_size", 512)
	v.SetDefault("websocket.message_retry_count", 3)
	v.SetDefault("websocket.message_retry_interval_ms", 100)
}

// Load reads configuration from an optional YAML file, a .env file in the
// working directory and the environment. configFile may be empty, in which
// case ./config/config.yaml is tried.
func Load(configFile string) (*Config, error) {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("LOOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// names used by the hosted deployment
	_ = v.BindEnv("bot.token", "LOOT_BOT_TOKEN", "DISCORD_TOKEN")
	_ = v.BindEnv("server.port", "LOOT_SERVER_PORT", "PORT")
	for _, key := range []string{"bot.app_id", "bot.guild_id", "bot.admin_ids", "jwt.secret", "messaging.kafka.brokers"} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
