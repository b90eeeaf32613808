package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/zappabad/dealsviewer/internal/deal"
	"github.com/zappabad/dealsviewer/internal/deal/service"
	"github.com/zappabad/dealsviewer/internal/deal/view"
	"github.com/zappabad/dealsviewer/internal/feed/kafka"
	"github.com/zappabad/dealsviewer/internal/feed/simulator"
	"github.com/zappabad/dealsviewer/internal/feed/websocket"
	"github.com/zappabad/dealsviewer/internal/logging"
)

// Feed source names.
const (
	SourceSimulator = "simulator"
	SourceWebsocket = "websocket"
	SourceKafka     = "kafka"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Window   WindowConfig   `mapstructure:"window"`
	Sort     SortConfig     `mapstructure:"sort"`
	Service  ServiceConfig  `mapstructure:"service"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	DealFeed DealFeedConfig `mapstructure:"dealfeed"`
}

type AppConfig struct {
	Env string `mapstructure:"env"` // e.g., "local", "prod"
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type FeedConfig struct {
	Source    string          `mapstructure:"source"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Websocket WebsocketConfig `mapstructure:"websocket"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
}

type SimulatorConfig struct {
	InitialDeals int           `mapstructure:"initial_deals"`
	BatchSize    int           `mapstructure:"batch_size"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
	Seed         int64         `mapstructure:"seed"`
}

type WebsocketConfig struct {
	URL string `mapstructure:"url"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type WindowConfig struct {
	PageSize      int     `mapstructure:"page_size"`
	GrowThreshold float64 `mapstructure:"grow_threshold"`
	PartialPage   bool    `mapstructure:"partial_page"`
}

type SortConfig struct {
	DefaultKey        string `mapstructure:"default_key"`
	DefaultDescending bool   `mapstructure:"default_descending"`
}

type ServiceConfig struct {
	ResortOnBatch bool `mapstructure:"resort_on_batch"`
	EventBuffer   int  `mapstructure:"event_buffer"`
	DropEvents    bool `mapstructure:"drop_events"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the endpoint
}

type DealFeedConfig struct {
	Addr         string `mapstructure:"addr"`
	Path         string `mapstructure:"path"`
	PublishKafka bool   `mapstructure:"publish_kafka"`
}

// LoadConfig reads configuration from .env file, an optional config.yaml,
// environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	return load(v)
}

// LoadConfigFile is LoadConfig with an explicit config file.
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	// .env values become real env vars so FEED_SOURCE etc. apply below
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	// "feed.source" -> "FEED_SOURCE"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnv(v, "app.env", "log.level", "log.file")
	bindEnv(v, "feed.source", "feed.websocket.url")
	bindEnv(v, "feed.simulator.initial_deals", "feed.simulator.batch_size", "feed.simulator.tick_interval", "feed.simulator.seed")
	bindEnv(v, "feed.kafka.brokers", "feed.kafka.topic", "feed.kafka.group_id")
	bindEnv(v, "window.page_size", "window.grow_threshold", "window.partial_page")
	bindEnv(v, "sort.default_key", "sort.default_descending")
	bindEnv(v, "service.resort_on_batch", "service.event_buffer", "service.drop_events")
	bindEnv(v, "metrics.addr", "dealfeed.addr", "dealfeed.path", "dealfeed.publish_kafka")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "local")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "dealsviewer.log")

	v.SetDefault("feed.source", SourceSimulator)
	v.SetDefault("feed.simulator.initial_deals", 1000)
	v.SetDefault("feed.simulator.batch_size", 100)
	v.SetDefault("feed.simulator.tick_interval", time.Second)
	v.SetDefault("feed.simulator.seed", 0)
	v.SetDefault("feed.websocket.url", "ws://localhost:8090/deals")
	v.SetDefault("feed.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("feed.kafka.topic", "deals")
	v.SetDefault("feed.kafka.group_id", "dealsviewer")

	v.SetDefault("window.page_size", 100)
	v.SetDefault("window.grow_threshold", 1/1.5)
	v.SetDefault("window.partial_page", true)

	v.SetDefault("sort.default_key", deal.SortByDate.String())
	v.SetDefault("sort.default_descending", false)

	v.SetDefault("service.resort_on_batch", true)
	v.SetDefault("service.event_buffer", 64)
	v.SetDefault("service.drop_events", false)

	v.SetDefault("metrics.addr", "")

	v.SetDefault("dealfeed.addr", ":8090")
	v.SetDefault("dealfeed.path", "/deals")
	v.SetDefault("dealfeed.publish_kafka", false)
}

// Validate checks values the components cannot default on their own.
func (c *Config) Validate() error {
	if c.Window.PageSize <= 0 {
		return fmt.Errorf("window.page_size must be positive, got %d", c.Window.PageSize)
	}
	if c.Window.GrowThreshold <= 0 || c.Window.GrowThreshold >= 1 {
		return fmt.Errorf("window.grow_threshold must be in (0,1), got %v", c.Window.GrowThreshold)
	}
	if _, err := deal.ParseSortKey(c.Sort.DefaultKey); err != nil {
		return fmt.Errorf("sort.default_key: %w", err)
	}
	switch c.Feed.Source {
	case SourceSimulator, SourceWebsocket:
	case SourceKafka:
		if len(c.Feed.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers cannot be empty")
		}
	default:
		return fmt.Errorf("unknown feed.source %q", c.Feed.Source)
	}
	return nil
}

// Logging returns the logger settings.
func (c *Config) Logging() logging.Config {
	return logging.Config{Env: c.App.Env, Level: c.Log.Level, File: c.Log.File}
}

// DealService returns the deal service settings.
func (c *Config) DealService() service.Config {
	key, _ := deal.ParseSortKey(c.Sort.DefaultKey)

	cfg := service.DefaultConfig()
	cfg.Window = view.WindowConfig{
		PageSize:      c.Window.PageSize,
		GrowThreshold: c.Window.GrowThreshold,
		PartialPage:   c.Window.PartialPage,
	}
	cfg.InitialSort = deal.SortState{Key: key, Descending: c.Sort.DefaultDescending}
	cfg.ResortOnBatch = c.Service.ResortOnBatch
	cfg.EventBuffer = c.Service.EventBuffer
	cfg.DropEvents = c.Service.DropEvents
	return cfg
}

// Simulator returns the simulator feed settings.
func (c *Config) Simulator() simulator.Config {
	cfg := simulator.DefaultConfig()
	cfg.InitialDeals = c.Feed.Simulator.InitialDeals
	cfg.BatchSize = c.Feed.Simulator.BatchSize
	cfg.TickInterval = c.Feed.Simulator.TickInterval
	cfg.Seed = c.Feed.Simulator.Seed
	return cfg
}

// WebsocketClient returns the websocket feed client settings.
func (c *Config) WebsocketClient() websocket.ClientConfig {
	cfg := websocket.DefaultClientConfig()
	cfg.URL = c.Feed.Websocket.URL
	return cfg
}

// Kafka returns the Kafka feed settings.
func (c *Config) Kafka() kafka.Config {
	cfg := kafka.DefaultConfig()
	cfg.Brokers = c.Feed.Kafka.Brokers
	cfg.Topic = c.Feed.Kafka.Topic
	cfg.GroupID = c.Feed.Kafka.GroupID
	return cfg
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
