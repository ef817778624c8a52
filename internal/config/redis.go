package config

import "time"

// RedisConfig holds the connection settings for the event broadcast channel.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// PublishTimeout bounds each publish call so a stalled broker cannot
	// block a request that has already committed its ledger transaction.
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}
