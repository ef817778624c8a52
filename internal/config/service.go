package config

type ServiceConfig struct {
	Name        string        `yaml:"name"`
	Environment string        `yaml:"environment"`
	Version     string        `yaml:"version"`
	ClientURL   string        `yaml:"client_url"`
	JWTSecret   string        `yaml:"jwt_secret"`
	Gateway     GatewayConfig `yaml:"gateway"`
}

// GatewayConfig controls the simulated payment gateway. FailureRate is the
// probability in [0, 1] that a capture is declined; Seed pins the random
// source for reproducible runs and is ignored when zero.
type GatewayConfig struct {
	FailureRate float64 `yaml:"failure_rate"`
	Seed        int64   `yaml:"seed"`
}
