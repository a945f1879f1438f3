package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.RateLimit = ""
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.BcryptCost = 4
	cfg.Cache.FetchTimeout = 2 * time.Second
	cfg.Scheduler.Enabled = false
	cfg.Provider.HTTPTimeout = 5 * time.Second
	cfg.Provider.UserAgent = "newsd-test/1.0"
	cfg.Provider.AllowPrivateUpstreams = true
	cfg.Provider.RSS.Enabled = false
	cfg.Log.Level = "off"
	return cfg
}
