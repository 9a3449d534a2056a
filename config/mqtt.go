package config

import (
	"crypto/tls"
	"fmt"
	"time"
)

// MQTTConfig defines the broker connection used for telemetry and remote
// commands.
type MQTTConfig struct {
	Enabled    bool   `json:"enabled"`
	Broker     string `json:"broker"`
	ClientID   string `json:"client_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	UseTLS     bool   `json:"use_tls"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
	CABundle   string `json:"ca_bundle"`
	// AuthMethod is "username_password", "mtls" or "both".
	AuthMethod string `json:"auth_method"`
	// TopicPrefix roots the state, command and notice topics.
	TopicPrefix string `json:"topic_prefix"`
	// QoS per topic kind: "state", "command", "notice".
	QoS             map[string]byte `json:"qos"`
	StateIntervalMS int             `json:"state_interval_ms"`
	MaxRetries      int             `json:"max_retries"`
	BackoffMS       int             `json:"backoff_ms"`
	TLSConfig       *tls.Config     `json:"-"`
}

func (c *MQTTConfig) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "evdash"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "evdash"
	}
	if c.StateIntervalMS == 0 {
		c.StateIntervalMS = 1000
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 200
	}
}

func (c MQTTConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	switch c.AuthMethod {
	case "", "username_password", "mtls", "both":
	default:
		return fmt.Errorf("unknown auth_method %q", c.AuthMethod)
	}
	if c.StateIntervalMS <= 0 {
		return fmt.Errorf("state_interval_ms must be positive")
	}
	return nil
}

// StateInterval returns StateIntervalMS as a duration.
func (c MQTTConfig) StateInterval() time.Duration {
	return time.Duration(c.StateIntervalMS) * time.Millisecond
}

// Backoff returns BackoffMS as a duration.
func (c MQTTConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffMS) * time.Millisecond
}
