package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/evdash/config"
	"github.com/kilianp07/evdash/core/monitoring"
	"github.com/kilianp07/evdash/infra/logger"
)

// Topic kinds under the configured prefix.
const (
	TopicState         = "state"
	TopicCommand       = "command"
	TopicCommandResult = "command/result"
	TopicNotice        = "notice"
	TopicStatus        = "status"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// Client is a paho connection scoped to one topic prefix. Subscriptions are
// restored after a reconnect.
type Client struct {
	cli        pahoClient
	prefix     string
	qos        map[string]byte
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration

	mu   sync.Mutex
	subs map[string]paho.MessageHandler
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewClient connects to the broker described by cfg.
func NewClient(cfg config.MQTTConfig) (*Client, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	c := &Client{
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		logger:     log,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff(),
		subs:       make(map[string]paho.MessageHandler),
	}
	if c.backoff <= 0 {
		c.backoff = 100 * time.Millisecond
	}

	opts.OnConnect = func(pc paho.Client) {
		log.Infof("MQTT connected")
		pc.Publish(c.Topic(TopicStatus), 1, true, "online")
		c.mu.Lock()
		defer c.mu.Unlock()
		for topic, h := range c.subs {
			if token := pc.Subscribe(topic, c.qosFor(TopicCommand), h); token.Wait() && token.Error() != nil {
				log.Errorf("resubscribe %s: %v", topic, token.Error())
			}
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	cli := newMQTTClient(opts)
	c.cli = cli
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, token.Error())
	}
	return c, nil
}

// NewClientOptions builds mqtt client options from cfg. The client id gets a
// random suffix so several dashboards can share a broker, and a retained
// "offline" status is registered as last will.
func NewClientOptions(cfg config.MQTTConfig) (*paho.ClientOptions, error) {
	clientID := cfg.ClientID + "-" + uuid.NewString()[:8]
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(clientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := LoadTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	opts.SetWill(topic(cfg.TopicPrefix, TopicStatus), "offline", 1, true)
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in cfg.
func LoadTLSConfig(cfg config.MQTTConfig) (*tls.Config, error) {
	if cfg.TLSConfig != nil {
		return cfg.TLSConfig, nil
	}
	if cfg.ClientCert == "" || cfg.ClientKey == "" || cfg.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(cfg.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func topic(prefix, kind string) string {
	if prefix == "" {
		return kind
	}
	return prefix + "/" + kind
}

// Topic returns the full topic for kind.
func (c *Client) Topic(kind string) string { return topic(c.prefix, kind) }

func (c *Client) qosFor(kind string) byte {
	if q, ok := c.qos[kind]; ok {
		return q
	}
	return 0
}

// Publish sends payload to the topic of kind, retrying with exponential
// backoff. The final failure is reported to monitoring.
func (c *Client) Publish(kind string, retained bool, payload []byte) error {
	t := c.Topic(kind)
	qos := c.qosFor(kind)
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		token := c.cli.Publish(t, qos, retained, payload)
		token.Wait()
		if err = token.Error(); err == nil {
			return nil
		}
		c.logger.Errorf("publish %s attempt %d failed: %v", t, attempt+1, err)
		if attempt < c.maxRetries {
			time.Sleep(c.backoff * time.Duration(1<<attempt))
		}
	}
	monitoring.CaptureException(err, map[string]string{"module": "mqtt", "topic": t})
	return fmt.Errorf("publish %s: %w", t, err)
}

// Subscribe registers h for the topic of kind.
func (c *Client) Subscribe(kind string, h paho.MessageHandler) error {
	t := c.Topic(kind)
	c.mu.Lock()
	c.subs[t] = h
	c.mu.Unlock()
	if token := c.cli.Subscribe(t, c.qosFor(kind), h); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", t, token.Error())
	}
	return nil
}

// Disconnect marks the dashboard offline and closes the connection.
func (c *Client) Disconnect() {
	if c.cli != nil && c.cli.IsConnected() {
		c.cli.Publish(c.Topic(TopicStatus), 1, true, "offline").Wait()
		c.cli.Disconnect(250)
	}
}
