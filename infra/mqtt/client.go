package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/taxidispatch/core/model"
	"github.com/kilianp07/taxidispatch/core/monitoring"
	coremqtt "github.com/kilianp07/taxidispatch/core/mqtt"
	"github.com/kilianp07/taxidispatch/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string          `json:"broker"`
	ClientID    string          `json:"client_id"`
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	TopicPrefix string          `json:"topic_prefix"`
	UseTLS      bool            `json:"use_tls"`
	ClientCert  string          `json:"client_cert"`
	ClientKey   string          `json:"client_key"`
	CABundle    string          `json:"ca_bundle"`
	AuthMethod  string          `json:"auth_method"`
	QoS         map[string]byte `json:"qos"`
	LWTTopic    string          `json:"lwt_topic"`
	LWTPayload  string          `json:"lwt_payload"`
	LWTQoS      byte            `json:"lwt_qos"`
	LWTRetain   bool            `json:"lwt_retain"`
	MaxRetries  int             `json:"max_retries"`
	BackoffMS   int             `json:"backoff_ms"`
	AckTimeout  int             `json:"ack_timeout_ms"`
	TLSConfig   *tls.Config     `json:"-"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Broker == "" {
		c.Broker = "tcp://localhost:1883"
	}
	if c.ClientID == "" {
		c.ClientID = "taxi-dispatcher"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "taxi"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = 2000
	}
}

// Validate checks the broker address and TLS settings.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	if strings.ContainsAny(c.TopicPrefix, "+#") {
		return fmt.Errorf("mqtt: topic_prefix %q contains wildcards", c.TopicPrefix)
	}
	if c.UseTLS && c.TLSConfig == nil && (c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "") {
		return fmt.Errorf("mqtt: tls requires client_cert, client_key and ca_bundle")
	}
	return nil
}

// Handler receives every message arriving on the inbound topics.
type Handler interface {
	HandleMessage(topic string, payload []byte)
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient implements core/mqtt.Client using Eclipse Paho.
type PahoClient struct {
	cli    pahoClient
	prefix string
	qos    map[string]byte

	mu         sync.Mutex
	ackChans   map[string]chan struct{}
	logger     logger.Logger
	monitor    monitoring.Monitor
	maxRetries int
	backoff    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker and subscribes to the ack topic.
// When inbound is not nil, fare, bid, payment and state topics are
// forwarded to it.
func NewPahoClient(cfg Config, inbound Handler) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		prefix:     cfg.TopicPrefix,
		ackChans:   make(map[string]chan struct{}),
		logger:     log,
		monitor:    monitoring.NopMonitor{},
		qos:        cfg.QoS,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(pc.topic(coremqtt.TopicAcks), pc.qosFor("ack"), pc.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
		if inbound == nil {
			return
		}
		forward := func(_ paho.Client, msg paho.Message) {
			inbound.HandleMessage(strings.TrimPrefix(msg.Topic(), pc.prefix+"/"), msg.Payload())
		}
		for _, t := range pc.inboundTopics() {
			if token := c.Subscribe(t, pc.qosFor("inbound"), forward); token.Wait() && token.Error() != nil {
				log.Errorf("subscribe %s: %v", t, token.Error())
			}
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	// Handlers publish cancellations back to the broker.
	opts.SetOrderMatters(false)
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// SetMonitor configures where failed publishes are reported.
func (p *PahoClient) SetMonitor(mon monitoring.Monitor) {
	if mon == nil {
		mon = monitoring.NopMonitor{}
	}
	p.mu.Lock()
	p.monitor = mon
	p.mu.Unlock()
}

func (p *PahoClient) topic(name string, args ...any) string {
	if len(args) > 0 {
		name = fmt.Sprintf(name, args...)
	}
	return p.prefix + "/" + name
}

func (p *PahoClient) inboundTopics() []string {
	return []string{
		p.topic(coremqtt.TopicNewFare),
		p.topic(coremqtt.TopicCancelFare),
		p.topic(coremqtt.TopicBid),
		p.topic(coremqtt.TopicPayments),
		p.topic(coremqtt.TopicState, "+"),
	}
}

func (p *PahoClient) qosFor(kind string) byte {
	if q, ok := p.qos[kind]; ok {
		return q
	}
	return 0
}

func (p *PahoClient) onAck(_ paho.Client, msg paho.Message) {
	var m coremqtt.Ack
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		p.logger.Errorf("failed to decode ack: %v", err)
		return
	}
	p.mu.Lock()
	ch, ok := p.ackChans[m.MessageID]
	if ok {
		select {
		case ch <- struct{}{}:
		default:
		}
		p.logger.Debugf("received ack %s from %s", m.MessageID, m.Agent)
	}
	p.mu.Unlock()
}

// PublishOffer broadcasts a priced fare on the broadcast topic.
func (p *PahoClient) PublishOffer(offer coremqtt.FareOffer) (string, error) {
	if offer.MessageID == "" {
		offer.MessageID = uuid.NewString()
	}
	if offer.Timestamp == 0 {
		offer.Timestamp = time.Now().UnixMilli()
	}
	if err := p.publish(p.topic(coremqtt.TopicBroadcast), "broadcast", offer, nil); err != nil {
		return "", err
	}
	return offer.MessageID, nil
}

// SendAllocation publishes the award on the agent's allocation topic and
// starts tracking its acknowledgment.
func (p *PahoClient) SendAllocation(agent model.AgentID, origin model.Coord) (string, error) {
	msg := coremqtt.Allocation{
		MessageID: uuid.NewString(),
		Agent:     agent,
		Origin:    origin,
		Timestamp: time.Now().UnixMilli(),
	}
	tags := map[string]string{"agent_id": string(agent), "module": "mqtt", "kind": "allocation"}
	p.track(msg.MessageID)
	if err := p.publish(p.topic(coremqtt.TopicAllocation, agent), "allocation", msg, tags); err != nil {
		p.untrack(msg.MessageID)
		return "", err
	}
	return msg.MessageID, nil
}

// SendCancellation publishes a cancellation on the agent's cancel topic.
func (p *PahoClient) SendCancellation(agent model.AgentID, origin model.Coord) (string, error) {
	msg := coremqtt.Cancellation{
		MessageID: uuid.NewString(),
		Agent:     agent,
		Origin:    origin,
		Timestamp: time.Now().UnixMilli(),
	}
	tags := map[string]string{"agent_id": string(agent), "module": "mqtt", "kind": "cancellation"}
	p.track(msg.MessageID)
	if err := p.publish(p.topic(coremqtt.TopicCancel, agent), "cancel", msg, tags); err != nil {
		p.untrack(msg.MessageID)
		return "", err
	}
	return msg.MessageID, nil
}

// track registers id before publishing so an early ack is not lost.
func (p *PahoClient) track(id string) {
	p.mu.Lock()
	p.ackChans[id] = make(chan struct{}, 1)
	p.mu.Unlock()
}

func (p *PahoClient) untrack(id string) {
	p.mu.Lock()
	delete(p.ackChans, id)
	p.mu.Unlock()
}

func (p *PahoClient) publish(topic, kind string, v any, tags map[string]string) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	qos := p.qosFor(kind)
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published %s to %s", kind, topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	if tags == nil {
		tags = map[string]string{"module": "mqtt", "kind": kind}
	}
	p.mu.Lock()
	mon := p.monitor
	p.mu.Unlock()
	mon.CaptureException(publishErr, tags)
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// WaitForAck blocks until an ack for the given message ID is received or timeout.
func (p *PahoClient) WaitForAck(messageID string, timeout time.Duration) (bool, error) {
	p.mu.Lock()
	ch := p.ackChans[messageID]
	p.mu.Unlock()
	if ch == nil {
		return false, coremqtt.ErrUnknownMessage
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	defer p.untrack(messageID)
	select {
	case <-ch:
		return true, nil
	case <-timer.C:
		return false, fmt.Errorf("%s: %w", messageID, coremqtt.ErrAckTimeout)
	}
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
