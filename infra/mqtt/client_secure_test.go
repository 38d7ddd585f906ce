package mqtt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/taxidispatch/core/model"
	coremqtt "github.com/kilianp07/taxidispatch/core/mqtt"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	if err := os.WriteFile(certFile, certPEM, 0644); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0644); err != nil {
		t.Fatalf("write key: %v", err)
	}
	if err := os.WriteFile(caFile, certPEM, 0644); err != nil {
		t.Fatalf("write ca: %v", err)
	}
	return
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	if len(tlsCfg.Certificates) == 0 {
		t.Fatalf("no certs loaded")
	}
	if tlsCfg.RootCAs == nil {
		t.Fatalf("no root CAs")
	}
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Fatalf("auth not set")
	}
}

func restoreClient() {
	newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
}

func TestQoSSettings(t *testing.T) {
	mc := &mockClient{}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	defer restoreClient()
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", QoS: map[string]byte{"allocation": 2, "ack": 1}}
	cli, err := NewPahoClient(cfg, nil)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if len(mc.subscribed) != 1 || mc.subscribed[0].qos != 1 || mc.subscribed[0].topic != "taxi/acks" {
		t.Fatalf("ack subscription not applied: %+v", mc.subscribed)
	}
	msgID, err := cli.SendAllocation("t1", model.Coord{X: 1, Y: 2})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(mc.published) == 0 || mc.published[0].qos != 2 || mc.published[0].topic != "taxi/t1/allocation" {
		t.Fatalf("publish qos not applied: %+v", mc.published)
	}
	payload := fmt.Sprintf(`{"message_id":"%s","agent":"t1"}`, msgID)
	cli.onAck(nil, mockMessage{p: []byte(payload)})
	ok, err := cli.WaitForAck(msgID, time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("ack wait failed: %v", err)
	}
}

func TestInboundSubscriptions(t *testing.T) {
	mc := &mockClient{}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	defer restoreClient()
	router := NewRouter("w1", nil)
	if _, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", TopicPrefix: "city"}, router); err != nil {
		t.Fatalf("client: %v", err)
	}
	var topics []string
	for _, s := range mc.subscribed {
		topics = append(topics, s.topic)
	}
	want := []string{"city/acks", "city/fares/new", "city/fares/cancel", "city/fares/bid", "city/payments", "city/+/state"}
	if fmt.Sprint(topics) != fmt.Sprint(want) {
		t.Fatalf("subscriptions %v, want %v", topics, want)
	}
	// the prefix is stripped before routing
	mc.handlers[len(mc.handlers)-1](nil, mockMessage{topic: "city/t9/state", p: []byte(`{"number":9}`)})
	if router.Len() != 1 {
		t.Fatalf("state message not routed")
	}
}

func TestLWTConfigured(t *testing.T) {
	mc := &mockClient{}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	defer restoreClient()
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", LWTTopic: "lwt", LWTPayload: "bye", LWTQoS: 1}
	cli, err := NewPahoClient(cfg, nil)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if !mc.opts.WillEnabled {
		t.Fatalf("will not enabled")
	}
	if mc.opts.WillTopic != "lwt" || string(mc.opts.WillPayload) != "bye" {
		t.Fatalf("will options incorrect")
	}
	cli.Disconnect()
	if len(mc.published) != 0 {
		t.Fatalf("unexpected publish on disconnect")
	}
}

func TestRetryLogic(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	defer restoreClient()
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1}
	cli, err := NewPahoClient(cfg, nil)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if _, err := cli.PublishOffer(coremqtt.FareOffer{Price: 12}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(mc.published) != 2 || mc.published[1].topic != "taxi/fares/broadcast" {
		t.Fatalf("expected retries, got %+v", mc.published)
	}
}

func TestWaitForAckTimeout(t *testing.T) {
	mc := &mockClient{}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	defer restoreClient()
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", ClientID: "id"}, nil)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	msgID, _ := cli.SendCancellation("t1", model.Coord{})
	ok, err := cli.WaitForAck(msgID, time.Millisecond)
	if !errors.Is(err, coremqtt.ErrAckTimeout) || ok {
		t.Fatalf("expected timeout, got %v", err)
	}
	if _, err := cli.WaitForAck(msgID, time.Millisecond); !errors.Is(err, coremqtt.ErrUnknownMessage) {
		t.Fatalf("expected unknown message after timeout, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.TopicPrefix != "taxi" || cfg.MaxRetries != 3 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	cfg.TopicPrefix = "taxi/#"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected wildcard prefix to fail")
	}
	cfg.TopicPrefix = "taxi"
	cfg.UseTLS = true
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected tls without files to fail")
	}
}

// mockClient implements pahoClient for tests
type mockClient struct {
	opts       *paho.ClientOptions
	subscribed []struct {
		topic string
		qos   byte
	}
	handlers  []paho.MessageHandler
	published []struct {
		topic string
		qos   byte
	}
	publishErrs []error
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, _ bool, _ interface{}) paho.Token {
	m.published = append(m.published, struct {
		topic string
		qos   byte
	}{topic, qos})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}
func (m *mockClient) Subscribe(topic string, qos byte, h paho.MessageHandler) paho.Token {
	m.handlers = append(m.handlers, h)
	m.subscribed = append(m.subscribed, struct {
		topic string
		qos   byte
	}{topic, qos})
	return &dummyToken{}
}
func (m *mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &dummyToken{}
}
func (m *mockClient) Unsubscribe(...string) paho.Token        { return &dummyToken{} }
func (m *mockClient) AddRoute(string, paho.MessageHandler)    {}
func (m *mockClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }
func (m *mockClient) IsConnectionOpen() bool                  { return true }

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

type mockMessage struct {
	topic string
	p     []byte
}

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 0 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return m.topic }
func (m mockMessage) MessageID() uint16 { return 0 }
func (m mockMessage) Payload() []byte   { return m.p }
func (m mockMessage) Ack()              {}
