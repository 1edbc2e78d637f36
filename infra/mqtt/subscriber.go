package mqtt

import (
	"encoding/json"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/evsense/core/ingest"
	coremon "github.com/kilianp07/evsense/core/monitoring"
	"github.com/kilianp07/evsense/infra/logger"
)

// Transport is the label used for uploads received over MQTT.
const Transport = "mqtt"

// UploadSubscriber feeds readings published on the upload topic into a
// receiver.
type UploadSubscriber struct {
	cli   pahoClient
	topic string
	qos   byte
	recv  ingest.Receiver
	log   logger.Logger
}

// NewUploadSubscriber connects to the broker and subscribes to cfg.Topic. The
// subscription is renewed on every reconnect.
func NewUploadSubscriber(cfg Config, recv ingest.Receiver) (*UploadSubscriber, error) {
	if recv == nil {
		return nil, fmt.Errorf("upload receiver is required")
	}
	cfg.SetDefaults()
	cfg.ClientID = cfg.clientID("ingest")
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_ingest")
	s := &UploadSubscriber{topic: cfg.Topic, qos: cfg.QoS, recv: recv, log: log}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected, subscribing to %s", s.topic)
		if token := c.Subscribe(s.topic, s.qos, s.onUpload); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
			coremon.CaptureException(token.Error(), map[string]string{"module": "mqtt", "topic": s.topic})
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
	s.cli = c
	return s, nil
}

func (s *UploadSubscriber) onUpload(_ paho.Client, msg paho.Message) {
	defer coremon.Recover()
	var doc ingest.Document
	if err := json.Unmarshal(msg.Payload(), &doc); err != nil {
		s.log.Errorf("decode upload on %s: %v", msg.Topic(), err)
		return
	}
	s.recv.Receive(Transport, doc)
}

// Close disconnects from the broker.
func (s *UploadSubscriber) Close() {
	if s.cli != nil && s.cli.IsConnected() {
		s.cli.Disconnect(250)
	}
}
