package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kilianp07/evsense/core/ingest"
	coremon "github.com/kilianp07/evsense/core/monitoring"
	"github.com/kilianp07/evsense/infra/logger"
)

// UploadPublisher publishes readings the way a vehicle gateway does.
type UploadPublisher struct {
	cli        pahoClient
	topic      string
	qos        byte
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// NewUploadPublisher connects to the broker.
func NewUploadPublisher(cfg Config) (*UploadPublisher, error) {
	cfg.SetDefaults()
	cfg.ClientID = cfg.clientID("gateway")
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &UploadPublisher{
		cli:        c,
		topic:      cfg.Topic,
		qos:        cfg.QoS,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.backoff(),
		log:        logger.New("mqtt_gateway"),
	}, nil
}

// Publish sends doc, retrying with exponential backoff.
func (p *UploadPublisher) Publish(ctx context.Context, doc ingest.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(p.topic, p.qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.log.Infof("published reading to %s", p.topic)
			return nil
		}
		p.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == p.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
	coremon.CaptureException(publishErr, map[string]string{"module": "mqtt", "topic": p.topic})
	return publishErr
}

// Close disconnects from the broker.
func (p *UploadPublisher) Close() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
