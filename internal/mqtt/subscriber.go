// Package mqtt ingests field sensor readings published to an MQTT broker.
package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"go.uber.org/zap"

	"github.com/example/agrisense/internal/config"
	"github.com/example/agrisense/internal/models"
	"github.com/example/agrisense/internal/usecase"
)

const recordTimeout = 5 * time.Second

// ReadingRecorder stores a decoded reading.
type ReadingRecorder interface {
	Record(ctx context.Context, in usecase.Reading) (*models.SensorData, error)
}

// Subscriber keeps a broker connection alive and feeds every reading
// published on the configured topic to the recorder.
type Subscriber struct {
	cfg      config.MQTTConfig
	recorder ReadingRecorder
	limiter  *messageRateLimiter
	logger   *zap.Logger
	cm       *autopaho.ConnectionManager
}

// New creates a Subscriber but does not connect.
func New(cfg config.MQTTConfig, recorder ReadingRecorder, logger *zap.Logger) *Subscriber {
	logger = logger.Named("mqtt")
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 100
	}
	return &Subscriber{
		cfg:      cfg,
		recorder: recorder,
		limiter:  newMessageRateLimiter(limit, time.Second, logger),
		logger:   logger,
	}
}

// Run connects to the broker and blocks until ctx is cancelled, then
// disconnects. autopaho reconnects in the background after broker outages.
func (s *Subscriber) Run(ctx context.Context) error {
	brokerURL, err := url.Parse(s.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: s.cfg.Username,
		ConnectPassword: []byte(s.cfg.Password),
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			s.logger.Info("mqtt connected to broker", zap.String("broker", s.cfg.Broker))
			if _, err := cm.Subscribe(ctx, &paho.Subscribe{
				Subscriptions: []paho.SubscribeOptions{{Topic: s.cfg.Topic, QoS: 1}},
			}); err != nil {
				s.logger.Error("mqtt subscribe failed", zap.Error(err), zap.String("topic", s.cfg.Topic))
				return
			}
			s.logger.Info("mqtt subscribed", zap.String("topic", s.cfg.Topic))
		},
		OnConnectError: func(err error) {
			s.logger.Warn("mqtt connection error", zap.Error(err))
		},
		ClientConfig: paho.ClientConfig{
			ClientID: s.cfg.ClientID,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					s.handle(ctx, pr.Packet.Topic, pr.Packet.Payload)
					return true, nil
				},
			},
		},
	}
	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	s.cm = cm

	go s.limiter.start(ctx)

	connCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := cm.AwaitConnection(connCtx); err != nil {
		s.logger.Warn("mqtt initial connection timed out, will retry in background", zap.Error(err))
	}
	cancel()

	<-ctx.Done()

	stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := cm.Disconnect(stopCtx); err != nil {
		s.logger.Warn("mqtt disconnect failed", zap.Error(err))
	}
	return nil
}

func (s *Subscriber) handle(ctx context.Context, topic string, payload []byte) {
	if !s.limiter.allow() {
		return
	}
	reading, err := DecodeReading(topic, payload)
	if err != nil {
		s.logger.Warn("discarding malformed reading", zap.Error(err), zap.String("topic", topic), zap.Int("payload_size", len(payload)))
		return
	}

	recordCtx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()
	if _, err := s.recorder.Record(recordCtx, reading); err != nil {
		s.logger.Warn("failed to record reading", zap.Error(err), zap.String("sensor_id", reading.SensorID))
		return
	}
	s.logger.Debug("reading recorded", zap.String("sensor_id", reading.SensorID), zap.Float64("value", reading.Value))
}

// messageRateLimiter drops messages once more than limit arrive within one
// interval.
type messageRateLimiter struct {
	count    atomic.Int64
	dropped  atomic.Int64
	limit    int64
	interval time.Duration
	logger   *zap.Logger
}

func newMessageRateLimiter(limit int64, interval time.Duration, logger *zap.Logger) *messageRateLimiter {
	return &messageRateLimiter{limit: limit, interval: interval, logger: logger}
}

// start resets the counters every interval until ctx is cancelled.
func (r *messageRateLimiter) start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reset()
		}
	}
}

func (r *messageRateLimiter) reset() {
	count := r.count.Swap(0)
	if dropped := r.dropped.Swap(0); dropped > 0 {
		r.logger.Warn("mqtt messages dropped due to rate limit",
			zap.Int64("received", count),
			zap.Int64("dropped", dropped),
			zap.Duration("interval", r.interval),
			zap.Int64("limit", r.limit),
		)
	}
}

func (r *messageRateLimiter) allow() bool {
	if r.count.Add(1) > r.limit {
		r.dropped.Add(1)
		return false
	}
	return true
}
