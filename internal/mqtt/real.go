package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/firesport-timer/internal/logic"
)

// DefaultBufferSize is how many messages are kept while disconnected.
const DefaultBufferSize = 256

const publishTimeout = 5 * time.Second

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BufferSize int
	Logger     *zap.Logger
}

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	log    *zap.Logger

	mu       sync.Mutex
	buf      *ringBuffer
	flushing bool
}

// NewRealPublisher creates a publisher and starts connecting in the
// background. It never blocks on the broker.
func NewRealPublisher(opts Options) *RealPublisher {
	if opts.ClientID == "" {
		opts.ClientID = "firesport-timer"
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger.Named("mqtt")

	p := newPublisher(nil, opts.BufferSize, log)

	copts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(FormatWillPayload()), 1, true).
		SetOnConnectHandler(func(paho.Client) {
			log.Info("connected", zap.String("broker", opts.Broker))
			p.flush()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn("connection lost", zap.Error(err))
		})

	p.client = paho.NewClient(copts)
	p.client.Connect()
	return p
}

func newPublisher(client paho.Client, bufferSize int, log *zap.Logger) *RealPublisher {
	return &RealPublisher{
		client: client,
		log:    log,
		buf:    newRingBuffer(bufferSize, log),
	}
}

// Publish sends a stopwatch event at QoS 1.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.send(bufferedMsg{topic: Topic, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event at QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// send publishes msg, or buffers it while the connection is down or a
// replay is in progress so that messages reach the broker in order.
//
// Delivery is at least once. A publish that times out on an open
// connection is left to paho's in-flight retry and reported as an error;
// only messages that fail on a dropped connection are re-buffered, so the
// broker may still see a duplicate if it acked after the timeout.
func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	if p.flushing || !p.client.IsConnectionOpen() {
		p.buf.push(msg)
		p.mu.Unlock()
		return nil
	}
	if p.buf.len() > 0 {
		// A previous replay stopped early; queue behind it and retry.
		p.buf.push(msg)
		p.mu.Unlock()
		go p.flush()
		return nil
	}
	p.mu.Unlock()

	if err := p.publish(msg); err != nil {
		if !p.client.IsConnectionOpen() {
			p.mu.Lock()
			p.buf.push(msg)
			p.mu.Unlock()
		}
		return err
	}
	return nil
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// flush replays buffered messages in order until the buffer is empty.
// Messages sent while it runs are buffered and picked up by the next pass.
// Runs on paho's connect goroutine.
func (p *RealPublisher) flush() {
	p.mu.Lock()
	if p.flushing {
		p.mu.Unlock()
		return
	}
	p.flushing = true
	p.mu.Unlock()

	replayed := 0
	defer func() {
		if replayed > 0 {
			p.log.Info("replayed buffered messages", zap.Int("count", replayed))
		}
	}()

	for {
		p.mu.Lock()
		msgs := p.buf.drainAll()
		if len(msgs) == 0 {
			p.flushing = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		for i, msg := range msgs {
			if err := p.publish(msg); err != nil {
				p.log.Warn("replay failed, re-buffering", zap.Error(err), zap.Int("remaining", len(msgs)-i))
				p.mu.Lock()
				newer := p.buf.drainAll()
				for _, m := range msgs[i:] {
					p.buf.push(m)
				}
				for _, m := range newer {
					p.buf.push(m)
				}
				p.flushing = false
				p.mu.Unlock()
				return
			}
			replayed++
		}
	}
}

// Buffered returns how many messages are waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second grace
	return nil
}
