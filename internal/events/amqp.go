package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	publishTimeout = 5 * time.Second
	redialDelay    = time.Second
	maxRedialDelay = 30 * time.Second
)

var errNotConnected = errors.New("amqp connection is down")

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// brokerLink is one live connection and the channel publishing on it. closed
// fires once when either of them goes away.
type brokerLink struct {
	ch     amqpChannel
	closed <-chan *amqp.Error
	close  func()
}

type dialFunc func(url, exchange string) (brokerLink, error)

// AMQPPublisher writes every event to a durable topic exchange, routed by event
// type. A lost connection is redialed in the background; events published
// while it is down are logged and dropped.
type AMQPPublisher struct {
	mu        sync.Mutex
	link      brokerLink
	connected bool

	url      string
	exchange string
	dial     dialFunc
	delay    time.Duration
	logger   *logrus.Logger

	done      chan struct{}
	closeOnce sync.Once
}

func DialAMQP(url, exchange string, logger *logrus.Logger) (*AMQPPublisher, error) {
	return newAMQPPublisher(url, exchange, logger, dialBroker, redialDelay)
}

func newAMQPPublisher(url, exchange string, logger *logrus.Logger, dial dialFunc, delay time.Duration) (*AMQPPublisher, error) {
	link, err := dial(url, exchange)
	if err != nil {
		return nil, err
	}
	p := &AMQPPublisher{
		url:      url,
		exchange: exchange,
		dial:     dial,
		delay:    delay,
		logger:   logger,
		done:     make(chan struct{}),
	}
	p.attach(link)
	return p, nil
}

func dialBroker(url, exchange string) (brokerLink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return brokerLink{}, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return brokerLink{}, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return brokerLink{}, err
	}

	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
	closed := make(chan *amqp.Error, 1)
	go func() {
		select {
		case err := <-connClosed:
			closed <- err
		case err := <-chClosed:
			closed <- err
		}
	}()

	return brokerLink{
		ch:     ch,
		closed: closed,
		close: func() {
			_ = ch.Close()
			_ = conn.Close()
		},
	}, nil
}

func (p *AMQPPublisher) attach(link brokerLink) {
	p.mu.Lock()
	p.link = link
	p.connected = true
	p.mu.Unlock()
	go p.watch(link)
}

func (p *AMQPPublisher) watch(link brokerLink) {
	var reason *amqp.Error
	select {
	case reason = <-link.closed:
	case <-p.done:
		return
	}
	select {
	case <-p.done:
		return
	default:
	}

	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	link.close()

	entry := p.logger.WithField("exchange", p.exchange)
	if reason != nil {
		entry = entry.WithFields(logrus.Fields{"code": reason.Code, "reason": reason.Reason})
	}
	entry.Warn("amqp connection lost, redialing")
	p.redial()
}

func (p *AMQPPublisher) redial() {
	delay := p.delay
	for {
		select {
		case <-p.done:
			return
		case <-time.After(delay):
		}

		link, err := p.dial(p.url, p.exchange)
		if err != nil {
			p.logger.WithError(err).WithField("retry_in", delay.String()).Warn("amqp redial failed")
			delay = min(delay*2, maxRedialDelay)
			continue
		}
		select {
		case <-p.done:
			link.close()
			return
		default:
		}
		p.attach(link)
		p.logger.WithField("exchange", p.exchange).Info("amqp connection restored")
		return
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).WithField("event", event.Type).Error("encode event")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.publish(ctx, event.Type, body); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"event":    event.Type,
			"exchange": p.exchange,
		}).Warn("publish event")
	}
}

func (p *AMQPPublisher) publish(ctx context.Context, key string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return errNotConnected
	}
	return p.link.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Headers:      amqp.Table{"x-source": "restaurant-service"},
		Body:         body,
	})
}

// Close stops redialing and closes the current connection.
func (p *AMQPPublisher) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.connected {
			p.connected = false
			p.link.close()
		}
	})
}
