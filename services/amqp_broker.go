package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"matchday-service/logger"
)

// ReconnectConfig 重连配置
type ReconnectConfig struct {
	MaxRetries    int           // 最大重试次数 (0 = 无限重试)
	InitialDelay  time.Duration // 初始延迟
	MaxDelay      time.Duration // 最大延迟
	BackoffFactor float64       // 退避因子
}

// DefaultReconnectConfig 默认重连配置
func DefaultReconnectConfig() *ReconnectConfig {
	return &ReconnectConfig{
		MaxRetries:    0,
		InitialDelay:  1 * time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
	}
}

// NextDelay 指数退避后的下一次等待时间
func (c *ReconnectConfig) NextDelay(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * c.BackoffFactor)
	if next > c.MaxDelay {
		return c.MaxDelay
	}
	return next
}

type amqpSubscription struct {
	topic string
	out   chan BrokerMessage
}

// AMQPBroker 通过 topic exchange 发布时钟事件
type AMQPBroker struct {
	url       string
	exchange  string
	reconnect *ReconnectConfig

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	subs    []amqpSubscription
	closed  bool

	forwarders sync.WaitGroup
}

// NewAMQPBroker 连接 AMQP 并声明 exchange, 断线后自动重连
func NewAMQPBroker(url, exchange string) (*AMQPBroker, error) {
	b := &AMQPBroker{
		url:       url,
		exchange:  exchange,
		reconnect: DefaultReconnectConfig(),
	}
	if err := b.connect(); err != nil {
		return nil, fmt.Errorf("initial connection failed: %w", err)
	}
	go b.monitorConnection()
	return b, nil
}

// connect 建立连接和通道, 调用方持有或无需持有锁均可
func (b *AMQPBroker) connect() error {
	logger.Printf("[AMQPBroker] Connecting (exchange: %s)...", b.exchange)

	conn, err := amqp.DialConfig(b.url, amqp.Config{
		Heartbeat: 30 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		b.exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.channel = channel
	subs := append([]amqpSubscription(nil), b.subs...)
	b.mu.Unlock()

	// 重连后恢复已有订阅
	for _, sub := range subs {
		if err := b.startConsuming(channel, sub); err != nil {
			logger.Errorf("[AMQPBroker] Failed to resume consumer for %s: %v", sub.topic, err)
		}
	}

	logger.Println("[AMQPBroker] Connected to AMQP server")
	return nil
}

// monitorConnection 监控连接状态并自动重连
func (b *AMQPBroker) monitorConnection() {
	for {
		b.mu.Lock()
		conn := b.conn
		b.mu.Unlock()

		closeErr := <-conn.NotifyClose(make(chan *amqp.Error, 1))
		if closeErr == nil {
			logger.Println("[AMQPBroker] Connection closed normally")
			return
		}
		logger.Errorf("[AMQPBroker] Connection lost: %v", closeErr)

		delay := b.reconnect.InitialDelay
		for attempt := 1; ; attempt++ {
			if b.isClosed() {
				return
			}
			if b.reconnect.MaxRetries > 0 && attempt > b.reconnect.MaxRetries {
				logger.Errorf("[AMQPBroker] Max retries (%d) reached, giving up", b.reconnect.MaxRetries)
				return
			}

			logger.Printf("[AMQPBroker] Reconnecting in %v (attempt %d)...", delay, attempt)
			time.Sleep(delay)

			if err := b.connect(); err != nil {
				logger.Errorf("[AMQPBroker] Reconnect failed: %v", err)
				delay = b.reconnect.NextDelay(delay)
				continue
			}
			break
		}
	}
}

func (b *AMQPBroker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// RoutingKey 时钟事件的 routing key, 例如 match-clock.<match-id>
func RoutingKey(topic, key string) string {
	if key == "" {
		return topic
	}
	// routing key 中的 '.' 是分隔符
	return topic + "." + strings.ReplaceAll(key, ".", "_")
}

// Produce 实现 MessageBroker 接口
func (b *AMQPBroker) Produce(msg BrokerMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBrokerClosed
	}

	err := b.channel.Publish(
		b.exchange,
		RoutingKey(msg.Topic, msg.Key),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.Key,
			Timestamp:    time.Now().UTC(),
			Body:         msg.Value,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", b.exchange, err)
	}
	return nil
}

// Consume 实现 MessageBroker 接口, 每次调用声明一个独占队列
func (b *AMQPBroker) Consume(topic string) (<-chan BrokerMessage, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBrokerClosed
	}
	sub := amqpSubscription{topic: topic, out: make(chan BrokerMessage, 1000)}
	b.subs = append(b.subs, sub)
	channel := b.channel
	b.mu.Unlock()

	if err := b.startConsuming(channel, sub); err != nil {
		return nil, err
	}
	return sub.out, nil
}

func (b *AMQPBroker) startConsuming(channel *amqp.Channel, sub amqpSubscription) error {
	queue, err := channel.QueueDeclare(
		"",    // name (auto-generated)
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := channel.QueueBind(queue.Name, sub.topic+".#", b.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	deliveries, err := channel.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume: %w", err)
	}

	logger.Printf("[AMQPBroker] Consuming %s.# on queue %s", sub.topic, queue.Name)

	b.forwarders.Add(1)
	go func() {
		defer b.forwarders.Done()
		for d := range deliveries {
			msg := BrokerMessage{Topic: sub.topic, Key: d.MessageId, Value: d.Body}
			select {
			case sub.out <- msg:
			default:
				logger.Errorf("[AMQPBroker] Consumer channel for %s full. Message dropped.", sub.topic)
			}
		}
	}()
	return nil
}

// Close 实现 MessageBroker 接口
func (b *AMQPBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	conn := b.conn
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}

	// 连接关闭后 deliveries 随之关闭, 等转发协程退出再关闭输出通道
	b.forwarders.Wait()
	for _, sub := range subs {
		close(sub.out)
	}
	return err
}
