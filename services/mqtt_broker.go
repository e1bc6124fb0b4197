package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"matchday-service/logger"
)

// MQTT Quality of Service levels
const (
	QoSAtMostOnce  = 0
	QoSAtLeastOnce = 1
)

// MQTTBroker 把时钟事件发布到 <prefix>/<topic>/<match-id>.
// 消息保留 (retained), 新订阅者立即拿到每场比赛的最新状态.
type MQTTBroker struct {
	client mqtt.Client
	prefix string

	mu     sync.Mutex
	subs   map[string]chan BrokerMessage
	closed bool
}

// NewMQTTBroker 连接 MQTT broker
func NewMQTTBroker(broker, username, password, prefix string) (*MQTTBroker, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetClientID("matchday-" + uuid.NewString())

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Printf("[MQTTBroker] Connected to %s", broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Errorf("[MQTTBroker] Connection lost: %v", err)
	})

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect: %w", token.Error())
	}

	return NewMQTTBrokerWithClient(client, prefix), nil
}

// NewMQTTBrokerWithClient 使用已连接的客户端
func NewMQTTBrokerWithClient(client mqtt.Client, prefix string) *MQTTBroker {
	return &MQTTBroker{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		subs:   make(map[string]chan BrokerMessage),
	}
}

// TopicFor 比赛在 MQTT 上的完整 topic
func (b *MQTTBroker) TopicFor(topic, key string) string {
	parts := make([]string, 0, 3)
	if b.prefix != "" {
		parts = append(parts, b.prefix)
	}
	parts = append(parts, topic)
	if key != "" {
		parts = append(parts, key)
	}
	return strings.Join(parts, "/")
}

// Produce 实现 MessageBroker 接口
func (b *MQTTBroker) Produce(msg BrokerMessage) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBrokerClosed
	}

	topic := b.TopicFor(msg.Topic, msg.Key)
	token := b.client.Publish(topic, QoSAtLeastOnce, true, msg.Value)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Consume 实现 MessageBroker 接口, 订阅 <prefix>/<topic>/+
func (b *MQTTBroker) Consume(topic string) (<-chan BrokerMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}
	if _, ok := b.subs[topic]; ok {
		return nil, fmt.Errorf("topic %s already consumed", topic)
	}

	out := make(chan BrokerMessage, 1000)
	filter := b.TopicFor(topic, "+")
	token := b.client.Subscribe(filter, QoSAtLeastOnce, func(_ mqtt.Client, m mqtt.Message) {
		key := m.Topic()[strings.LastIndex(m.Topic(), "/")+1:]

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.closed {
			return
		}
		select {
		case out <- BrokerMessage{Topic: topic, Key: key, Value: m.Payload()}:
		default:
			logger.Errorf("[MQTTBroker] Consumer channel for %s full. Message dropped.", topic)
		}
	})
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", filter, token.Error())
	}

	b.subs[topic] = out
	logger.Printf("[MQTTBroker] Subscribed to topic: %s", filter)
	return out, nil
}

// Close 实现 MessageBroker 接口
func (b *MQTTBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil

	if b.client.IsConnected() {
		b.client.Disconnect(250)
	}
	return nil
}
