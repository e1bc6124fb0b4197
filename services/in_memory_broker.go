package services

import (
	"sync"

	"matchday-service/logger"
)

// InMemoryBroker 是 MessageBroker 接口的内存实现, 进程内广播给每个消费者
type InMemoryBroker struct {
	// 存储每个 Topic 对应的消费者通道列表
	consumers map[string][]chan BrokerMessage
	buffer    int
	closed    bool
	mu        sync.RWMutex
}

// NewInMemoryBroker 创建 InMemoryBroker 实例
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		consumers: make(map[string][]chan BrokerMessage),
		buffer:    1000,
	}
}

// Produce 实现 MessageBroker 接口
func (b *InMemoryBroker) Produce(msg BrokerMessage) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBrokerClosed
	}

	consumerChans := b.consumers[msg.Topic]
	if len(consumerChans) == 0 {
		logger.Debugf("[InMemoryBroker] Topic %s has no active consumers. Message dropped.", msg.Topic)
		return nil
	}

	for _, ch := range consumerChans {
		// 通道满时丢弃, 不阻塞控制请求
		select {
		case ch <- msg:
		default:
			logger.Errorf("[InMemoryBroker] Topic %s consumer channel full. Message for %s dropped.", msg.Topic, msg.Key)
		}
	}
	return nil
}

// Consume 实现 MessageBroker 接口
func (b *InMemoryBroker) Consume(topic string) (<-chan BrokerMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}

	consumerChan := make(chan BrokerMessage, b.buffer)
	b.consumers[topic] = append(b.consumers[topic], consumerChan)

	logger.Printf("[InMemoryBroker] Consumer subscribed to topic %s. Total consumers for topic: %d", topic, len(b.consumers[topic]))

	return consumerChan, nil
}

// Close 实现 MessageBroker 接口
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	// 关闭所有消费者通道
	for _, chans := range b.consumers {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.consumers = make(map[string][]chan BrokerMessage)

	logger.Println("[InMemoryBroker] Closed all channels.")
	return nil
}
