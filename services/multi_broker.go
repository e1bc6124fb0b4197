package services

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// MultiBroker 把消息同时发往多个 broker.
// Consume 只从第一个 (本地) broker 读取.
type MultiBroker struct {
	primary MessageBroker
	mirrors []MessageBroker
}

// NewMultiBroker primary 通常是 InMemoryBroker, mirrors 是 AMQP/MQTT 等外部系统
func NewMultiBroker(primary MessageBroker, mirrors ...MessageBroker) *MultiBroker {
	return &MultiBroker{primary: primary, mirrors: mirrors}
}

// Produce 并发发布, 返回第一个失败
func (m *MultiBroker) Produce(msg BrokerMessage) error {
	var g errgroup.Group

	g.Go(func() error {
		return m.primary.Produce(msg)
	})
	for i, b := range m.mirrors {
		i, b := i, b
		g.Go(func() error {
			if err := b.Produce(msg); err != nil {
				return fmt.Errorf("mirror %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Consume 实现 MessageBroker 接口
func (m *MultiBroker) Consume(topic string) (<-chan BrokerMessage, error) {
	return m.primary.Consume(topic)
}

// Close 关闭全部 broker
func (m *MultiBroker) Close() error {
	errs := []error{m.primary.Close()}
	for _, b := range m.mirrors {
		errs = append(errs, b.Close())
	}
	return errors.Join(errs...)
}
