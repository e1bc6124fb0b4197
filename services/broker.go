package services

import (
	"encoding/json"
	"fmt"
	"time"

	"matchday-service/pkg/matchclock"
)

// ClockTopic 时钟变更事件的 Topic
const ClockTopic = "match-clock"

// BrokerMessage 定义了在 Broker 中传输的消息结构
type BrokerMessage struct {
	Topic string
	Key   string // 比赛 ID
	Value []byte // JSON 编码的 ClockEvent
}

// MessageBroker 定义了消息队列的抽象接口
type MessageBroker interface {
	// Produce 发送消息到指定的 Topic
	Produce(msg BrokerMessage) error
	// Consume 订阅指定的 Topic，返回一个消息通道
	Consume(topic string) (<-chan BrokerMessage, error)
	// Close 关闭 Broker 连接
	Close() error
}

// ClockEvent 每次控制动作成功写入后发布的事件.
// 只携带状态快照, 订阅方用自己的 now 计算时钟.
type ClockEvent struct {
	Type       string             `json:"type"`
	MatchID    string             `json:"match_id"`
	Action     matchclock.Action  `json:"action"`
	Version    int                `json:"version"`
	State      matchclock.State   `json:"state"`
	Clock      matchclock.Display `json:"clock"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// ClockEventType ClockEvent.Type 的取值
const ClockEventType = "clock_state"

// EncodeClockEvent 编码为 broker 消息
func EncodeClockEvent(ev ClockEvent) (BrokerMessage, error) {
	if ev.Type == "" {
		ev.Type = ClockEventType
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return BrokerMessage{}, fmt.Errorf("failed to encode clock event: %w", err)
	}
	return BrokerMessage{Topic: ClockTopic, Key: ev.MatchID, Value: data}, nil
}

// DecodeClockEvent 从 broker 消息解码
func DecodeClockEvent(msg BrokerMessage) (ClockEvent, error) {
	var ev ClockEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return ClockEvent{}, fmt.Errorf("failed to decode clock event from %s: %w", msg.Topic, err)
	}
	return ev, nil
}

// GetTopicName 外部系统使用的完整 Topic 名称
func GetTopicName(prefix, topic string) string {
	if prefix == "" {
		return topic
	}
	return fmt.Sprintf("%s.%s", prefix, topic)
}

// ErrBrokerClosed Close 之后再使用 broker
var ErrBrokerClosed = fmt.Errorf("broker closed")
