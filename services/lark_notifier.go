package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"matchday-service/logger"
	"matchday-service/pkg/matchclock"
)

// LarkNotifier 飞书机器人通知器, 比赛结束/取消时通知运营
type LarkNotifier struct {
	webhookURL string
	client     *http.Client
	enabled    bool
}

// NewLarkNotifier 创建飞书通知器
func NewLarkNotifier(webhookURL string) *LarkNotifier {
	enabled := webhookURL != ""
	if enabled {
		logger.Printf("[LarkNotifier] Initialized with webhook")
	} else {
		logger.Printf("[LarkNotifier] Disabled (no webhook URL)")
	}

	return &LarkNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		enabled:    enabled,
	}
}

// LarkMessage 飞书消息结构
type LarkMessage struct {
	MsgType string      `json:"msg_type"`
	Content interface{} `json:"content"`
}

// LarkTextContent 文本消息内容
type LarkTextContent struct {
	Text string `json:"text"`
}

// LarkPostContent 富文本消息内容
type LarkPostContent struct {
	Post LarkPost `json:"post"`
}

type LarkPost struct {
	ZhCn LarkPostLang `json:"zh_cn"`
}

type LarkPostLang struct {
	Title   string          `json:"title"`
	Content [][]LarkElement `json:"content"`
}

type LarkElement struct {
	Tag  string `json:"tag"`
	Text string `json:"text,omitempty"`
	Href string `json:"href,omitempty"`
}

// SendText 发送文本消息
func (n *LarkNotifier) SendText(ctx context.Context, text string) error {
	if !n.enabled {
		return nil
	}

	return n.send(ctx, LarkMessage{
		MsgType: "text",
		Content: LarkTextContent{Text: text},
	})
}

// SendRichText 发送富文本消息
func (n *LarkNotifier) SendRichText(ctx context.Context, title string, content [][]LarkElement) error {
	if !n.enabled {
		return nil
	}

	return n.send(ctx, LarkMessage{
		MsgType: "post",
		Content: LarkPostContent{
			Post: LarkPost{
				ZhCn: LarkPostLang{
					Title:   title,
					Content: content,
				},
			},
		},
	})
}

// NotifyMatchFinished 比赛进入终止状态时发送摘要
func (n *LarkNotifier) NotifyMatchFinished(ctx context.Context, matchID string, home, away string, display matchclock.Display) error {
	title := fmt.Sprintf("Match %s: %s", display.Status, matchID)
	content := [][]LarkElement{
		{{Tag: "text", Text: fmt.Sprintf("%s vs %s", home, away)}},
		{{Tag: "text", Text: fmt.Sprintf("Final clock: %s (%s)", display.MinuteText, display.Text)}},
		{{Tag: "text", Text: fmt.Sprintf("Recorded at: %s", time.Unix(display.ComputedAt, 0).UTC().Format(time.RFC3339))}},
	}
	return n.SendRichText(ctx, title, content)
}

// send 发送消息
func (n *LarkNotifier) send(ctx context.Context, message LarkMessage) error {
	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
