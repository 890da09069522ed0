// Package bus carries chat traffic between channel connectors and the
// command handler.
//
// Inbound messages flow from a connector (Telegram) to subscribers such as
// the command handler; outbound messages flow back to the connector that
// owns the chat.
package bus

import (
	"fmt"
	"time"
)

// ChannelType identifies a chat transport.
type ChannelType string

const (
	ChannelTypeTelegram ChannelType = "telegram"
)

// InboundMessage is a chat message received from a channel.
type InboundMessage struct {
	ChannelType ChannelType    `json:"channel_type"`
	ChatID      int64          `json:"chat_id"`
	UserID      string         `json:"user_id"`
	UserName    string         `json:"user_name"`
	SessionID   string         `json:"session_id"`
	MessageID   int            `json:"message_id,omitempty"`
	Text        string         `json:"text"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// OutboundMessage is a reply to be delivered to a chat.
type OutboundMessage struct {
	ChannelType      ChannelType `json:"channel_type"`
	ChatID           int64       `json:"chat_id"`
	SessionID        string      `json:"session_id"`
	Text             string      `json:"text"`
	ReplyToMessageID int         `json:"reply_to_message_id,omitempty"`
	Timestamp        time.Time   `json:"timestamp"`
}

// SessionID names the conversation a chat belongs to, e.g. "telegram:42".
func SessionID(channel ChannelType, chatID int64) string {
	return fmt.Sprintf("%s:%d", channel, chatID)
}

// NewInboundMessage stamps an inbound message with the current time.
func NewInboundMessage(channel ChannelType, chatID int64, userID, userName, text string) InboundMessage {
	return InboundMessage{
		ChannelType: channel,
		ChatID:      chatID,
		UserID:      userID,
		UserName:    userName,
		SessionID:   SessionID(channel, chatID),
		Text:        text,
		Timestamp:   time.Now(),
	}
}

// Reply builds the outbound answer to m.
func (m InboundMessage) Reply(text string) OutboundMessage {
	return OutboundMessage{
		ChannelType:      m.ChannelType,
		ChatID:           m.ChatID,
		SessionID:        m.SessionID,
		Text:             text,
		ReplyToMessageID: m.MessageID,
		Timestamp:        time.Now(),
	}
}
