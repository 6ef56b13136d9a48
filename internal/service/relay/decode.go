package relay

import (
	"math"

	"github.com/buger/jsonparser"

	"github.com/zhouzirui/askg-chat/backend/internal/model/chat"
)

// DecodeChatMessage reads a chat_message payload without trusting its shape.
// A missing or non-string content becomes empty text; a missing, fractional
// or non-positive maxResults becomes defaultLimit.
func DecodeChatMessage(data []byte, defaultLimit int) chat.ChatMessage {
	msg := chat.ChatMessage{MaxResults: defaultLimit}

	if content, err := jsonparser.GetString(data, "content"); err == nil {
		msg.Content = content
	}
	if n, err := jsonparser.GetInt(data, "maxResults"); err == nil && n > 0 && n <= math.MaxInt32 {
		msg.MaxResults = int(n)
	}

	return msg
}
