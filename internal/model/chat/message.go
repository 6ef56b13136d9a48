package chat

import (
	"encoding/json"

	"github.com/zhouzirui/askg-chat/backend/internal/model/search"
)

// Inbound session events.
const (
	EventChatMessage = "chat_message"
	EventNewChat     = "new_chat"
	EventSaveChat    = "save_chat"
	EventDisconnect  = "disconnect"
)

// Outbound session events.
const (
	EventConnected     = "connected"
	EventChatResponse  = "chat_response"
	EventServersResult = "mcp_servers_result"
	EventChatCleared   = "chat_cleared"
	EventChatSaved     = "chat_saved"
)

// ResponseTypeAI tags every relay-authored chat response.
const ResponseTypeAI = "ai"

// TimestampLayout is ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ChatMessage is a user query. It is never stored.
type ChatMessage struct {
	Content    string `json:"content"`
	MaxResults int    `json:"maxResults,omitempty"`
}

// ChatResponse is the human-readable reply to one ChatMessage.
type ChatResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ServersResult carries the full result list so clients can paginate on their own.
type ServersResult struct {
	Servers        []search.Server `json:"servers"`
	TotalFound     *int            `json:"total_found,omitempty"`
	SearchMetadata json.RawMessage `json:"search_metadata,omitempty"`
	HasMore        bool            `json:"hasMore"`
}

// SaveAck acknowledges a save_chat request.
type SaveAck struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
