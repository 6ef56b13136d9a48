package relay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/askg-chat/backend/internal/model/chat"
)

func TestDecodeChatMessage(t *testing.T) {
	cases := map[string]struct {
		payload string
		want    chat.ChatMessage
	}{
		"full":             {`{"content":"hello","maxResults":5}`, chat.ChatMessage{Content: "hello", MaxResults: 5}},
		"default limit":    {`{"content":"hello"}`, chat.ChatMessage{Content: "hello", MaxResults: 20}},
		"negative limit":   {`{"content":"x","maxResults":-3}`, chat.ChatMessage{Content: "x", MaxResults: 20}},
		"fractional limit": {`{"content":"x","maxResults":2.5}`, chat.ChatMessage{Content: "x", MaxResults: 20}},
		"string limit":     {`{"content":"x","maxResults":"9"}`, chat.ChatMessage{Content: "x", MaxResults: 20}},
		"numeric content":  {`{"content":7}`, chat.ChatMessage{MaxResults: 20}},
		"escaped content":  {`{"content":"say \"hi\"\n"}`, chat.ChatMessage{Content: "say \"hi\"\n", MaxResults: 20}},
		"empty object":     {`{}`, chat.ChatMessage{MaxResults: 20}},
		"not json":         {`hello`, chat.ChatMessage{MaxResults: 20}},
		"empty":            {``, chat.ChatMessage{MaxResults: 20}},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, DecodeChatMessage([]byte(tc.payload), 20))
		})
	}
}
