package search

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/buger/jsonparser"
)

// ErrNotObject is returned when a result payload is not a JSON object.
var ErrNotObject = errors.New("search result is not a JSON object")

// Result is the payload of a search_servers reply. The backend is untrusted,
// so every field is optional and decoding never fails on a wrong type.
type Result struct {
	Servers        []Server
	TotalFound     *int
	SearchMetadata json.RawMessage
}

// Server is one ranked catalog entry. The original JSON is kept so that fields
// the relay does not model are forwarded to clients untouched.
type Server struct {
	Name        string     `json:"name"`
	Repository  string     `json:"repository,omitempty"`
	Description string     `json:"description,omitempty"`
	Categories  []Category `json:"categories,omitempty"`
	Author      string     `json:"author,omitempty"`

	raw json.RawMessage
}

// Category labels a server. Only Value is rendered.
type Category struct {
	Value string `json:"value"`
}

// Len reports the number of servers; a nil Result has none.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Servers)
}

// UnmarshalJSON decodes a result object leniently. Entries of servers that
// are not objects are discarded.
func (r *Result) UnmarshalJSON(data []byte) error {
	if kind(data) != jsonparser.Object {
		return ErrNotObject
	}

	*r = Result{}

	if value, dataType, _, err := jsonparser.Get(data, "servers"); err == nil && dataType == jsonparser.Array {
		servers := make([]Server, 0, 16)
		_, _ = jsonparser.ArrayEach(value, func(item []byte, itemType jsonparser.ValueType, _ int, _ error) {
			if itemType != jsonparser.Object {
				return
			}
			servers = append(servers, decodeServer(item))
		})
		r.Servers = servers
	}

	if value, dataType, _, err := jsonparser.Get(data, "total_found"); err == nil && dataType == jsonparser.Number {
		if n, err := jsonparser.ParseInt(value); err == nil {
			total := int(n)
			r.TotalFound = &total
		}
	}

	if value, dataType, _, err := jsonparser.Get(data, "search_metadata"); err == nil && dataType == jsonparser.Object {
		r.SearchMetadata = append(json.RawMessage(nil), value...)
	}

	return nil
}

// UnmarshalJSON decodes a server entry leniently.
func (s *Server) UnmarshalJSON(data []byte) error {
	if kind(data) != jsonparser.Object {
		return ErrNotObject
	}
	*s = decodeServer(data)
	return nil
}

// MarshalJSON re-emits the entry exactly as the backend sent it.
func (s Server) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	type plain Server
	return json.Marshal(plain(s))
}

func decodeServer(data []byte) Server {
	server := Server{
		Name:        stringField(data, "name"),
		Repository:  stringField(data, "repository"),
		Description: stringField(data, "description"),
		Author:      stringField(data, "author"),
		raw:         append(json.RawMessage(nil), data...),
	}

	_, _ = jsonparser.ArrayEach(data, func(item []byte, itemType jsonparser.ValueType, _ int, _ error) {
		var value string
		switch itemType {
		case jsonparser.Object:
			value = stringField(item, "value")
		case jsonparser.String:
			if parsed, err := jsonparser.ParseString(item); err == nil {
				value = strings.TrimSpace(parsed)
			}
		}
		if value != "" {
			server.Categories = append(server.Categories, Category{Value: value})
		}
	}, "categories")

	return server
}

func stringField(data []byte, key string) string {
	value, dataType, _, err := jsonparser.Get(data, key)
	if err != nil || dataType != jsonparser.String {
		return ""
	}
	parsed, err := jsonparser.ParseString(value)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(parsed)
}

func kind(data []byte) jsonparser.ValueType {
	_, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return jsonparser.Unknown
	}
	return dataType
}
