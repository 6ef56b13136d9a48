package search

// MethodSearchServers is the JSON-RPC method served by the search backend.
const MethodSearchServers = "search_servers"

// DefaultMinConfidence is sent with every query; clients cannot override it.
const DefaultMinConfidence = 0.5

// Query is the parameter object of a search_servers call.
type Query struct {
	Prompt        string  `json:"prompt"`
	Limit         int     `json:"limit"`
	MinConfidence float64 `json:"min_confidence"`
}

// NewQuery derives the backend query for a chat prompt.
func NewQuery(prompt string, limit int) Query {
	return Query{
		Prompt:        prompt,
		Limit:         limit,
		MinConfidence: DefaultMinConfidence,
	}
}
