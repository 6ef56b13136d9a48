package format

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/askg-chat/backend/internal/model/search"
)

func decodeResult(t *testing.T, payload string) *search.Result {
	t.Helper()
	var result search.Result
	require.NoError(t, json.Unmarshal([]byte(payload), &result))
	return &result
}

func servers(n int) []search.Server {
	out := make([]search.Server, n)
	for i := range out {
		out[i] = search.Server{Name: fmt.Sprintf("server-%02d", i+1)}
	}
	return out
}

func TestFormatNilResult(t *testing.T) {
	out := Format("weather api", nil)

	require.Nil(t, out.Structured)
	require.Equal(t, "I found 0 MCP servers related to your query: \"weather api\".\n\n"+noResultsLine, out.Content)
	require.Equal(t, NoResults("weather api"), out.Content)
}

func TestFormatEmptyServers(t *testing.T) {
	out := Format("nothing", decodeResult(t, `{"servers":[],"total_found":0}`))

	require.Nil(t, out.Structured)
	require.Equal(t, NoResults("nothing"), out.Content)
}

func TestFormatEchoesQueryVerbatim(t *testing.T) {
	query := `find "quoted" café tools`
	out := Format(query, &search.Result{Servers: servers(1)})

	require.True(t, strings.HasPrefix(out.Content, "I found 1 MCP servers related to your query: \""+query+"\".\n\n"))
}

func TestFormatSingleServerAllFields(t *testing.T) {
	result := decodeResult(t, `{
		"servers": [{
			"name": "github-mcp",
			"repository": "https://github.com/example/github-mcp",
			"description": "GitHub API access",
			"categories": [{"value": "api_integration"}, {"value": "version_control"}],
			"author": "octo"
		}],
		"total_found": 1
	}`)

	out := Format("github", result)

	expected := "I found 1 MCP servers related to your query: \"github\".\n\n" +
		"**Top 1 MCP Servers:**\n\n" +
		"1. **github-mcp** - [Repository](https://github.com/example/github-mcp)\n" +
		"   GitHub API access\n" +
		"   **Categories:** api_integration, version_control\n" +
		"   **Author:** octo\n" +
		"\n" +
		closingLine
	require.Equal(t, expected, out.Content)
	require.NotNil(t, out.Structured)
	require.False(t, out.Structured.HasMore)
	require.Equal(t, 1, *out.Structured.TotalFound)
}

func TestFormatOmitsMissingFields(t *testing.T) {
	result := decodeResult(t, `{"servers":[{"name":"bare","categories":[],"author":null,"description":""}]}`)

	out := Format("bare", result)

	require.Contains(t, out.Content, "1. **bare**\n\n")
	for _, artifact := range []string{"Repository", "Categories", "Author", "undefined", "null", "<nil>"} {
		require.NotContains(t, out.Content, artifact)
	}
}

func TestFormatUnnamedServer(t *testing.T) {
	out := Format("x", &search.Result{Servers: []search.Server{{Author: "someone"}}})

	require.Contains(t, out.Content, "1. **"+unnamedServer+"**\n   **Author:** someone\n")
}

func TestFormatExactlyOnePage(t *testing.T) {
	out := Format("ten", &search.Result{Servers: servers(PageSize)})

	require.Contains(t, out.Content, "**Top 10 MCP Servers:**")
	require.NotContains(t, out.Content, "more servers")
	require.False(t, out.Structured.HasMore)
}

func TestFormatTwelveServers(t *testing.T) {
	payload := `{"servers":[
		{"name":"s1","repository":"https://example.com/s1"},
		{"name":"s2","description":"second"},
		{"name":"s3","categories":[{"value":"database"}]},
		{"name":"s4","author":"alice"},
		{"name":"s5","categories":["ai_ml","data_processing"]},
		{"name":"s6"},{"name":"s7"},{"name":"s8"},{"name":"s9"},{"name":"s10"},
		{"name":"s11","score":0.61},
		{"name":"s12"}
	],"total_found":12,"search_metadata":{"took_ms":42}}`

	out := Format("search tool", decodeResult(t, payload))

	require.True(t, strings.HasPrefix(out.Content, "I found 12 MCP servers related to your query: \"search tool\"."))
	require.Contains(t, out.Content, "**Top 10 MCP Servers:**")
	require.Contains(t, out.Content, "10. **s10**")
	require.NotContains(t, out.Content, "**s11**")
	require.Contains(t, out.Content, "*... and 2 more servers. [Show All Servers](#show-more)*\n\n"+closingLine)
	require.Contains(t, out.Content, "   **Categories:** ai_ml, data_processing\n")

	require.NotNil(t, out.Structured)
	require.True(t, out.Structured.HasMore)
	require.Len(t, out.Structured.Servers, 12)
	require.JSONEq(t, `{"took_ms":42}`, string(out.Structured.SearchMetadata))

	raw, err := json.Marshal(out.Structured)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"score":0.61`)
	require.Contains(t, string(raw), `"hasMore":true`)
	require.Contains(t, string(raw), `"total_found":12`)
}

func TestFormatEntriesKeepBackendOrder(t *testing.T) {
	for _, n := range []int{1, 3, 10, 11, 25} {
		out := Format("order", &search.Result{Servers: servers(n)})

		shown := min(n, PageSize)
		require.Contains(t, out.Content, fmt.Sprintf("I found %d MCP servers", n))
		last := -1
		for i := 1; i <= shown; i++ {
			idx := strings.Index(out.Content, fmt.Sprintf("%d. **server-%02d**", i, i))
			require.Greater(t, idx, last, "entry %d of %d out of order", i, n)
			last = idx
		}
		require.NotContains(t, out.Content, fmt.Sprintf("%d. **", shown+1))
		require.Equal(t, n > PageSize, out.Structured.HasMore)
		require.Equal(t, n > PageSize, strings.Contains(out.Content, fmt.Sprintf("and %d more servers", n-PageSize)))
	}
}

func TestFormatIsDeterministic(t *testing.T) {
	result := &search.Result{Servers: servers(14)}
	require.Equal(t, Format("same", result), Format("same", result))
}
