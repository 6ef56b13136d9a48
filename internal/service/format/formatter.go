// Package format renders backend search results as a chat digest plus the
// structured payload sent alongside it.
package format

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/askg-chat/backend/internal/model/chat"
	"github.com/zhouzirui/askg-chat/backend/internal/model/search"
)

// PageSize is the number of servers rendered in the text digest.
const PageSize = 10

const (
	noResultsLine = "No specific MCP servers found for your query. Try rephrasing or check the knowledge graph pane for available servers."
	closingLine   = "Check the knowledge graph pane for detailed information and interactive exploration."
	unnamedServer = "Unnamed server"
)

// Output is a formatted reply. Structured is nil when nothing was found.
type Output struct {
	Content    string
	Structured *chat.ServersResult
}

// NoResults returns the reply used when the backend produced nothing usable.
func NoResults(query string) string {
	return header(query, 0) + noResultsLine
}

// Format renders result for query. A nil result is treated as empty.
func Format(query string, result *search.Result) Output {
	total := result.Len()
	if total == 0 {
		return Output{Content: NoResults(query)}
	}

	page := result.Servers
	hasMore := total > PageSize
	if hasMore {
		page = page[:PageSize]
	}

	var b strings.Builder
	b.WriteString(header(query, total))
	fmt.Fprintf(&b, "**Top %d MCP Servers:**\n\n", len(page))

	for i, server := range page {
		writeServer(&b, i+1, server)
	}

	if hasMore {
		fmt.Fprintf(&b, "*... and %d more servers. [Show All Servers](#show-more)*\n\n", total-PageSize)
	}
	b.WriteString(closingLine)

	return Output{
		Content: b.String(),
		Structured: &chat.ServersResult{
			Servers:        result.Servers,
			TotalFound:     result.TotalFound,
			SearchMetadata: result.SearchMetadata,
			HasMore:        hasMore,
		},
	}
}

func header(query string, total int) string {
	return fmt.Sprintf("I found %d MCP servers related to your query: \"%s\".\n\n", total, query)
}

func writeServer(b *strings.Builder, n int, server search.Server) {
	name := server.Name
	if name == "" {
		name = unnamedServer
	}

	fmt.Fprintf(b, "%d. **%s**", n, name)
	if server.Repository != "" {
		fmt.Fprintf(b, " - [Repository](%s)", server.Repository)
	}
	b.WriteString("\n")

	if server.Description != "" {
		fmt.Fprintf(b, "   %s\n", server.Description)
	}
	if categories := joinCategories(server.Categories); categories != "" {
		fmt.Fprintf(b, "   **Categories:** %s\n", categories)
	}
	if server.Author != "" {
		fmt.Fprintf(b, "   **Author:** %s\n", server.Author)
	}
	b.WriteString("\n")
}

func joinCategories(categories []search.Category) string {
	values := make([]string, 0, len(categories))
	for _, category := range categories {
		if category.Value != "" {
			values = append(values, category.Value)
		}
	}
	return strings.Join(values, ", ")
}
