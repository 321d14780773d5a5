package markdown

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaserJamal/simple-ocr/internal/layout"
	"github.com/NaserJamal/simple-ocr/internal/vlm"
)

func samplePages() []layout.PageSections {
	return []layout.PageSections{
		{
			Page: 0,
			Sections: []layout.Section{
				{Type: "title", Text: "Annual Report"},
				{Type: "content", Text: "Revenue grew this year."},
				{Type: "footer", Text: "   "},
			},
		},
		{Page: 1, Sections: nil},
		{
			Page: 2,
			Sections: []layout.Section{
				{Type: "table", Text: "| Q | Revenue |"},
			},
		},
	}
}

func TestGatherSections(t *testing.T) {
	gathered := GatherSections(samplePages())

	assert.Contains(t, gathered, "--- PAGE 1 ---")
	assert.Contains(t, gathered, "--- PAGE 3 ---")
	assert.NotContains(t, gathered, "--- PAGE 2 ---", "pages without sections are skipped")

	assert.Contains(t, gathered, "[Section Type: title]\nAnnual Report")
	assert.Contains(t, gathered, "[Section Type: table]\n| Q | Revenue |")
	assert.NotContains(t, gathered, "footer", "whitespace-only sections are dropped")

	// Page order is preserved.
	assert.Less(t,
		strings.Index(gathered, "PAGE 1"),
		strings.Index(gathered, "PAGE 3"))
}

func testReconstructor(t *testing.T, reply string, captured *map[string]any) *Reconstructor {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "1",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		})
	}))
	t.Cleanup(server.Close)

	client, err := vlm.NewClient(vlm.Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewReconstructor(client)
}

func TestReconstruct(t *testing.T) {
	var captured map[string]any
	r := testReconstructor(t, "```markdown\n# Annual Report\n\nRevenue grew.\n```", &captured)

	doc, err := r.Reconstruct(context.Background(), samplePages())
	require.NoError(t, err)
	assert.Equal(t, "# Annual Report\n\nRevenue grew.", doc)

	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)

	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Contains(t, system["content"], "document reconstruction assistant")

	user := messages[1].(map[string]any)
	assert.Contains(t, user["content"], "[Section Type: title]")
}

func TestReconstructEmptyDocument(t *testing.T) {
	// The server must never be hit for an empty document.
	r := testReconstructor(t, "", nil)

	doc, err := r.Reconstruct(context.Background(), []layout.PageSections{
		{Page: 0, Sections: []layout.Section{{Type: "content", Text: "  "}}},
	})
	require.NoError(t, err)
	assert.Equal(t, emptyDocument, doc)
}

func TestReconstructNilPages(t *testing.T) {
	r := testReconstructor(t, "", nil)

	doc, err := r.Reconstruct(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, emptyDocument, doc)
}
