package template

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaserJamal/simple-ocr/internal/vlm"
)

func TestBuiltinRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"invoice", "receipt"}, r.Keys())

	tmpl, err := r.Get("invoice")
	require.NoError(t, err)
	assert.Equal(t, "Invoice", tmpl.Name)
	assert.NotEmpty(t, tmpl.Prompt)
}

func TestRegistryUnknownKey(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("passport")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoice, receipt")
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()

	promptPath := filepath.Join(dir, "id_card.txt")
	require.NoError(t, os.WriteFile(promptPath, []byte("Extract the ID fields."), 0o644))

	registryPath := filepath.Join(dir, "templates.yaml")
	registryYAML := `
id_card:
  name: National ID Card
  prompt_file: id_card.txt
bill:
  name: Utility Bill
  prompt: Extract the billing fields.
`
	require.NoError(t, os.WriteFile(registryPath, []byte(registryYAML), 0o644))

	r, err := LoadRegistry(registryPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"bill", "id_card"}, r.Keys())

	idCard, err := r.Get("id_card")
	require.NoError(t, err)
	assert.Equal(t, "National ID Card", idCard.Name)
	assert.Equal(t, "Extract the ID fields.", idCard.Prompt)

	bill, err := r.Get("bill")
	require.NoError(t, err)
	assert.Equal(t, "Extract the billing fields.", bill.Prompt)
}

func TestLoadRegistryErrors(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRegistry(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("empty registry", func(t *testing.T) {
		_, err := LoadRegistry(write("empty.yaml", "{}\n"))
		assert.Error(t, err)
	})

	t.Run("template without name", func(t *testing.T) {
		_, err := LoadRegistry(write("noname.yaml", "x:\n  prompt: p\n"))
		assert.Error(t, err)
	})

	t.Run("template without prompt", func(t *testing.T) {
		_, err := LoadRegistry(write("noprompt.yaml", "x:\n  name: X\n"))
		assert.Error(t, err)
	})

	t.Run("missing prompt file", func(t *testing.T) {
		_, err := LoadRegistry(write("badref.yaml", "x:\n  name: X\n  prompt_file: gone.txt\n"))
		assert.Error(t, err)
	})
}

func testParser(t *testing.T, reply string, captured *map[string]any) *Parser {
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

	return NewParser(client, nil)
}

func TestParserExtract(t *testing.T) {
	var captured map[string]any
	reply := "```json\n{\"invoice_number\": \"INV-42\", \"total\": 99.5}\n```"
	p := testParser(t, reply, &captured)

	fields, err := p.Extract(context.Background(), "aW1hZ2U=", "invoice")
	require.NoError(t, err)
	assert.Equal(t, "INV-42", fields["invoice_number"])
	assert.Equal(t, 99.5, fields["total"])

	// JSON output mode and zero temperature must be on the wire.
	format, ok := captured["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
	assert.Equal(t, 0.0, captured["temperature"])
}

func TestParserExtractUnknownTemplate(t *testing.T) {
	p := testParser(t, "{}", nil)
	_, err := p.Extract(context.Background(), "aW1hZ2U=", "unknown")
	assert.Error(t, err)
}

func TestParserExtractBadReply(t *testing.T) {
	p := testParser(t, "no json here", nil)
	_, err := p.Extract(context.Background(), "aW1hZ2U=", "invoice")
	assert.Error(t, err)
}
