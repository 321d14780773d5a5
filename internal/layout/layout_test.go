package layout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaserJamal/simple-ocr/internal/vlm"
)

func TestRectJSON(t *testing.T) {
	t.Run("unmarshal array", func(t *testing.T) {
		var r Rect
		require.NoError(t, json.Unmarshal([]byte(`[10, 20.5, 30, 40]`), &r))
		assert.Equal(t, Rect{X0: 10, Y0: 20.5, X1: 30, Y1: 40}, r)
	})

	t.Run("wrong length", func(t *testing.T) {
		var r Rect
		assert.Error(t, json.Unmarshal([]byte(`[10, 20, 30]`), &r))
	})

	t.Run("not an array", func(t *testing.T) {
		var r Rect
		assert.Error(t, json.Unmarshal([]byte(`{"x": 1}`), &r))
	})

	t.Run("roundtrip", func(t *testing.T) {
		in := Rect{X0: 1, Y0: 2, X1: 3, Y1: 4}
		data, err := json.Marshal(in)
		require.NoError(t, err)
		assert.JSONEq(t, `[1, 2, 3, 4]`, string(data))

		var out Rect
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, in, out)
	})
}

func TestRectValid(t *testing.T) {
	assert.True(t, Rect{X0: 0, Y0: 0, X1: 10, Y1: 10}.Valid())
	assert.False(t, Rect{X0: 10, Y0: 0, X1: 10, Y1: 10}.Valid())
	assert.False(t, Rect{X0: 20, Y0: 0, X1: 10, Y1: 10}.Valid())
	assert.False(t, Rect{X0: 0, Y0: 10, X1: 10, Y1: 5}.Valid())
}

func TestDenormalize(t *testing.T) {
	t.Run("inverse scale", func(t *testing.T) {
		// Page 800x600 scaled by 0.5 onto the canvas.
		geom := Geometry{Width: 800, Height: 600, Scale: 0.5}
		got := Denormalize(Rect{X0: 10, Y0: 20, X1: 110, Y1: 220}, geom)
		assert.Equal(t, Rect{X0: 20, Y0: 40, X1: 220, Y1: 440}, got)
	})

	t.Run("reordered coordinates", func(t *testing.T) {
		geom := Geometry{Width: 100, Height: 100, Scale: 1}
		got := Denormalize(Rect{X0: 80, Y0: 90, X1: 20, Y1: 10}, geom)
		assert.Equal(t, Rect{X0: 20, Y0: 10, X1: 80, Y1: 90}, got)
	})

	t.Run("clamped to page bounds", func(t *testing.T) {
		geom := Geometry{Width: 100, Height: 50, Scale: 1}
		got := Denormalize(Rect{X0: -10, Y0: -5, X1: 150, Y1: 80}, geom)
		assert.Equal(t, Rect{X0: 0, Y0: 0, X1: 100, Y1: 50}, got)
	})

	t.Run("zero scale treated as identity", func(t *testing.T) {
		geom := Geometry{Width: 100, Height: 100, Scale: 0}
		got := Denormalize(Rect{X0: 10, Y0: 10, X1: 20, Y1: 20}, geom)
		assert.Equal(t, Rect{X0: 10, Y0: 10, X1: 20, Y1: 20}, got)
	})
}

func detectorForReply(t *testing.T, reply string) *Detector {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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
	return NewDetector(client, 1001)
}

func TestDetectSections(t *testing.T) {
	t.Run("fenced reply with valid sections", func(t *testing.T) {
		d := detectorForReply(t, "```json\n"+
			`[{"section_type": "title", "rect": [10, 10, 500, 60], "confidence": "high"},`+
			` {"section_type": "paragraph", "rect": [10, 80, 500, 400]}]`+
			"\n```")

		sections, err := d.DetectSections(context.Background(), "aW1n", 0)
		require.NoError(t, err)
		require.Len(t, sections, 2)
		assert.Equal(t, "title", sections[0].Type)
		assert.Equal(t, Rect{X0: 10, Y0: 80, X1: 500, Y1: 400}, sections[1].Rect)
	})

	t.Run("invalid sections dropped", func(t *testing.T) {
		d := detectorForReply(t,
			`[{"section_type": "title", "rect": [10, 10, 500, 60]},`+
				` {"section_type": "", "rect": [0, 0, 10, 10]},`+
				` {"section_type": "table", "rect": [50, 50, 20, 90]}]`)

		sections, err := d.DetectSections(context.Background(), "aW1n", 0)
		require.NoError(t, err)
		require.Len(t, sections, 1)
		assert.Equal(t, "title", sections[0].Type)
	})

	t.Run("out of bounds rect clamped", func(t *testing.T) {
		d := detectorForReply(t, `[{"section_type": "footer", "rect": [-5, 900, 1200, 1100]}]`)

		sections, err := d.DetectSections(context.Background(), "aW1n", 0)
		require.NoError(t, err)
		require.Len(t, sections, 1)
		assert.Equal(t, Rect{X0: 0, Y0: 900, X1: 1001, Y1: 1001}, sections[0].Rect)
	})

	t.Run("reply without array", func(t *testing.T) {
		d := detectorForReply(t, "I could not find any sections on this page.")
		_, err := d.DetectSections(context.Background(), "aW1n", 0)
		assert.Error(t, err)
	})
}
