package extract

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaserJamal/simple-ocr/internal/ocr"
	"github.com/NaserJamal/simple-ocr/internal/quality"
)

const (
	cleanText   = "This is a perfectly normal sentence with readable words in it."
	garbageText = "###@@@ !!!! ^^^^ **** %%%% &&&& $$ ####"
)

type fakeOCR struct {
	mu      sync.Mutex
	enabled bool
	texts   map[string]string
	err     error
	calls   int
}

func (f *fakeOCR) IsEnabled() bool { return f.enabled }

func (f *fakeOCR) ExtractTextFromImage(_ context.Context, imageData []byte, _ []string) (*ocr.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &ocr.Result{Text: f.texts[string(imageData)], Pages: 1}, nil
}

func (f *fakeOCR) ExtractTextFromPDF(_ context.Context, _ []byte, _ []string) (*ocr.Result, error) {
	return nil, fmt.Errorf("not used in tests")
}

func (f *fakeOCR) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRasterizer struct {
	available bool
	images    [][]byte
	err       error
}

func (f *fakeRasterizer) Available() bool { return f.available }

func (f *fakeRasterizer) PageImages(_ context.Context, _ []byte) ([][]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.images, nil
}

func pageImages(n int) [][]byte {
	images := make([][]byte, n)
	for i := range images {
		images[i] = []byte(fmt.Sprintf("page-%d", i))
	}
	return images
}

func testExtractor(t *testing.T, svc FallbackOCR, ras PageRasterizer) *Extractor {
	t.Helper()
	e, err := New(Config{
		Assessor:   quality.MustNew(quality.DefaultConfig()),
		OCR:        svc,
		Rasterizer: ras,
		MaxWorkers: 3,
	})
	require.NoError(t, err)
	return e
}

func TestNewRequiresAssessor(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestProcessPagesAcceptsCleanText(t *testing.T) {
	svc := &fakeOCR{enabled: true}
	e := testExtractor(t, svc, &fakeRasterizer{available: true, images: pageImages(2)})

	result, err := e.processPages(context.Background(), nil, []string{cleanText, cleanText})
	require.NoError(t, err)
	require.Len(t, result.Pages, 2)

	for i, page := range result.Pages {
		assert.Equal(t, i, page.Page)
		assert.Equal(t, SourceNative, page.Source)
		assert.False(t, page.OCRUsed)
		assert.Equal(t, 100, page.Report.Score)
	}
	assert.Equal(t, 0, svc.callCount(), "clean pages must not trigger OCR")
}

func TestProcessPagesFallsBackForBadPages(t *testing.T) {
	images := pageImages(3)
	svc := &fakeOCR{
		enabled: true,
		texts: map[string]string{
			string(images[1]): "Recovered text from the scanned page, now fully readable.",
		},
	}
	e := testExtractor(t, svc, &fakeRasterizer{available: true, images: images})

	result, err := e.processPages(context.Background(), nil, []string{cleanText, garbageText, cleanText})
	require.NoError(t, err)
	require.Len(t, result.Pages, 3)

	assert.Equal(t, SourceNative, result.Pages[0].Source)
	assert.Equal(t, SourceNative, result.Pages[2].Source)

	bad := result.Pages[1]
	assert.Equal(t, 1, bad.Page)
	assert.Equal(t, SourceOCR, bad.Source)
	assert.True(t, bad.OCRUsed)
	assert.Equal(t, "Recovered text from the scanned page, now fully readable.", bad.Text)
	assert.Equal(t, 100, bad.Report.Score)

	assert.Equal(t, 1, svc.callCount(), "only the rejected page should be OCRed")
}

func TestProcessPagesKeepsNativeWhenOCRWorse(t *testing.T) {
	images := pageImages(1)
	svc := &fakeOCR{
		enabled: true,
		texts:   map[string]string{string(images[0]): "@@@@"},
	}
	e := testExtractor(t, svc, &fakeRasterizer{available: true, images: images})

	result, err := e.processPages(context.Background(), nil, []string{garbageText})
	require.NoError(t, err)

	page := result.Pages[0]
	assert.Equal(t, SourceNative, page.Source)
	assert.True(t, page.OCRUsed, "a failed improvement attempt is still recorded")
	assert.Equal(t, garbageText, page.Text)
}

func TestProcessPagesKeepsNativeWhenOCRErrors(t *testing.T) {
	svc := &fakeOCR{enabled: true, err: fmt.Errorf("engine crashed")}
	e := testExtractor(t, svc, &fakeRasterizer{available: true, images: pageImages(1)})

	result, err := e.processPages(context.Background(), nil, []string{garbageText})
	require.NoError(t, err)

	page := result.Pages[0]
	assert.Equal(t, SourceNative, page.Source)
	assert.Equal(t, garbageText, page.Text)
}

func TestProcessPagesOCRDisabled(t *testing.T) {
	svc := &fakeOCR{enabled: false}
	e := testExtractor(t, svc, &fakeRasterizer{available: true, images: pageImages(1)})

	result, err := e.processPages(context.Background(), nil, []string{garbageText})
	require.NoError(t, err)

	assert.Equal(t, SourceNative, result.Pages[0].Source)
	assert.Equal(t, 0, svc.callCount())
}

func TestProcessPagesRasterizerUnavailable(t *testing.T) {
	svc := &fakeOCR{enabled: true}
	e := testExtractor(t, svc, &fakeRasterizer{available: false})

	result, err := e.processPages(context.Background(), nil, []string{garbageText})
	require.NoError(t, err)

	assert.Equal(t, SourceNative, result.Pages[0].Source)
	assert.Equal(t, 0, svc.callCount())
}

func TestProcessPagesMissingImageForPage(t *testing.T) {
	// Rasterizer renders fewer pages than the text layer reports.
	svc := &fakeOCR{enabled: true}
	e := testExtractor(t, svc, &fakeRasterizer{available: true, images: pageImages(1)})

	result, err := e.processPages(context.Background(), nil, []string{cleanText, garbageText})
	require.NoError(t, err)

	assert.Equal(t, SourceNative, result.Pages[1].Source)
	assert.Equal(t, 0, svc.callCount())
}

func TestProcessPagesParallelOrderingStable(t *testing.T) {
	const n = 8
	images := pageImages(n)
	texts := make([]string, n)
	ocrTexts := make(map[string]string, n)
	for i := 0; i < n; i++ {
		texts[i] = garbageText
		ocrTexts[string(images[i])] = fmt.Sprintf("Readable recovered content for page number %d here.", i)
	}

	svc := &fakeOCR{enabled: true, texts: ocrTexts}
	e := testExtractor(t, svc, &fakeRasterizer{available: true, images: images})

	result, err := e.processPages(context.Background(), nil, texts)
	require.NoError(t, err)
	require.Len(t, result.Pages, n)

	for i, page := range result.Pages {
		assert.Equal(t, i, page.Page)
		assert.Contains(t, page.Text, fmt.Sprintf("page number %d", i),
			"results must be associated by page index, not completion order")
	}
}

func TestAssembleJoinsPages(t *testing.T) {
	e := testExtractor(t, nil, nil)
	result := e.assemble([]PageResult{
		{Page: 0, Text: "first"},
		{Page: 1, Text: "second"},
	})
	assert.Equal(t, "first\n\nsecond", result.Text)
}

func TestAssessText(t *testing.T) {
	e := testExtractor(t, nil, nil)
	assert.Equal(t, 100, e.AssessText(cleanText).Score)
	assert.Less(t, e.AssessText(garbageText).Score, 50)
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"clean", "hello world", "hello world"},
		{"null bytes", "hel\x00lo", "hello"},
		{"control chars", "a\x01b\x02c", "abc"},
		{"keeps whitespace", "a\tb\nc\rd", "a\tb\nc\rd"},
		{"delete char", "a\x7Fb", "ab"},
		{"unicode preserved", "héllo wörld 日本語", "héllo wörld 日本語"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeText(tt.input))
		})
	}
}
