package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_ShortTextIsOneSpan(t *testing.T) {
	spans := New(2048, 512).Split("just a short paragraph.")
	require.Len(t, spans, 1)
	assert.Equal(t, "just a short paragraph.", spans[0].Text)
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, len("just a short paragraph."), spans[0].End)
	assert.Positive(t, spans[0].Tokens)
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	assert.Empty(t, New(100, 20).Split(""))
	assert.Empty(t, New(100, 20).Split("   \n\n \t "))
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	para1 := strings.Repeat("a", 70)
	para2 := strings.Repeat("b", 70)
	text := para1 + "\n\n" + para2
	spans := New(100, 10).Split(text)
	require.GreaterOrEqual(t, len(spans), 2)
	assert.Equal(t, para1, spans[0].Text, "first span should cut at the paragraph break")
}

func TestSplit_OffsetsIndexOriginalText(t *testing.T) {
	text := strings.Repeat("word ", 200)
	spans := New(128, 32).Split(text)
	require.NotEmpty(t, spans)
	for _, sp := range spans {
		assert.Equal(t, sp.Text, text[sp.Start:sp.End])
	}
}

func TestSplit_OverlapAndProgress(t *testing.T) {
	text := strings.Repeat("x", 10_000)
	spans := New(1000, 250).Split(text)
	require.NotEmpty(t, spans)
	for i := 1; i < len(spans); i++ {
		assert.Greater(t, spans[i].Start, spans[i-1].Start, "spans must advance")
		assert.LessOrEqual(t, spans[i].Start, spans[i-1].End, "consecutive spans overlap")
	}
	assert.Equal(t, len(text), spans[len(spans)-1].End)
}

func TestSplit_CoversWholeDocumentInOrder(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 80; i++ {
		b.WriteString("Sentence number about retrieval pipelines. ")
		if i%10 == 9 {
			b.WriteString("\n\n")
		}
	}
	text := b.String()
	spans := New(512, 128).Split(text)
	require.NotEmpty(t, spans)
	assert.Equal(t, 0, spans[0].Start)
	for i := 1; i < len(spans); i++ {
		assert.Greater(t, spans[i].End, spans[i-1].End)
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(0, -1)
	assert.Equal(t, 2048, s.chunkSize)
	assert.Equal(t, 512, s.overlap)
}
