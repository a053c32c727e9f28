package processor_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/copilot/pkg/processor"
)

const sample = "The Python SDK lets you manage assets programmatically. " +
	"Install it from PyPI with a single pip command! " +
	"Set the base URL and API key as environment variables before connecting. " +
	"Short one. " +
	"Every client call retries transient failures automatically?"

func TestProcessor_Chunk(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{MaxChunkChars: 120})

	chunks := p.Chunk(sample, "Python SDK", "https://developer.example.com/sdks/python/")
	require.Len(t, chunks, 3)

	assert.True(t, strings.HasPrefix(chunks[0].Content, "Python SDK\n\n"))
	assert.Contains(t, chunks[0].Content, "manage assets programmatically.")
	assert.Contains(t, chunks[0].Content, "single pip command!")
	assert.Contains(t, chunks[1].Content, "environment variables before connecting.")
	assert.Contains(t, chunks[2].Content, "retries transient failures automatically?")

	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, "Python SDK", c.Title)
		assert.Equal(t, "https://developer.example.com/sdks/python/", c.SourceURL)
		assert.NotContains(t, c.Content, "Short one")
	}
}

func TestProcessor_ChunkIsDeterministic(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{MaxChunkChars: 80})

	first := p.Chunk(sample, "Python SDK", "https://a")
	second := p.Chunk(sample, "Python SDK", "https://a")

	require.Equal(t, first, second)
	for i := range first {
		assert.Equal(t, first[i].ID(), second[i].ID())
	}
}

func TestProcessor_ChunkNeverSplitsSentences(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{MaxChunkChars: 10})

	long := "This single sentence is far longer than the configured chunk limit."
	chunks := p.Chunk(long, "", "https://a")

	require.Len(t, chunks, 1)
	assert.Equal(t, long, chunks[0].Content)
}

func TestProcessor_ChunkTooShort(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})

	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t "},
		{"below minimum sentence length", "Too short. Also short!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, p.Chunk(tt.content, "Title", "https://a"))
		})
	}
}

func TestProcessor_Qualifies(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{MinContentLength: 30})

	assert.False(t, p.Qualifies("tiny page"))
	assert.True(t, p.Qualifies(strings.Repeat("content ", 5)))
}

func TestChunkIDDependsOnSourceAndIndex(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{MaxChunkChars: 80})

	a := p.Chunk(sample, "T", "https://a")
	b := p.Chunk(sample, "T", "https://b")

	require.NotEmpty(t, a)
	require.NotEmpty(t, b)
	assert.NotEqual(t, a[0].ID(), b[0].ID())
	assert.Len(t, a[0].ID(), 32)
	if len(a) > 1 {
		assert.NotEqual(t, a[0].ID(), a[1].ID())
	}
}
