package processor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/xhad/copilot/internal/models"
)

type ProcessorConfig struct {
	MaxChunkChars     int
	MinSentenceLength int
	MinContentLength  int
}

// Processor splits crawled content into retrieval-sized chunks.
type Processor struct {
	config   ProcessorConfig
	sentence *regexp.Regexp
}

func NewWithConfig(config ProcessorConfig) *Processor {
	if config.MaxChunkChars == 0 {
		config.MaxChunkChars = 1000
	}
	if config.MinSentenceLength == 0 {
		config.MinSentenceLength = 20
	}
	if config.MinContentLength == 0 {
		config.MinContentLength = 100
	}

	return &Processor{
		config:   config,
		sentence: regexp.MustCompile(`[^.!?]+[.!?]*`),
	}
}

// Qualifies reports whether a page carries enough text to be worth ingesting.
func (p *Processor) Qualifies(content string) bool {
	return len(strings.TrimSpace(content)) >= p.config.MinContentLength
}

// Chunk splits content into ordered chunks. Sentences are never split, the
// first chunk carries the title, and content with no qualifying sentence
// yields no chunks.
func (p *Processor) Chunk(content, title, sourceURL string) []models.Chunk {
	title = strings.TrimSpace(sanitizeUTF8(title))
	sentences := p.splitIntoSentences(p.cleanText(content))

	var chunks []models.Chunk
	current := strings.Builder{}
	if title != "" {
		current.WriteString(title)
		current.WriteString("\n\n")
	}
	size := 0
	count := 0

	flush := func() {
		chunks = append(chunks, models.Chunk{
			Content:    strings.TrimSpace(current.String()),
			SourceURL:  sourceURL,
			Title:      title,
			ChunkIndex: len(chunks),
		})
		current.Reset()
		size = 0
		count = 0
	}

	for _, sentence := range sentences {
		if count > 0 && size+len(sentence) > p.config.MaxChunkChars {
			flush()
		}
		if count > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
		size += len(sentence)
		count++
	}

	if count > 0 {
		flush()
	}

	return chunks
}

func (p *Processor) cleanText(text string) string {
	text = sanitizeUTF8(text)
	// Replace runs of whitespace, including line breaks, with a single space
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(text)
}

func (p *Processor) splitIntoSentences(text string) []string {
	var sentences []string
	for _, raw := range p.sentence.FindAllString(text, -1) {
		s := strings.TrimSpace(raw)
		// Count only the words; a run of punctuation alone is noise
		body := strings.TrimRight(s, ".!?")
		if len(strings.TrimSpace(body)) <= p.config.MinSentenceLength {
			continue
		}
		sentences = append(sentences, s)
	}
	return sentences
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
