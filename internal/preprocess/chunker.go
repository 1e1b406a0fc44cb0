package preprocess

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloo-solutions/cardsmith/internal/domain"
)

// DefaultMaxChunkSize is the default maximum chunk length in characters.
const DefaultMaxChunkSize = 4000

// Chunker splits oversized sections on sentence boundaries and orders the
// result by priority, then relevance.
type Chunker struct {
	splitter *SectionSplitter
}

// NewChunker creates a Chunker on top of splitter.
func NewChunker(splitter *SectionSplitter) *Chunker {
	if splitter == nil {
		splitter = NewSectionSplitter(nil)
	}
	return &Chunker{splitter: splitter}
}

// Chunk splits text into chunks of at most maxChunkSize characters, scoring
// relevance without subject keywords. A non-positive maxChunkSize selects
// DefaultMaxChunkSize.
func (c *Chunker) Chunk(text string, maxChunkSize int) []domain.ContentChunk {
	return c.chunkSections(c.splitter.Split(text), maxChunkSize)
}

// ChunkForSubject is Chunk with section relevance scored against subject.
func (c *Chunker) ChunkForSubject(text string, subject domain.Subject, maxChunkSize int) []domain.ContentChunk {
	return c.chunkSections(c.splitter.SplitForSubject(text, subject), maxChunkSize)
}

func (c *Chunker) chunkSections(sections []domain.ContentChunk, maxChunkSize int) []domain.ContentChunk {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}

	chunks := make([]domain.ContentChunk, 0, len(sections))
	for _, section := range sections {
		if utf8.RuneCountInString(section.Text) <= maxChunkSize {
			chunks = append(chunks, section)
			continue
		}
		chunks = append(chunks, splitSection(section, maxChunkSize)...)
	}

	SortChunks(chunks)
	return chunks
}

// SortChunks stable-sorts chunks by priority descending, then relevance
// descending.
func SortChunks(chunks []domain.ContentChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Priority != chunks[j].Priority {
			return chunks[i].Priority > chunks[j].Priority
		}
		return chunks[i].RelevanceScore > chunks[j].RelevanceScore
	})
}

// splitSection greedily packs whole sentences into chunks. A sentence longer
// than maxChunkSize is emitted on its own, untruncated.
func splitSection(section domain.ContentChunk, maxChunkSize int) []domain.ContentChunk {
	var out []domain.ContentChunk
	var buf strings.Builder
	bufLen := 0

	flush := func() {
		if bufLen == 0 {
			return
		}
		out = append(out, section.WithText(buf.String()))
		buf.Reset()
		bufLen = 0
	}

	for _, sentence := range splitSentences(section.Text) {
		n := utf8.RuneCountInString(sentence)
		if bufLen > 0 && bufLen+1+n > maxChunkSize {
			flush()
		}
		if bufLen > 0 {
			buf.WriteByte(' ')
			bufLen++
		}
		buf.WriteString(sentence)
		bufLen += n
	}
	flush()

	return out
}

// splitSentences cuts text after each run of '.', '!' or '?' that is
// followed by whitespace or the end of text. Terminators stay attached to
// their sentence. Sentences are byte slices of text, so invalid UTF-8 is
// kept as-is.
func splitSentences(text string) []string {
	var sentences []string
	emit := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}

	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if !isTerminator(r) {
			continue
		}
		for i < len(text) && isTerminator(rune(text[i])) {
			i++
		}
		if i < len(text) {
			next, _ := utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(next) {
				continue
			}
		}
		emit(text[start:i])
		start = i
	}
	if start < len(text) {
		emit(text[start:])
	}
	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
