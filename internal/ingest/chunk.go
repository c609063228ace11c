package ingest

import (
	"strconv"
	"strings"
	"unicode"
)

// ChunkerConfig sizes chunks in characters.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

func (c ChunkerConfig) WithDefaults() ChunkerConfig {
	if c.Size <= 0 {
		c.Size = 1200
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		c.Overlap = c.Size / 6
	}
	return c
}

// Chunk is a piece of a page ready for embedding.
type Chunk struct {
	Text string
	// Location is "p.N" for paged documents, "offset:N" otherwise.
	Location string
}

// ChunkPages splits every page into overlapping chunks, breaking on
// whitespace where possible. Lines are kept intact so tables survive.
func ChunkPages(pages []Page, cfg ChunkerConfig) []Chunk {
	cfg = cfg.WithDefaults()

	var out []Chunk
	for _, p := range pages {
		runes := []rune(strings.TrimSpace(p.Text))
		start := 0
		for start < len(runes) {
			end := start + cfg.Size
			if end > len(runes) {
				end = len(runes)
			} else if cut := lastBreak(runes[start:end]); cut > cfg.Size/2 {
				end = start + cut
			}

			text := strings.TrimSpace(string(runes[start:end]))
			if text != "" {
				out = append(out, Chunk{Text: text, Location: location(p.Number, start)})
			}
			if end >= len(runes) {
				break
			}

			next := end - cfg.Overlap
			if next <= start {
				next = end
			}
			start = next
		}
	}
	return out
}

// lastBreak prefers a newline, then any whitespace; 0 when none.
func lastBreak(runes []rune) int {
	for i := len(runes) - 1; i > 0; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	for i := len(runes) - 1; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return 0
}

func location(page, offset int) string {
	if page > 0 {
		return "p." + strconv.Itoa(page)
	}
	return "offset:" + strconv.Itoa(offset)
}
