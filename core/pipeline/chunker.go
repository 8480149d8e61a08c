package pipeline

import (
	"fmt"

	"github.com/siherrmann/paperdex/model"
)

// Window is one fixed-size slice of a document's text together with its
// byte offset into the original text.
type Window struct {
	StartOffset int
	Text        string
}

// ChunkFunc is a function that splits text into ordered windows. It must be
// deterministic: the same text always yields the same sequence.
type ChunkFunc func(text string) []Window

// WindowChunker creates a chunker that splits text into fixed-size character
// windows with overlap. Consecutive window offsets advance by exactly
// chunkSize-overlap; the final window may be shorter than chunkSize and is
// still emitted. Windows may split mid-word, which keeps chunk identifiers
// stable across runs.
func WindowChunker(chunkSize int, overlap int) (ChunkFunc, error) {
	if chunkSize <= 0 {
		return nil, &model.ConfigurationError{Reason: fmt.Sprintf("chunk size must be positive, got %v", chunkSize)}
	}
	if overlap < 0 {
		return nil, &model.ConfigurationError{Reason: fmt.Sprintf("overlap cannot be negative, got %v", overlap)}
	}
	if overlap >= chunkSize {
		// A non-positive step would loop forever.
		return nil, &model.ConfigurationError{Reason: fmt.Sprintf("overlap %v must be less than chunk size %v", overlap, chunkSize)}
	}

	step := chunkSize - overlap

	return func(text string) []Window {
		if len(text) == 0 {
			return nil
		}

		var windows []Window
		for start := 0; start < len(text); start += step {
			end := start + chunkSize
			if end > len(text) {
				end = len(text)
			}
			windows = append(windows, Window{
				StartOffset: start,
				Text:        text[start:end],
			})
		}
		return windows
	}, nil
}
