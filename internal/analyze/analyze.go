// Package analyze feeds archived mail text to a completion API and collects
// the responses.
package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/calebdoyle/mailsift/internal/archive"
)

// Completer is the text-in/text-out surface of the completion API.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// DefaultInstruction is the fixed analysis prompt prepended to every chunk.
const DefaultInstruction = `The following is an archive of email messages, each delimited by` +
	` "--- MESSAGE START ---" and "--- MESSAGE END ---" lines. Summarize the` +
	` senders, recurring topics, and anything that looks like an action item` +
	` or a subscription worth cancelling. Be concise.`

// DefaultChunkBytes keeps one chunk comfortably inside a completion context
// window.
const DefaultChunkBytes = 96 * 1024

// Service runs the analysis over an archive blob.
type Service struct {
	Completer   Completer
	Logger      *slog.Logger
	Instruction string
	ChunkBytes  int
}

func NewService(completer Completer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{
		Completer:   completer,
		Logger:      logger,
		Instruction: DefaultInstruction,
		ChunkBytes:  DefaultChunkBytes,
	}
}

// Run sends each chunk with the fixed instruction and concatenates responses
// in chunk order. No retry policy beyond the completion client's own.
func (s *Service) Run(ctx context.Context, archiveText string) (string, error) {
	if strings.TrimSpace(archiveText) == "" {
		return "", fmt.Errorf("archive is empty")
	}
	chunkBytes := s.ChunkBytes
	if chunkBytes <= 0 {
		chunkBytes = DefaultChunkBytes
	}
	chunks := SplitChunks(archiveText, chunkBytes)
	s.Logger.InfoContext(ctx, "analyzing archive", "bytes", len(archiveText), "chunks", len(chunks))

	responses := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		prompt := s.Instruction + "\n\n" + chunk
		resp, err := s.Completer.Complete(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("complete chunk %d/%d: %w", i+1, len(chunks), err)
		}
		responses = append(responses, strings.TrimSpace(resp))
	}
	return strings.Join(responses, "\n\n"), nil
}

// SplitChunks cuts the archive at message-block boundaries so no chunk starts
// or ends mid-message. Text at or under maxBytes stays a single chunk; a
// single block larger than maxBytes becomes its own chunk rather than being
// cut.
func SplitChunks(text string, maxBytes int) []string {
	if len(text) <= maxBytes {
		return []string{text}
	}
	parts := strings.Split(text, archive.BlockStart)
	if len(parts) == 1 {
		// No block delimiters; nothing safe to cut on.
		return []string{text}
	}

	var blocks []string
	if strings.TrimSpace(parts[0]) != "" {
		blocks = append(blocks, parts[0])
	}
	for _, part := range parts[1:] {
		blocks = append(blocks, archive.BlockStart+part)
	}

	var chunks []string
	var current strings.Builder
	for _, block := range blocks {
		if current.Len() > 0 && current.Len()+len(block) > maxBytes {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(block)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
