package embeddings

import "context"

// Client is a backend that turns text into vectors. Implementations must be
// safe for concurrent use.
type Client interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Name identifies the backing model for logs and errors.
	Name() string
	// Dimensions returns the expected vector size, or 0 if unknown until
	// the first call.
	Dimensions() int
}
