package provider

import (
	"context"

	"github.com/siherrmann/graphrag/model"
)

// Embedder turns text into a fixed-dimension vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Extractor finds named-entity spans in text
type Extractor interface {
	Extract(ctx context.Context, text string) ([]model.Mention, error)
}

// EmbedFunc adapts a function to the Embedder interface
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Embed calls f(ctx, text)
func (f EmbedFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// ExtractFunc adapts a function to the Extractor interface
type ExtractFunc func(ctx context.Context, text string) ([]model.Mention, error)

// Extract calls f(ctx, text)
func (f ExtractFunc) Extract(ctx context.Context, text string) ([]model.Mention, error) {
	return f(ctx, text)
}

// ModelSpec identifies a model and where to keep it locally
type ModelSpec struct {
	Name     string // Hugging Face model id, also the cache key
	OnnxPath string // Path of the onnx file inside the repository
	Dir      string // Local model directory
}

// EmbeddingSpec returns the embedding model of a configuration
func EmbeddingSpec(config *model.RetrieverConfig) ModelSpec {
	return ModelSpec{Name: config.EmbeddingModelName, OnnxPath: config.EmbeddingOnnxPath, Dir: config.ModelDir}
}

// NERSpec returns the NER model of a configuration
func NERSpec(config *model.RetrieverConfig) ModelSpec {
	return ModelSpec{Name: config.NERModelName, OnnxPath: config.NEROnnxPath, Dir: config.ModelDir}
}
