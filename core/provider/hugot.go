package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// HugotEmbedder runs a sentence transformer through a hugot feature extraction pipeline
type HugotEmbedder struct {
	spec     ModelSpec
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	mutex    sync.Mutex
}

// NewHugotEmbedder downloads the model if needed and starts a pipeline on the Go backend
func NewHugotEmbedder(spec ModelSpec) (*HugotEmbedder, error) {
	modelPath, err := helper.PrepareModel(spec.Name, spec.OnnxPath, spec.Dir)
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-" + spec.Name,
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return &HugotEmbedder{
		spec:     spec,
		session:  session,
		pipeline: sentencePipeline,
	}, nil
}

// Embed generates the embedding of text
func (e *HugotEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mutex.Lock()
	result, err := e.pipeline.RunPipeline([]string{text})
	e.mutex.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding generated")
	}
	return result.Embeddings[0], nil
}

// Close destroys the hugot session
func (e *HugotEmbedder) Close() error {
	return e.session.Destroy()
}

// HugotExtractor runs a token classification (NER) pipeline
type HugotExtractor struct {
	spec     ModelSpec
	session  *hugot.Session
	pipeline *pipelines.TokenClassificationPipeline
	mutex    sync.Mutex
}

// NewHugotExtractor downloads the NER model if needed and starts a pipeline
// Detects: PER, ORG, LOC, MISC entities with distilbert-NER
func NewHugotExtractor(spec ModelSpec) (*HugotExtractor, error) {
	modelPath, err := helper.PrepareModel(spec.Name, spec.OnnxPath, spec.Dir)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-" + spec.Name,
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}), // Ignore non-entity tokens
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return &HugotExtractor{
		spec:     spec,
		session:  session,
		pipeline: nerPipeline,
	}, nil
}

// Extract returns the named-entity spans of text
func (e *HugotExtractor) Extract(ctx context.Context, text string) ([]model.Mention, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	e.mutex.Lock()
	result, err := e.pipeline.RunPipeline([]string{text})
	e.mutex.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to run NER: %w", err)
	}

	if len(result.Entities) == 0 {
		return nil, nil
	}

	var mentions []model.Mention
	for _, entity := range result.Entities[0] {
		word := strings.TrimSpace(entity.Word)
		if word == "" {
			continue
		}
		mentions = append(mentions, model.Mention{
			Text:  word,
			Type:  normalizeEntityType(entity.Entity),
			Score: float64(entity.Score),
			Start: int(entity.Start),
			End:   int(entity.End),
		})
	}
	return mentions, nil
}

// Close destroys the hugot session
func (e *HugotExtractor) Close() error {
	return e.session.Destroy()
}

// normalizeEntityType removes B- and I- prefixes from NER labels
func normalizeEntityType(label string) string {
	if strings.HasPrefix(label, "B-") || strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}
