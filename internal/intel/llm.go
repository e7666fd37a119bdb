package intel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/sentinel-intel/sentinel/internal/analysis"
)

// TextGenerator is the narrow LLM surface the source depends on.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

// GeminiGenerator implements TextGenerator using Google's Gemini API.
type GeminiGenerator struct {
	client  *genai.Client
	modelID string
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, apiKey, modelID string) (*GeminiGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("intel: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("intel: failed to create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, modelID: modelID}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.modelID)
	model.SetTemperature(0)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("intel: gemini completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("intel: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("intel: gemini returned empty content")
	}

	var out strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	return strings.TrimSpace(out.String()), nil
}

func (g *GeminiGenerator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// LLMSource asks a language model to judge free text for scam patterns.
// Lowest weight of all sources: the model corroborates, nothing more.
type LLMSource struct {
	generator TextGenerator
}

var _ analysis.Source = (*LLMSource)(nil)

func NewLLMSource(generator TextGenerator) *LLMSource {
	if generator == nil {
		panic("intel: text generator cannot be nil")
	}
	return &LLMSource{generator: generator}
}

func (s *LLMSource) ID() string      { return analysis.SourceLLM }
func (s *LLMSource) Weight() float64 { return analysis.WeightFor(s.ID()) }

func (s *LLMSource) Applicable(kind analysis.Kind) bool {
	return kind == analysis.KindText
}

const llmPromptTemplate = `You assess messages for scam and fraud patterns (urgency, payment demands, impersonation, too-good-to-be-true offers).
Respond with only a JSON object: {"score": <0-100 risk>, "confidence": <0-100>, "summary": "<one sentence>"}.

Message:
%s`

func (s *LLMSource) Query(ctx context.Context, artifact analysis.InputArtifact) (analysis.RawResult, error) {
	text, err := s.generator.Generate(ctx, fmt.Sprintf(llmPromptTemplate, artifact.Raw))
	if err != nil {
		return analysis.RawResult{}, err
	}

	var payload struct {
		Score      float64 `json:"score"`
		Confidence float64 `json:"confidence"`
		Summary    string  `json:"summary"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &payload); err != nil {
		return analysis.RawResult{}, fmt.Errorf("intel: llm returned unparseable verdict: %w", err)
	}

	return analysis.RawResult{
		SourceID: s.ID(),
		Data: map[string]any{
			"score":      payload.Score,
			"confidence": payload.Confidence,
			"summary":    payload.Summary,
		},
	}, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
