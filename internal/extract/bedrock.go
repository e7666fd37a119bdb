package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/sentinel-intel/sentinel/internal/analysis"
	"github.com/sentinel-intel/sentinel/pkg/logging"
)

// BedrockConverseAPI is the subset of the Bedrock client used for image
// extraction.
type BedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockInvokeAPI is the subset used for the audio/video analysis model.
type BedrockInvokeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockExtractor converts media into analyzable text. Images go through a
// multimodal Converse call; audio and video go through a transcription model
// that also reports a synthetic-voice estimate.
type BedrockExtractor struct {
	converse     BedrockConverseAPI
	invoke       BedrockInvokeAPI
	imageModelID string
	audioModelID string
	logger       *logging.Logger
}

var _ analysis.Extractor = (*BedrockExtractor)(nil)

func NewBedrockExtractor(converse BedrockConverseAPI, invoke BedrockInvokeAPI, imageModelID, audioModelID string, logger *logging.Logger) *BedrockExtractor {
	if logger == nil {
		logger = logging.Default()
	}
	return &BedrockExtractor{
		converse:     converse,
		invoke:       invoke,
		imageModelID: imageModelID,
		audioModelID: audioModelID,
		logger:       logger,
	}
}

// Extract returns the text content of the media plus metadata. For audio and
// video the metadata carries a "voice" payload with the synthetic-voice
// estimate.
func (e *BedrockExtractor) Extract(ctx context.Context, media []byte, kind analysis.Kind) (string, map[string]any, error) {
	if len(media) == 0 {
		return "", nil, errors.New("extract: media is empty")
	}

	switch kind {
	case analysis.KindImage:
		return e.extractImage(ctx, media)
	case analysis.KindAudio, analysis.KindVideo:
		return e.extractAudio(ctx, media, kind)
	default:
		return "", nil, fmt.Errorf("extract: unsupported kind %q", kind)
	}
}

const imageExtractionPrompt = `Transcribe all visible text from this screenshot exactly as written. Include URLs, phone numbers, and message content. Return only the transcribed text, no commentary.`

func (e *BedrockExtractor) extractImage(ctx context.Context, media []byte) (string, map[string]any, error) {
	if e.converse == nil {
		return "", nil, errors.New("extract: no converse client configured")
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(e.imageModelID),
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberImage{Value: brtypes.ImageBlock{
						Format: detectImageFormat(media),
						Source: &brtypes.ImageSourceMemberBytes{Value: media},
					}},
					&brtypes.ContentBlockMemberText{Value: imageExtractionPrompt},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(1024),
			Temperature: aws.Float32(0.0),
		},
	}

	resp, err := e.converse.Converse(ctx, input)
	if err != nil {
		return "", nil, fmt.Errorf("extract: bedrock converse: %w", err)
	}

	text := converseResponseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", nil, errors.New("extract: no text recognized in image")
	}
	e.logger.Debug("image text extracted", "chars", len(text))
	return text, map[string]any{"media_kind": string(analysis.KindImage)}, nil
}

func (e *BedrockExtractor) extractAudio(ctx context.Context, media []byte, kind analysis.Kind) (string, map[string]any, error) {
	if e.invoke == nil {
		return "", nil, errors.New("extract: no invoke client configured")
	}

	body, err := json.Marshal(map[string]any{
		"task":  "transcribe_and_score",
		"media": media,
		"kind":  string(kind),
	})
	if err != nil {
		return "", nil, fmt.Errorf("extract: encode invoke body: %w", err)
	}

	resp, err := e.invoke.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.audioModelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", nil, fmt.Errorf("extract: bedrock invoke: %w", err)
	}

	var out struct {
		Transcript          string  `json:"transcript"`
		DeepfakeProbability float64 `json:"deepfake_probability"`
		Confidence          float64 `json:"confidence"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", nil, fmt.Errorf("extract: decode invoke response: %w", err)
	}
	if strings.TrimSpace(out.Transcript) == "" {
		return "", nil, errors.New("extract: empty transcript")
	}

	meta := map[string]any{
		"media_kind": string(kind),
		"voice": map[string]any{
			"deepfake_probability": out.DeepfakeProbability,
			"confidence":           out.Confidence,
		},
	}
	e.logger.Debug("audio transcript extracted",
		"chars", len(out.Transcript),
		"deepfake_probability", out.DeepfakeProbability,
	)
	return out.Transcript, meta, nil
}

func converseResponseText(resp *bedrockruntime.ConverseOutput) string {
	if resp == nil || resp.Output == nil {
		return ""
	}
	output, ok := resp.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || len(output.Value.Content) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, block := range output.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	return sb.String()
}

func detectImageFormat(media []byte) brtypes.ImageFormat {
	switch {
	case len(media) >= 8 && media[0] == 0x89 && media[1] == 'P':
		return brtypes.ImageFormatPng
	case len(media) >= 3 && media[0] == 0xFF && media[1] == 0xD8:
		return brtypes.ImageFormatJpeg
	case len(media) >= 4 && string(media[:4]) == "GIF8":
		return brtypes.ImageFormatGif
	case len(media) >= 12 && string(media[8:12]) == "WEBP":
		return brtypes.ImageFormatWebp
	default:
		return brtypes.ImageFormatJpeg
	}
}
