package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/sentinel-intel/sentinel/internal/config"
	"github.com/sentinel-intel/sentinel/internal/extract"
	"github.com/sentinel-intel/sentinel/pkg/logging"
)

// BuildExtractor wires the Bedrock media extractor. Returns nil when no
// image model is configured, which disables media analysis.
func BuildExtractor(awsCfg aws.Config, cfg *appconfig.Config, logger *logging.Logger) *extract.BedrockExtractor {
	if cfg.BedrockImageModelID == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	client := bedrockruntime.NewFromConfig(awsCfg)
	return extract.NewBedrockExtractor(client, client, cfg.BedrockImageModelID, cfg.BedrockAudioModelID, logger)
}
