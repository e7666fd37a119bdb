package bootstrap

import (
	"context"
	"io"

	"github.com/sentinel-intel/sentinel/internal/analysis"
	appconfig "github.com/sentinel-intel/sentinel/internal/config"
	"github.com/sentinel-intel/sentinel/internal/intel"
	"github.com/sentinel-intel/sentinel/pkg/logging"
)

// BuildRegistry constructs the source registry from whatever API keys are
// configured. Missing keys simply leave that source out; the aggregator
// copes with any evidence count. The returned closer releases source
// clients that hold connections.
func BuildRegistry(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*analysis.Registry, io.Closer, error) {
	if logger == nil {
		logger = logging.Default()
	}

	var sources []analysis.Source
	closers := closerGroup{}

	sources = append(sources, intel.NewURLHausSource(cfg.URLHausAuthKey))

	if cfg.VirusTotalAPIKey != "" {
		vt, err := intel.NewVirusTotalSource(cfg.VirusTotalAPIKey)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, vt)
	} else {
		logger.Warn("VIRUSTOTAL_API_KEY not set, virustotal source disabled")
	}

	if cfg.SerperAPIKey != "" {
		serper, err := intel.NewSerperClient(cfg.SerperAPIKey)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources,
			intel.NewPhoneSearchSource(serper),
			intel.NewNewsSource(serper),
		)
	} else {
		logger.Warn("SERPER_API_KEY not set, phone search and news sources disabled")
	}

	if cfg.GeminiAPIKey != "" {
		gen, err := intel.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, gen)
		sources = append(sources, intel.NewLLMSource(gen))
	} else {
		logger.Warn("GEMINI_API_KEY not set, llm source disabled")
	}

	logger.Info("source registry built", "sources", len(sources))
	return analysis.NewRegistry(sources...), closers, nil
}

type closerGroup []io.Closer

func (g closerGroup) Close() error {
	var first error
	for _, c := range g {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
