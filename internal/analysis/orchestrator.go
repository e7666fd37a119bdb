package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/sentinel-intel/sentinel/internal/session"
	"github.com/sentinel-intel/sentinel/pkg/logging"
)

// Source is one independent intelligence provider. Implementations are
// stateless; the orchestrator applies the per-call timeout.
type Source interface {
	ID() string
	Weight() float64
	Applicable(kind Kind) bool
	Query(ctx context.Context, artifact InputArtifact) (RawResult, error)
}

// Registry maps artifact kinds to the sources that can judge them. The
// mapping is static: a source declares its applicable kinds up front and is
// never consulted for anything else.
type Registry struct {
	sources []Source
}

func NewRegistry(sources ...Source) *Registry {
	return &Registry{sources: sources}
}

// For returns the sources applicable to the given kind, in registration
// order.
func (r *Registry) For(kind Kind) []Source {
	var out []Source
	for _, s := range r.sources {
		if s.Applicable(kind) {
			out = append(out, s)
		}
	}
	return out
}

// Extractor turns media bytes into analyzable text plus side-channel
// metadata. Any error is fatal for the request.
type Extractor interface {
	Extract(ctx context.Context, media []byte, kind Kind) (string, map[string]any, error)
}

// MediaFetcher resolves a stored media key to its bytes. Used by queue
// workers so the raw upload never travels through the queue.
type MediaFetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// MetricsRecorder receives analysis outcomes. Implementations must tolerate
// being called from multiple goroutines.
type MetricsRecorder interface {
	ObserveAnalysis(kind, level string, duration time.Duration)
	RecordSourceFailure(sourceID string)
	RecordFollowUp()
}

// Request is one channel-agnostic analysis call. Identity is optional; when
// present the conversation store is consulted and updated. Media is set only
// for upload paths, with KindHint naming the media kind. MediaKey references
// previously stored media so queue payloads stay small.
type Request struct {
	Identity string `json:"identity,omitempty"`
	Raw      string `json:"raw"`
	KindHint string `json:"kind_hint,omitempty"`
	Language string `json:"language,omitempty"`
	Media    []byte `json:"media,omitempty"`
	MediaKey string `json:"media_key,omitempty"`
}

// Result carries the verdict plus the context the rendering boundary needs.
type Result struct {
	Verdict  RiskVerdict   `json:"verdict"`
	Artifact InputArtifact `json:"artifact"`
	Language string        `json:"language"`
	FollowUp bool          `json:"follow_up"`
}

const defaultSourceTimeout = 10 * time.Second

// sourceFailurePenalty scales confidence down once when any applicable
// source failed to respond, on top of the aggregator's own penalties.
const sourceFailurePenalty = 0.9

// Orchestrator is the analysis entry point: it classifies input, extracts
// media when needed, fans out to applicable sources, aggregates the
// normalized evidence, and keeps the conversation store current.
type Orchestrator struct {
	registry      *Registry
	extractor     Extractor
	fetcher       MediaFetcher
	sessions      session.Store
	logger        *logging.Logger
	metrics       MetricsRecorder
	sourceTimeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSourceTimeout overrides the per-source fan-out timeout.
func WithSourceTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.sourceTimeout = d
		}
	}
}

// WithExtractor wires the media extraction adapter. Without one, media
// requests fail with ErrExtractionFailed.
func WithExtractor(e Extractor) Option {
	return func(o *Orchestrator) { o.extractor = e }
}

// WithMetrics wires an analysis metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithMediaFetcher wires the store used to resolve Request.MediaKey.
func WithMediaFetcher(f MediaFetcher) Option {
	return func(o *Orchestrator) { o.fetcher = f }
}

func NewOrchestrator(registry *Registry, sessions session.Store, logger *logging.Logger, opts ...Option) *Orchestrator {
	if registry == nil {
		panic("analysis: registry cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	o := &Orchestrator{
		registry:      registry,
		sessions:      sessions,
		logger:        logger,
		sourceTimeout: defaultSourceTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Analyze runs the full pipeline for one request. Per-source failures are
// absorbed into reduced confidence; only extraction failures and context
// cancellation surface as errors.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Raw == "" && len(req.Media) == 0 && req.MediaKey == "" {
		return nil, ErrEmptyInput
	}

	started := time.Now()
	artifact := Classify(req.Raw, req.KindHint, req.Language)

	if res, ok := o.tryFollowUp(ctx, req, artifact); ok {
		return res, nil
	}

	extraEvidence, artifact, err := o.extractIfMedia(ctx, req, artifact)
	if err != nil {
		return nil, err
	}

	sources := o.registry.For(artifact.Kind)
	evidence, failures, err := o.fanOut(ctx, sources, artifact)
	if err != nil {
		return nil, err
	}
	evidence = append(evidence, extraEvidence...)

	verdict := Aggregate(evidence)
	if failures > 0 {
		verdict.Confidence = round1(verdict.Confidence * sourceFailurePenalty)
		if len(evidence) >= 2 {
			verdict.Uncertainties = append(verdict.Uncertainties,
				fmt.Sprintf("%d source%s did not respond in time.", failures, plural(failures)))
		}
	}

	o.upsertSession(ctx, req.Identity, artifact, verdict)
	if o.metrics != nil {
		o.metrics.ObserveAnalysis(string(artifact.Kind), string(verdict.Level), time.Since(started))
	}
	o.logger.Info("analysis completed",
		"kind", artifact.Kind,
		"risk_level", verdict.Level,
		"confidence", verdict.Confidence,
		"sources_responded", len(evidence),
		"sources_failed", failures,
	)

	return &Result{
		Verdict:  verdict,
		Artifact: artifact,
		Language: artifact.Language,
	}, nil
}

// AnalyzeMedia is the upload-path entry point. kind must be a media kind.
func (o *Orchestrator) AnalyzeMedia(ctx context.Context, identity string, media []byte, kind Kind, language string) (*Result, error) {
	if !kind.IsMedia() {
		return nil, fmt.Errorf("analysis: kind %q is not media", kind)
	}
	return o.Analyze(ctx, Request{
		Identity: identity,
		KindHint: string(kind),
		Language: language,
		Media:    media,
	})
}

// tryFollowUp answers short conversational turns from the stored verdict
// without touching any source. Distinct code path, never an error fallback.
func (o *Orchestrator) tryFollowUp(ctx context.Context, req Request, artifact InputArtifact) (*Result, bool) {
	if o.sessions == nil || req.Identity == "" || artifact.Kind != KindText || !IsFollowUp(artifact.Raw) {
		return nil, false
	}

	sess, found, err := o.sessions.Get(ctx, req.Identity)
	if err != nil {
		o.logger.Error("session lookup failed", "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	last := sess.LastVerdict()
	if last == nil {
		return nil, false
	}

	lang := artifact.Language
	if lang == "en" && sess.Language != "" {
		lang = sess.Language
	}

	verdict := RiskVerdict{
		Level:           RiskLevel(last.Level),
		Confidence:      last.Confidence,
		Summary:         last.Summary,
		Recommendations: last.Recommendations,
	}
	// Follow-up exchanges refresh the session clock but store no new
	// snapshot; the original verdict stays authoritative.
	err = o.sessions.Upsert(ctx, req.Identity, lang, session.Exchange{
		Utterance: artifact.Raw,
		Reply:     verdict.Summary,
	})
	if err != nil {
		o.logger.Error("session upsert failed", "error", err)
	}
	if o.metrics != nil {
		o.metrics.RecordFollowUp()
	}
	o.logger.Info("follow-up answered from session", "risk_level", verdict.Level)

	return &Result{
		Verdict:  verdict,
		Artifact: artifact,
		Language: lang,
		FollowUp: true,
	}, true
}

// extractIfMedia converts media into a text artifact before fan-out.
// Extraction metadata may carry a voice-analysis payload, which becomes an
// extra evidence item.
func (o *Orchestrator) extractIfMedia(ctx context.Context, req Request, artifact InputArtifact) ([]Evidence, InputArtifact, error) {
	if !artifact.Kind.IsMedia() {
		return nil, artifact, nil
	}
	if o.extractor == nil {
		return nil, artifact, fmt.Errorf("%w: no extraction adapter configured", ErrExtractionFailed)
	}

	media := req.Media
	if len(media) == 0 && req.MediaKey != "" {
		if o.fetcher == nil {
			return nil, artifact, fmt.Errorf("%w: no media store configured", ErrExtractionFailed)
		}
		fetched, ferr := o.fetcher.Fetch(ctx, req.MediaKey)
		if ferr != nil {
			return nil, artifact, fmt.Errorf("%w: %v", ErrExtractionFailed, ferr)
		}
		media = fetched
	}

	text, meta, err := o.extractor.Extract(ctx, media, artifact.Kind)
	if err != nil {
		return nil, artifact, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var extra []Evidence
	if voice, ok := meta["voice"].(map[string]any); ok {
		ev, nerr := Normalize(RawResult{SourceID: SourceVoice, Data: voice})
		if nerr != nil {
			o.logger.Warn("voice metadata discarded", "error", nerr)
		} else {
			extra = append(extra, ev)
		}
	}

	// The extracted text is re-classified so a screenshot of a URL still
	// hits the URL sources.
	reclassified := Classify(text, "", req.Language)
	return extra, reclassified, nil
}

type sourceResult struct {
	sourceID string
	raw      RawResult
	err      error
}

// fanOut queries every applicable source in parallel, each bulkheaded by
// its own timeout, and joins before returning. Caller cancellation aborts
// the whole call without a partial verdict.
func (o *Orchestrator) fanOut(ctx context.Context, sources []Source, artifact InputArtifact) ([]Evidence, int, error) {
	if len(sources) == 0 {
		return nil, 0, nil
	}

	results := make(chan sourceResult, len(sources))
	for _, src := range sources {
		go func(src Source) {
			callCtx, cancel := context.WithTimeout(ctx, o.sourceTimeout)
			defer cancel()
			raw, err := src.Query(callCtx, artifact)
			results <- sourceResult{sourceID: src.ID(), raw: raw, err: err}
		}(src)
	}

	var evidence []Evidence
	failures := 0
	for i := 0; i < len(sources); i++ {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case res := <-results:
			if res.err != nil {
				failures++
				o.logger.Warn("signal source failed", "source", res.sourceID, "error", res.err)
				if o.metrics != nil {
					o.metrics.RecordSourceFailure(res.sourceID)
				}
				continue
			}
			ev, err := Normalize(res.raw)
			if err != nil {
				failures++
				o.logger.Warn("signal source result discarded", "source", res.sourceID, "error", err)
				if o.metrics != nil {
					o.metrics.RecordSourceFailure(res.sourceID)
				}
				continue
			}
			evidence = append(evidence, ev)
		}
	}
	return evidence, failures, nil
}

func (o *Orchestrator) upsertSession(ctx context.Context, identity string, artifact InputArtifact, verdict RiskVerdict) {
	if o.sessions == nil || identity == "" {
		return
	}

	utterance := artifact.Raw
	if artifact.Kind.IsMedia() {
		utterance = "[" + string(artifact.Kind) + "]"
	}
	err := o.sessions.Upsert(ctx, identity, artifact.Language, session.Exchange{
		Utterance: utterance,
		Reply:     verdict.Summary,
		Verdict: &session.VerdictSnapshot{
			Level:           string(verdict.Level),
			Confidence:      verdict.Confidence,
			Summary:         verdict.Summary,
			Recommendations: verdict.Recommendations,
		},
	})
	if err != nil {
		o.logger.Error("session upsert failed", "identity_present", true, "error", err)
	}
}
