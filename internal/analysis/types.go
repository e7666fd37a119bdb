package analysis

// Kind classifies what an input artifact structurally is. Media kinds are
// tagged by the upload endpoint; text-like kinds are detected heuristically.
type Kind string

const (
	KindURL   Kind = "url"
	KindPhone Kind = "phone"
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// IsMedia reports whether the kind requires extraction before analysis.
func (k Kind) IsMedia() bool {
	return k == KindImage || k == KindAudio || k == KindVideo
}

// InputArtifact is the immutable, classified unit of analysis.
type InputArtifact struct {
	Raw      string `json:"raw"`
	Kind     Kind   `json:"kind"`
	Language string `json:"language,omitempty"`
}

// EvidenceStatus is a source's categorical judgement of the artifact.
type EvidenceStatus string

const (
	StatusClean        EvidenceStatus = "clean"
	StatusSuspicious   EvidenceStatus = "suspicious"
	StatusMalicious    EvidenceStatus = "malicious"
	StatusInconclusive EvidenceStatus = "inconclusive"
)

// Evidence is one normalized finding from a single intelligence source.
// Score and Confidence are clamped to [0,100]; Weight is the static
// per-source reliability multiplier in (0,1]. Evidence is produced once per
// source call and never mutated afterwards.
type Evidence struct {
	SourceID   string         `json:"source"`
	Score      float64        `json:"score"`
	Confidence float64        `json:"confidence"`
	Weight     float64        `json:"-"`
	Detail     string         `json:"details"`
	Status     EvidenceStatus `json:"status"`
}

// RiskLevel is the ordered verdict band.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank returns the position of the level in the low..critical order.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	}
	return -1
}

// RiskVerdict is the combined assessment for one orchestration call.
// Derived and immutable.
type RiskVerdict struct {
	Level           RiskLevel  `json:"risk_level"`
	Confidence      float64    `json:"confidence"`
	Summary         string     `json:"summary"`
	Reasoning       []string   `json:"reasoning"`
	Evidence        []Evidence `json:"evidence"`
	Recommendations []string   `json:"recommendations"`
	Uncertainties   []string   `json:"uncertainties"`
}

// RawResult is the untyped payload a signal source hands back. The evidence
// normalizer knows the per-source rules for turning it into Evidence.
type RawResult struct {
	SourceID string
	Data     map[string]any
}
