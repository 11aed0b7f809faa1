package model

// Evidence photo provenance tags. Display layers label photos by where the
// write path stored them.
const (
	PhotoSourcePod     = "pod_photos"
	PhotoSourceFailure = "failure"
	PhotoSourceLegacy  = "legacy"
)

// EvidencePhoto is one entry of the merged evidence list, regardless of which
// storage generation produced it.
type EvidencePhoto struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	Type        string  `json:"type"`
	Description *string `json:"description"`
	Source      string  `json:"source"`
}

// DeliveryEvidence is the unified read-side view of what happened to an
// order: normalized (or failure-report) photos first, legacy photos appended,
// plus the delivery or failure metadata block.
type DeliveryEvidence struct {
	Order       OrderSummary     `json:"order"`
	Pod         *ProofOfDelivery `json:"pod,omitempty"`
	Failure     *DeliveryFailure `json:"failure,omitempty"`
	Photos      []EvidencePhoto  `json:"photos"`
	LegacyCount int              `json:"legacy_count"`
	HasEvidence bool             `json:"has_evidence"`
}
