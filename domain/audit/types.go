package audit

import (
	"fmt"
	"sort"

	"geoanomaly/domain/core"
)

// IdentityType classifies a witness's identity claim. The professional set
// carries more scoring weight, which makes unjustified upgrades into it the
// primary inflation vector.
type IdentityType string

const (
	IdentityAnonymous         IdentityType = "anonymous"
	IdentityNamedCivilian     IdentityType = "named_civilian"
	IdentityPseudonymous      IdentityType = "pseudonymous"
	IdentityNamedProfessional IdentityType = "named_professional"
	IdentityNamedOfficial     IdentityType = "named_official"
)

// IsProfessional reports whether the identity type is in the
// professional/official set.
func (t IdentityType) IsProfessional() bool {
	return t == IdentityNamedProfessional || t == IdentityNamedOfficial
}

// VerificationStatus is the ordered scale of witness verification.
type VerificationStatus string

const (
	VerificationClaimedOnly           VerificationStatus = "claimed_only"
	VerificationDocumentationProvided VerificationStatus = "documentation_provided"
	VerificationIndependentlyVerified VerificationStatus = "independently_verified"
)

// Rank maps the ordered verification scale to integers for upgrade
// comparison.
func (s VerificationStatus) Rank() int {
	switch s {
	case VerificationClaimedOnly:
		return 0
	case VerificationDocumentationProvided:
		return 1
	case VerificationIndependentlyVerified:
		return 2
	}
	return -1
}

// Witness is one witness attached to a submission draft.
type Witness struct {
	IdentityType       IdentityType       `json:"identity_type"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	WillingToTestify   bool               `json:"willing_to_testify"`
	WillingPolygraph   bool               `json:"willing_polygraph"`
}

// EvidenceItem is one piece of evidence attached to a draft. Only identity
// matters to the auditor; content lives with the ingestion pipeline.
type EvidenceItem struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// DraftState is the scored snapshot of a submission draft.
type DraftState struct {
	Witnesses []Witness      `json:"witnesses"`
	Evidence  []EvidenceItem `json:"evidence"`
}

// ContentHash deterministically hashes the draft state for change
// detection. Evidence is hashed in sorted-ID order so list reordering does
// not register as a change.
func (s DraftState) ContentHash() core.StateHash {
	fields := map[string]interface{}{
		"witness_count":  len(s.Witnesses),
		"evidence_count": len(s.Evidence),
	}
	for i, w := range s.Witnesses {
		fields[fmt.Sprintf("witness.%d", i)] = fmt.Sprintf("%s|%s|%t|%t",
			w.IdentityType, w.VerificationStatus, w.WillingToTestify, w.WillingPolygraph)
	}
	ids := make([]string, 0, len(s.Evidence))
	for _, e := range s.Evidence {
		ids = append(ids, e.ID+"|"+e.Kind)
	}
	sort.Strings(ids)
	for i, id := range ids {
		fields[fmt.Sprintf("evidence.%d", i)] = id
	}
	return core.ComputeStateHash(fields)
}

// ChangeRecord is one observed difference between successive draft states.
type ChangeRecord struct {
	Field    string `json:"field"`
	Index    int    `json:"index"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// FlagType enumerates the gaming heuristics.
type FlagType string

const (
	FlagRigorDrift          FlagType = "rigor_drift"
	FlagCredentialInflation FlagType = "credential_inflation"
	FlagExcessiveIteration  FlagType = "excessive_iteration"
)

// Severity grades a flag.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// RiskWeight returns the risk-score contribution for the severity.
func (s Severity) RiskWeight() int {
	switch s {
	case SeverityHigh:
		return 40
	case SeverityMedium:
		return 20
	case SeverityLow:
		return 10
	}
	return 0
}

// GamingFlag is a heuristic signal that iterative self-scoring may be being
// manipulated. Flags are derived from audit history at evaluation time, not
// independently persisted as a source of truth.
type GamingFlag struct {
	Type     FlagType               `json:"type"`
	Severity Severity               `json:"severity"`
	Reason   string                 `json:"reason"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// Entry is one append-only audit log row per scoring attempt. Entries are
// never deleted or edited; integrity rests on immutability plus strict
// chronological ordering.
type Entry struct {
	ID          core.ID        `json:"id"`
	DraftID     core.DraftID   `json:"draft_id"`
	ContentHash core.StateHash `json:"content_hash"`
	// State is the snapshot that was scored. Kept so the next attempt can
	// be diffed without re-reading the draft's history.
	State     DraftState     `json:"state"`
	Score     float64        `json:"score"`
	Changes   []ChangeRecord `json:"changes"`
	Flags     []GamingFlag   `json:"flags"`
	CreatedAt core.Timestamp `json:"created_at"`
}
