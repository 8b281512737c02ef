package audit

import (
	"fmt"

	"geoanomaly/domain/audit"
)

// DiffStates compares two successive draft states and produces change
// records for witness-count, evidence-count, and per-index witness field
// changes. Witnesses are compared positionally; the submission UI keeps
// witness order stable across edits.
func DiffStates(previous, current audit.DraftState) []audit.ChangeRecord {
	var changes []audit.ChangeRecord

	if len(previous.Witnesses) != len(current.Witnesses) {
		changes = append(changes, audit.ChangeRecord{
			Field:    "witness_count",
			Index:    -1,
			Previous: fmt.Sprintf("%d", len(previous.Witnesses)),
			Current:  fmt.Sprintf("%d", len(current.Witnesses)),
		})
	}
	if len(previous.Evidence) != len(current.Evidence) {
		changes = append(changes, audit.ChangeRecord{
			Field:    "evidence_count",
			Index:    -1,
			Previous: fmt.Sprintf("%d", len(previous.Evidence)),
			Current:  fmt.Sprintf("%d", len(current.Evidence)),
		})
	}

	n := len(previous.Witnesses)
	if len(current.Witnesses) < n {
		n = len(current.Witnesses)
	}
	for i := 0; i < n; i++ {
		prev, cur := previous.Witnesses[i], current.Witnesses[i]
		if prev.IdentityType != cur.IdentityType {
			changes = append(changes, audit.ChangeRecord{
				Field:    "identity_type",
				Index:    i,
				Previous: string(prev.IdentityType),
				Current:  string(cur.IdentityType),
			})
		}
		if prev.VerificationStatus != cur.VerificationStatus {
			changes = append(changes, audit.ChangeRecord{
				Field:    "verification_status",
				Index:    i,
				Previous: string(prev.VerificationStatus),
				Current:  string(cur.VerificationStatus),
			})
		}
		if prev.WillingToTestify != cur.WillingToTestify {
			changes = append(changes, audit.ChangeRecord{
				Field:    "willing_to_testify",
				Index:    i,
				Previous: fmt.Sprintf("%t", prev.WillingToTestify),
				Current:  fmt.Sprintf("%t", cur.WillingToTestify),
			})
		}
		if prev.WillingPolygraph != cur.WillingPolygraph {
			changes = append(changes, audit.ChangeRecord{
				Field:    "willing_polygraph",
				Index:    i,
				Previous: fmt.Sprintf("%t", prev.WillingPolygraph),
				Current:  fmt.Sprintf("%t", cur.WillingPolygraph),
			})
		}
	}

	return changes
}

// NewEvidenceCount counts evidence items present now that were absent
// before, by ID.
func NewEvidenceCount(previous, current audit.DraftState) int {
	seen := make(map[string]bool, len(previous.Evidence))
	for _, e := range previous.Evidence {
		seen[e.ID] = true
	}
	added := 0
	for _, e := range current.Evidence {
		if !seen[e.ID] {
			added++
		}
	}
	return added
}

// credentialUpgrades returns the change records that represent a
// credential or verification-status upgrade (never a downgrade).
func credentialUpgrades(changes []audit.ChangeRecord) []audit.ChangeRecord {
	var upgrades []audit.ChangeRecord
	for _, c := range changes {
		switch c.Field {
		case "identity_type":
			prev := audit.IdentityType(c.Previous)
			cur := audit.IdentityType(c.Current)
			if !prev.IsProfessional() && cur.IsProfessional() {
				upgrades = append(upgrades, c)
			}
		case "verification_status":
			prev := audit.VerificationStatus(c.Previous)
			cur := audit.VerificationStatus(c.Current)
			if cur.Rank() > prev.Rank() {
				upgrades = append(upgrades, c)
			}
		}
	}
	return upgrades
}
