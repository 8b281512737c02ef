package audit

import (
	"testing"

	"geoanomaly/domain/audit"
	"geoanomaly/internal/errors"
)

func TestDiffStates(t *testing.T) {
	t.Run("identical states produce no changes", func(t *testing.T) {
		state := civilianState()
		if changes := DiffStates(state, state); len(changes) != 0 {
			t.Errorf("changes = %v, want none", changes)
		}
	})

	t.Run("count changes carry index minus one", func(t *testing.T) {
		previous := civilianState()
		current := civilianState()
		current.Witnesses = append(current.Witnesses, audit.Witness{
			IdentityType:       audit.IdentityAnonymous,
			VerificationStatus: audit.VerificationClaimedOnly,
		})
		current.Evidence = nil

		changes := DiffStates(previous, current)
		if len(changes) != 2 {
			t.Fatalf("change count = %d, want 2: %v", len(changes), changes)
		}
		for _, c := range changes {
			if c.Index != -1 {
				t.Errorf("%s change has index %d, want -1", c.Field, c.Index)
			}
		}
		if changes[0].Field != "witness_count" || changes[0].Previous != "1" || changes[0].Current != "2" {
			t.Errorf("witness_count change = %+v", changes[0])
		}
		if changes[1].Field != "evidence_count" || changes[1].Previous != "1" || changes[1].Current != "0" {
			t.Errorf("evidence_count change = %+v", changes[1])
		}
	})

	t.Run("per-witness field changes are indexed", func(t *testing.T) {
		previous := civilianState()
		previous.Witnesses = append(previous.Witnesses, audit.Witness{
			IdentityType:       audit.IdentityPseudonymous,
			VerificationStatus: audit.VerificationClaimedOnly,
		})
		current := civilianState()
		current.Witnesses = append(current.Witnesses, audit.Witness{
			IdentityType:       audit.IdentityPseudonymous,
			VerificationStatus: audit.VerificationDocumentationProvided,
			WillingToTestify:   true,
		})

		changes := DiffStates(previous, current)
		if len(changes) != 2 {
			t.Fatalf("change count = %d, want 2: %v", len(changes), changes)
		}
		for _, c := range changes {
			if c.Index != 1 {
				t.Errorf("%s change indexed %d, want 1", c.Field, c.Index)
			}
		}
	})

	t.Run("shrunken witness list only diffs the shared prefix", func(t *testing.T) {
		previous := civilianState()
		previous.Witnesses = append(previous.Witnesses, audit.Witness{
			IdentityType: audit.IdentityAnonymous,
		})
		current := civilianState()

		changes := DiffStates(previous, current)
		if len(changes) != 1 || changes[0].Field != "witness_count" {
			t.Errorf("changes = %v, want only witness_count", changes)
		}
	})
}

func TestNewEvidenceCount(t *testing.T) {
	previous := civilianState()
	current := civilianState()

	if n := NewEvidenceCount(previous, current); n != 0 {
		t.Errorf("unchanged evidence counted %d new items", n)
	}

	// Reordering and kind edits are not new evidence; only unseen IDs count.
	current.Evidence = []audit.EvidenceItem{
		{ID: "e2", Kind: "radar"},
		{ID: "e1", Kind: "retyped"},
		{ID: "e3", Kind: "sample"},
	}
	if n := NewEvidenceCount(previous, current); n != 2 {
		t.Errorf("new evidence = %d, want 2", n)
	}

	// Removal alone is never new evidence.
	current.Evidence = nil
	if n := NewEvidenceCount(previous, current); n != 0 {
		t.Errorf("removal counted %d new items", n)
	}
}

func TestContentHash(t *testing.T) {
	t.Run("stable across evidence reordering", func(t *testing.T) {
		a := civilianState()
		a.Evidence = []audit.EvidenceItem{{ID: "e1", Kind: "photo"}, {ID: "e2", Kind: "radar"}}
		b := civilianState()
		b.Evidence = []audit.EvidenceItem{{ID: "e2", Kind: "radar"}, {ID: "e1", Kind: "photo"}}
		if a.ContentHash() != b.ContentHash() {
			t.Error("evidence reordering changed the content hash")
		}
	})

	t.Run("sensitive to witness fields", func(t *testing.T) {
		a := civilianState()
		b := civilianState()
		b.Witnesses[0].WillingPolygraph = true
		if a.ContentHash() == b.ContentHash() {
			t.Error("witness field change did not change the content hash")
		}
	})
}

func TestValidateUpdate(t *testing.T) {
	t.Run("no upgrade passes", func(t *testing.T) {
		if err := ValidateUpdate(civilianState(), civilianState()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("upgrade without evidence is rejected with fields", func(t *testing.T) {
		current := civilianState()
		current.Witnesses[0].IdentityType = audit.IdentityNamedProfessional
		current.Witnesses[0].VerificationStatus = audit.VerificationIndependentlyVerified

		err := ValidateUpdate(civilianState(), current)
		if err == nil {
			t.Fatal("expected rejection")
		}
		appErr, ok := err.(*errors.AppError)
		if !ok {
			t.Fatalf("error type %T, want *errors.AppError", err)
		}
		if appErr.Code != errors.CodeValidationError {
			t.Errorf("code = %s, want %s", appErr.Code, errors.CodeValidationError)
		}
		want := []string{"identity_type[0]", "verification_status[0]"}
		if len(appErr.Fields) != len(want) {
			t.Fatalf("fields = %v, want %v", appErr.Fields, want)
		}
		for i, f := range want {
			if appErr.Fields[i] != f {
				t.Errorf("field %d = %s, want %s", i, appErr.Fields[i], f)
			}
		}
	})

	t.Run("upgrade with new evidence passes", func(t *testing.T) {
		current := civilianState()
		current.Witnesses[0].IdentityType = audit.IdentityNamedProfessional
		current.Evidence = append(current.Evidence, audit.EvidenceItem{ID: "e2", Kind: "document"})
		if err := ValidateUpdate(civilianState(), current); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("downgrade passes", func(t *testing.T) {
		previous := civilianState()
		previous.Witnesses[0].IdentityType = audit.IdentityNamedOfficial
		if err := ValidateUpdate(previous, civilianState()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
