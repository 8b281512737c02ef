package audit

import (
	"fmt"

	"geoanomaly/domain/audit"
	"geoanomaly/internal/errors"
)

// ValidateUpdate is the hard-validation rule enforced synchronously before
// an update is accepted: a credential or verification-status upgrade with
// no accompanying new evidence is rejected outright, not just flagged. The
// soft audit path runs after the write and never blocks it.
func ValidateUpdate(previous, current audit.DraftState) error {
	changes := DiffStates(previous, current)
	upgrades := credentialUpgrades(changes)
	if len(upgrades) == 0 {
		return nil
	}
	if NewEvidenceCount(previous, current) > 0 {
		return nil
	}

	fields := make([]string, len(upgrades))
	for i, u := range upgrades {
		fields[i] = fmt.Sprintf("%s[%d]", u.Field, u.Index)
	}
	return errors.ValidationError("credential or verification upgrade requires new evidence", fields...)
}
