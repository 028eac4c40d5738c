package formdef

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Fingerprint returns a stable key identifying this revision of the form.
// Stored forms use id plus last modification time; ad-hoc definitions fall
// back to a content hash.
func (f FormDefinition) Fingerprint() string {
	if f.ID != "" && f.Metadata != nil && !f.Metadata.UpdatedAt.IsZero() {
		return f.ID + "@" + f.Metadata.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	payload, err := json.Marshal(f)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return "sha256:" + hex.EncodeToString(sum[:])
}
