package store

import (
	"encoding/json"

	"github.com/physio/engine/internal/core"
)

// readingDetails marshals the flagged reading into the anomalies.details
// jsonb column. Marshaling a fixed, already-validated struct cannot fail,
// so a failure here collapses to an empty object rather than aborting the
// anomaly write.
func readingDetails(r core.Reading) []byte {
	b, err := json.Marshal(r)
	if err != nil {
		return []byte("{}")
	}
	return b
}
