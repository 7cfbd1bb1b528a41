package corpus

import (
	"fmt"
	"os"

	"github.com/StackPilotAI/stackpilot-mvp/engine/domain"
	"github.com/goccy/go-json"
)

// snapshotFile is the offline pipeline's output format. A bare JSON array of
// projects is also accepted, matching older snapshot files.
type snapshotFile struct {
	Projects []domain.ReferenceProject `json:"projects"`
}

// LoadFile reads a corpus snapshot from a JSON file.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes snapshot JSON in either the wrapped or bare-array format.
func Parse(data []byte) (*Snapshot, error) {
	var wrapped snapshotFile
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Projects != nil {
		return NewSnapshot(wrapped.Projects)
	}

	var bare []domain.ReferenceProject
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("corpus: unrecognized snapshot format: %w", err)
	}
	return NewSnapshot(bare)
}
