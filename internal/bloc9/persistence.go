package bloc9

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FilePersister is the production StatePersister: a single JSON file keyed
// by "<device_type>_<device_id>" at the top level and entity_id within
// each device, per spec.md §6. Writes go to a temp file in the same
// directory and are renamed into place so a crash mid-write never leaves
// a truncated state file behind.
type FilePersister struct {
	path string
}

var _ StatePersister = (*FilePersister)(nil)

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

func (p *FilePersister) Load() (map[string]map[string]PersistedOutputState, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]map[string]PersistedOutputState{}, nil
	}
	if err != nil {
		return nil, newKindError(KindStatePersistIoFailed, err)
	}

	var out map[string]map[string]PersistedOutputState
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, newKindError(KindStatePersistIoFailed, fmt.Errorf("%w: %v", ErrPersistenceFault, err))
	}
	return out, nil
}

func (p *FilePersister) Save(states map[string]map[string]PersistedOutputState) error {
	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return newKindError(KindStatePersistIoFailed, err)
	}

	tmp := p.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return newKindError(KindStatePersistIoFailed, err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return newKindError(KindStatePersistIoFailed, err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return newKindError(KindStatePersistIoFailed, err)
	}
	return nil
}
