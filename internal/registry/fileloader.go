package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveToFile writes agent as YAML to <dir>/<id>.yaml, per spec §4.6. Callers
// validate id/webhook_name before calling.
func SaveToFile(dir string, a *Agent) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("registry: create agents dir: %w", err)
	}
	data, err := yaml.Marshal(a)
	if err != nil {
		return fmt.Errorf("registry: marshal agent %q: %w", a.ID, err)
	}
	path := filepath.Join(dir, a.ID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("registry: write %s: %w", path, err)
	}
	return nil
}

// DeleteFile removes an agent's file, if present. A missing file is not an
// error: the agent may have been DB-only.
func DeleteFile(dir, id string) error {
	path := filepath.Join(dir, id+".yaml")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("registry: delete %s: %w", path, err)
	}
	return nil
}

// LoadFromDir reads every *.yaml/*.yml/*.json file directly under dir into
// an Agent, per spec §4.6.
func LoadFromDir(dir string) ([]*Agent, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("registry: read agents dir: %w", err)
	}

	var agents []*Agent
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("registry: read %s: %w", path, err)
		}
		var a Agent
		if ext == ".json" {
			err = json.Unmarshal(data, &a)
		} else {
			err = yaml.Unmarshal(data, &a)
		}
		if err != nil {
			return nil, fmt.Errorf("registry: parse %s: %w", path, err)
		}
		agents = append(agents, &a)
	}
	return agents, nil
}
