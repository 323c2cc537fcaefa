package dataquery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var allowedExtensions = map[string]bool{
	".csv":  true,
	".json": true,
	".xlsx": true,
	".xls":  true,
}

// SaveFile writes data under dir/agentID/<basename of name>, stripping any
// path traversal from name per spec §4.8 and rejecting disallowed
// extensions.
func SaveFile(dir, agentID, name string, data []byte) (path string, err error) {
	base := filepath.Base(filepath.Clean(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("dataquery: invalid file name %q", name)
	}
	ext := strings.ToLower(filepath.Ext(base))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("dataquery: unsupported file extension %q", ext)
	}

	agentDir := filepath.Join(dir, filepath.Base(agentID))
	if err := os.MkdirAll(agentDir, 0o755); err != nil {
		return "", fmt.Errorf("dataquery: create agent dir: %w", err)
	}

	full := filepath.Join(agentDir, base)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("dataquery: write file: %w", err)
	}
	return full, nil
}
