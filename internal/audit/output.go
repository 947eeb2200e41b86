package audit

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/schema-audit/internal/model"
)

// WriteOutput writes entries keyed by dataset id to path. The file is
// replaced atomically so readers never see a partial document.
func WriteOutput(path string, entries map[string]model.Entry) error {
	if entries == nil {
		entries = map[string]model.Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return eris.Wrap(err, "audit: encode output")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return eris.Wrapf(err, "audit: create temp file in %s", dir)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "audit: write output")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "audit: sync output")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "audit: close output")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return eris.Wrap(err, "audit: chmod output")
	}
	return eris.Wrapf(os.Rename(tmp.Name(), path), "audit: publish output %s", path)
}

// ReadOutput loads a document written by WriteOutput.
func ReadOutput(path string) (map[string]model.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "audit: read output %s", path)
	}
	var entries map[string]model.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrapf(err, "audit: decode output %s", path)
	}
	return entries, nil
}
