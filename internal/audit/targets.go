package audit

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/schema-audit/internal/model"
)

// ErrDuplicateTarget is returned when a dataset is listed more than once.
var ErrDuplicateTarget = eris.New("audit: dataset listed more than once")

type targetsFile struct {
	Targets []model.Target `yaml:"targets"`
}

// LoadTargets reads the dataset/schema pairs listed in a YAML file:
//
//	targets:
//	  - dataset_id: 5448d3e0c751df01f85d0572
//	    schema: etalab/schema-irve
func LoadTargets(path string) ([]model.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "audit: read targets %s", path)
	}
	var f targetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "audit: parse targets %s", path)
	}
	seen := make(map[string]int, len(f.Targets))
	for i, t := range f.Targets {
		if t.DatasetID == "" || t.Schema == "" {
			return nil, eris.Errorf("audit: targets %s: entry %d needs dataset_id and schema", path, i+1)
		}
		if first, dup := seen[t.DatasetID]; dup {
			return nil, eris.Wrapf(ErrDuplicateTarget, "targets %s: entry %d repeats %s from entry %d", path, i+1, t.DatasetID, first)
		}
		seen[t.DatasetID] = i + 1
	}
	return f.Targets, nil
}

// ConsolidatedLister lists schemas that have a consolidated dataset.
type ConsolidatedLister interface {
	Consolidated(ctx context.Context) ([]model.Schema, error)
}

// RegistryTargets pairs every consolidated schema with its dataset. When
// several schemas share a consolidation dataset only the first is kept.
func RegistryTargets(ctx context.Context, reg ConsolidatedLister) ([]model.Target, error) {
	schemas, err := reg.Consolidated(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "audit: list consolidated schemas")
	}
	targets := make([]model.Target, 0, len(schemas))
	owner := make(map[string]string, len(schemas))
	for _, s := range schemas {
		if first, dup := owner[s.ConsolidationDatasetID]; dup {
			zap.L().Warn("registry: dataset consolidates several schemas, keeping the first",
				zap.String("dataset_id", s.ConsolidationDatasetID),
				zap.String("kept", first),
				zap.String("skipped", s.Slug),
			)
			continue
		}
		owner[s.ConsolidationDatasetID] = s.Slug
		targets = append(targets, model.Target{DatasetID: s.ConsolidationDatasetID, Schema: s.Slug})
	}
	return targets, nil
}
