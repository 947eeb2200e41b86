package model

// Target is a dataset/schema pair to audit.
type Target struct {
	DatasetID string `json:"dataset_id" yaml:"dataset_id"`
	Schema    string `json:"schema" yaml:"schema"`
}

// Schema is a published schema as described by the registry.
type Schema struct {
	Slug                   string `json:"slug"`
	Title                  string `json:"title"`
	SchemaURL              string `json:"schema_url"`
	LatestVersion          string `json:"latest_version"`
	ConsolidationDatasetID string `json:"consolidation_dataset_id,omitempty"`
	SchemaType             string `json:"schema_type"`
	DocURL                 string `json:"doc_url"`
}

// DatasetMeta is the subset of dataset metadata the audit needs.
// ResourceURL is the dataset's first resource.
type DatasetMeta struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	ResourceURL string     `json:"resource_url"`
	Resources   []Resource `json:"resources,omitempty"`
}

// Resource is one file of a dataset. SchemaName is empty when the
// publisher declared no schema.
type Resource struct {
	URL        string `json:"url"`
	SchemaName string `json:"schema_name,omitempty"`
}

// ResourceFor returns the URL of the first resource declaring schemaSlug,
// falling back to ResourceURL.
func (m *DatasetMeta) ResourceFor(schemaSlug string) string {
	for _, r := range m.Resources {
		if schemaSlug != "" && r.SchemaName == schemaSlug {
			return r.URL
		}
	}
	return m.ResourceURL
}
