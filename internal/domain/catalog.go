package domain

// CatalogEntryHeader carries bookkeeping the catalog store populates.
type CatalogEntryHeader struct {
	Identifier string `json:"identifier" validate:"required"`
	Creator    string `json:"creator,omitempty"`
	Created    int64  `json:"created,omitempty"`
	Updater    string `json:"updater,omitempty"`
	Updated    int64  `json:"updated,omitempty"`
	CatalogID  string `json:"catalog_id,omitempty"`
}

// CatalogEntry is a reusable test snippet.
type CatalogEntry struct {
	Header           CatalogEntryHeader `json:"header"`
	Tags             []string           `json:"tags"`
	QualityAttribute string             `json:"quality_attribute,omitempty"`
	Code             string             `json:"code"`
	Description      string             `json:"description,omitempty"`
	Inputs           string             `json:"inputs,omitempty"`
	Output           string             `json:"output,omitempty"`
}

func (e CatalogEntry) QueryIdentifier() string { return e.Header.Identifier }
func (e CatalogEntry) QueryType() string       { return "catalog_entry" }

func (e CatalogEntry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CatalogInfo describes one catalog in a catalog group.
type CatalogInfo struct {
	Identifier string `json:"id"`
	ReadOnly   bool   `json:"read_only"`
	Type       string `json:"type"`
}
