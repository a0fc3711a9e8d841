package domain

// Model is the organizational parent of versions and model-level artifacts.
type Model struct {
	Identifier string   `json:"identifier"`
	Versions   []string `json:"versions"`
}

func (m Model) QueryIdentifier() string { return m.Identifier }
func (m Model) QueryType() string       { return "model" }

type Version struct {
	Identifier string `json:"identifier"`
}

func (v Version) QueryIdentifier() string { return v.Identifier }
func (v Version) QueryType() string       { return "version" }

// Scope is the (model, version) context artifact operations run under.
// Model-level artifacts ignore VersionID.
type Scope struct {
	ModelID   string `json:"model_id"`
	VersionID string `json:"version_id"`
}

func NewScope(modelID, versionID string) Scope {
	return Scope{ModelID: modelID, VersionID: versionID}
}

// ModelScope drops the version, addressing model-level artifacts.
func (s Scope) ModelScope() Scope {
	return Scope{ModelID: s.ModelID}
}

func (s Scope) Validate() error {
	if err := ValidIdentifier("model", s.ModelID); err != nil {
		return err
	}
	if s.VersionID == "" {
		return nil
	}
	return ValidIdentifier("version", s.VersionID)
}

func (s Scope) String() string {
	if s.VersionID == "" {
		return s.ModelID
	}
	return s.ModelID + "/" + s.VersionID
}
