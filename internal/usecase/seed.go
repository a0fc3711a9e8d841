package usecase

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"
)

// SampleCatalogID names the built-in read-only catalog.
const SampleCatalogID = "sample"

//go:embed seeds/custom_lists.yaml
var customListSeed []byte

//go:embed seeds/sample_catalog.yaml
var sampleCatalogSeed []byte

type seedEntry struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Parent      string `yaml:"parent"`
}

type seedCatalogEntry struct {
	Header struct {
		Identifier string `yaml:"identifier"`
	} `yaml:"header"`
	Tags             []string `yaml:"tags"`
	QualityAttribute string   `yaml:"quality_attribute"`
	Code             string   `yaml:"code"`
	Description      string   `yaml:"description"`
	Inputs           string   `yaml:"inputs"`
	Output           string   `yaml:"output"`
}

// DefaultCustomLists decodes the embedded default list entries.
func DefaultCustomLists() (map[domain.CustomListName][]domain.CustomListEntry, error) {
	var raw map[string][]seedEntry
	if err := yaml.Unmarshal(customListSeed, &raw); err != nil {
		return nil, fmt.Errorf("decode custom list seed: %w", err)
	}
	out := make(map[domain.CustomListName][]domain.CustomListEntry, len(raw))
	for name, entries := range raw {
		list, err := domain.ParseCustomListName(name)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			out[list] = append(out[list], domain.CustomListEntry{Name: e.Name, Description: e.Description, Parent: e.Parent})
		}
	}
	return out, nil
}

// SeedCustomLists adds the default entries missing from lists. Parents are
// seeded before their children.
func SeedCustomLists(ctx context.Context, lists *store.CustomListStore, logger *slog.Logger) (int, error) {
	defaults, err := DefaultCustomLists()
	if err != nil {
		return 0, err
	}
	added := 0
	err = store.With(ctx, lists.Session, func(cs *store.CustomListSession) error {
		for _, list := range domain.CustomListNames() {
			mapper, err := cs.Entries(string(list))
			if err != nil {
				return err
			}
			for _, entry := range defaults[list] {
				_, err := mapper.Create(ctx, entry)
				if errors.Is(err, domain.ErrAlreadyExists) {
					continue
				}
				if err != nil {
					return fmt.Errorf("seed %s entry %q: %w", list, entry.Name, err)
				}
				added++
			}
		}
		return nil
	})
	if err != nil {
		return added, err
	}
	if logger != nil && added > 0 {
		logger.InfoContext(ctx, "custom lists seeded", "entries", added)
	}
	return added, nil
}

// SampleCatalogEntries decodes the embedded sample catalog.
func SampleCatalogEntries() ([]domain.CatalogEntry, error) {
	var raw []seedCatalogEntry
	if err := yaml.Unmarshal(sampleCatalogSeed, &raw); err != nil {
		return nil, fmt.Errorf("decode sample catalog: %w", err)
	}
	out := make([]domain.CatalogEntry, 0, len(raw))
	for _, e := range raw {
		entry := domain.CatalogEntry{
			Tags:             e.Tags,
			QualityAttribute: e.QualityAttribute,
			Code:             e.Code,
			Description:      e.Description,
			Inputs:           e.Inputs,
			Output:           e.Output,
		}
		entry.Header.Identifier = e.Header.Identifier
		entry.Header.Creator = DefaultAdminUsername
		out = append(out, entry)
	}
	return out, nil
}

// NewSampleCatalog fills backend with the sample entries through a
// writable store and returns a read-only store over the same backend.
func NewSampleCatalog(ctx context.Context, backend store.Backend, opts store.Options) (*store.CatalogStore, error) {
	entries, err := SampleCatalogEntries()
	if err != nil {
		return nil, err
	}
	writer := store.NewCatalogStore(SampleCatalogID, backend, false, opts)
	err = store.With(ctx, writer.Session, func(cs *store.CatalogSession) error {
		for _, entry := range entries {
			if _, err := cs.Entries().Create(ctx, entry); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store.NewCatalogStore(SampleCatalogID, backend, true, opts), nil
}
