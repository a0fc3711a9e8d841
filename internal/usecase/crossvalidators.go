package usecase

import (
	"context"
	"errors"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"
)

func userExists(ctx context.Context, users *store.UserStore, username string) (bool, error) {
	var found bool
	err := store.With(ctx, users.Session, func(us *store.UserSession) error {
		_, err := us.Users().Read(ctx, username)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	return found, err
}

func listContains(ctx context.Context, lists *store.CustomListStore, list domain.CustomListName, names []string) (string, error) {
	var missing string
	err := store.With(ctx, lists.Session, func(cs *store.CustomListSession) error {
		for _, name := range names {
			if name == "" {
				continue
			}
			ok, err := cs.Contains(ctx, list, name)
			if err != nil {
				return err
			}
			if !ok {
				missing = name
				return nil
			}
		}
		return nil
	})
	return missing, err
}

// ArtifactUserValidator requires an artifact's creator to be a known user.
func ArtifactUserValidator(users *store.UserStore) store.CrossValidator[domain.Artifact] {
	return store.CrossValidatorFunc[domain.Artifact](func(ctx context.Context, a domain.Artifact) error {
		if a.Header.Creator == "" {
			return nil
		}
		ok, err := userExists(ctx, users, a.Header.Creator)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Referential("artifact %q creator %q is not a known user", a.Header.Identifier, a.Header.Creator)
		}
		return nil
	})
}

// ArtifactCustomListValidator requires every QAS quality of a negotiation
// card to be a known quality attribute.
func ArtifactCustomListValidator(lists *store.CustomListStore) store.CrossValidator[domain.Artifact] {
	return store.CrossValidatorFunc[domain.Artifact](func(ctx context.Context, a domain.Artifact) error {
		card, ok := a.Body.(*domain.NegotiationCard)
		if !ok {
			return nil
		}
		missing, err := listContains(ctx, lists, domain.ListQualityAttributes, card.Qualities())
		if err != nil {
			return err
		}
		if missing != "" {
			return domain.Referential("negotiation card %q quality %q is not in %s", a.Header.Identifier, missing, domain.ListQualityAttributes)
		}
		return nil
	})
}

// CatalogUserValidator requires creator and updater to be known users.
func CatalogUserValidator(users *store.UserStore) store.CrossValidator[domain.CatalogEntry] {
	return store.CrossValidatorFunc[domain.CatalogEntry](func(ctx context.Context, e domain.CatalogEntry) error {
		for _, name := range []string{e.Header.Creator, e.Header.Updater} {
			if name == "" {
				continue
			}
			ok, err := userExists(ctx, users, name)
			if err != nil {
				return err
			}
			if !ok {
				return domain.Referential("catalog entry %q references unknown user %q", e.Header.Identifier, name)
			}
		}
		return nil
	})
}

// CatalogCustomListValidator checks the quality attribute and, when
// checkTags is set, every tag.
func CatalogCustomListValidator(lists *store.CustomListStore, checkTags bool) store.CrossValidator[domain.CatalogEntry] {
	return store.CrossValidatorFunc[domain.CatalogEntry](func(ctx context.Context, e domain.CatalogEntry) error {
		missing, err := listContains(ctx, lists, domain.ListQualityAttributes, []string{e.QualityAttribute})
		if err != nil {
			return err
		}
		if missing != "" {
			return domain.Referential("catalog entry %q quality attribute %q is not in %s", e.Header.Identifier, missing, domain.ListQualityAttributes)
		}
		if !checkTags {
			return nil
		}
		missing, err = listContains(ctx, lists, domain.ListTags, e.Tags)
		if err != nil {
			return err
		}
		if missing != "" {
			return domain.Referential("catalog entry %q tag %q is not in %s", e.Header.Identifier, missing, domain.ListTags)
		}
		return nil
	})
}
