package usecase

import (
	"context"
	"testing"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"
)

func TestPolicyShape(t *testing.T) {
	p := NewPolicy(domain.ResourceModel, "m1")
	if got := len(p.Permissions()); got != 5 {
		t.Fatalf("expected 5 permissions, got %d", got)
	}
	groups := p.Groups()
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Name != "read-model-m1" || groups[1].Name != "write-model-m1" {
		t.Fatalf("unexpected group names %q %q", groups[0].Name, groups[1].Name)
	}
	if len(groups[0].Permissions) != 1 || groups[0].Permissions[0].Method != domain.MethodGet {
		t.Fatalf("read group should hold GET only, got %+v", groups[0].Permissions)
	}
	if len(groups[1].Permissions) != 3 {
		t.Fatalf("write group should hold 3 permissions, got %+v", groups[1].Permissions)
	}
	if NewPolicy(domain.ResourceCatalog, "").ReadGroupName() != "read-catalog" {
		t.Fatalf("type-wide policy name should omit the id")
	}
}

func TestPolicySaveRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := NewPolicy(domain.ResourceModel, "m1")
	err := store.With(ctx, f.users.Session, func(us *store.UserSession) error {
		if err := p.Save(ctx, us); err != nil {
			return err
		}
		// saving twice is a no-op
		if err := p.Save(ctx, us); err != nil {
			return err
		}
		ok, err := p.Stored(ctx, us)
		if err != nil {
			return err
		}
		if !ok {
			t.Fatalf("expected policy to be stored")
		}
		if err := p.Remove(ctx, us); err != nil {
			return err
		}
		ok, err = p.Stored(ctx, us)
		if err != nil {
			return err
		}
		if ok {
			t.Fatalf("expected policy to be removed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("policy round trip: %v", err)
	}
}
