package fsstore

import (
	"testing"

	"github.com/mlte-team/mlte-sub000/internal/store"
	"github.com/mlte-team/mlte-sub000/internal/store/storetest"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend {
		uri, err := store.ParseURI("fs://" + t.TempDir())
		if err != nil {
			t.Fatalf("parse uri: %v", err)
		}
		b, err := New(uri)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		return b
	}, storetest.Options{})
}
