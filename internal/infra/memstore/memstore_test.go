package memstore

import (
	"testing"

	"github.com/mlte-team/mlte-sub000/internal/store"
	"github.com/mlte-team/mlte-sub000/internal/store/storetest"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend {
		uri, err := store.ParseURI("memory://")
		if err != nil {
			t.Fatalf("parse uri: %v", err)
		}
		return New(uri)
	}, storetest.Options{})
}
