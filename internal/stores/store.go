// Package stores serves the store list, the store create/update forms and the
// per-store management tabs.
package stores

import (
	"context"

	"github.com/wolfman30/store-dashboard/internal/apiclient"
	"github.com/wolfman30/store-dashboard/internal/crud"
)

// Store is a business location that takes bookings.
type Store struct {
	ID          string `json:"id,omitempty" schema:"-"`
	Name        string `json:"name" schema:"name" validate:"required,max=120"`
	Description string `json:"description" schema:"description" validate:"max=2000"`
	Email       string `json:"email" schema:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" schema:"phone" validate:"max=32"`
	Address     string `json:"address" schema:"address"`
	Logo        string `json:"logo" schema:"logo" validate:"omitempty,url"`
	Website     string `json:"website" schema:"website" validate:"omitempty,url"`
	Location    string `json:"location" schema:"location"`
}

// Resource is the /stores collection. The API lists and creates on the
// slash-terminated path.
func Resource() *crud.Resource[Store] {
	return crud.NewResource[Store]("/stores").WithCollectionPath("/stores/")
}

// Get fetches one store.
func Get(ctx context.Context, c *apiclient.Client, id string) (Store, error) {
	return Resource().Get(ctx, c, id)
}
