// Package staff manages the people who take bookings at a store.
package staff

import (
	"context"

	"github.com/wolfman30/store-dashboard/internal/apiclient"
	"github.com/wolfman30/store-dashboard/internal/audit"
	"github.com/wolfman30/store-dashboard/internal/crud"
	"github.com/wolfman30/store-dashboard/internal/notify"
	"github.com/wolfman30/store-dashboard/internal/web"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

// Staff is a bookable staff member. Active and IsAllCourse are 0/1 flags as
// the booking API stores them.
type Staff struct {
	ID             string  `json:"id,omitempty" schema:"-"`
	Name           string  `json:"name" schema:"name" validate:"required,max=120"`
	Email          string  `json:"email" schema:"email" validate:"omitempty,email"`
	Phone          string  `json:"phone" schema:"phone" validate:"max=32"`
	Cost           float64 `json:"cost" schema:"cost" validate:"gte=0"`
	MaxBookingSlot int     `json:"max_booking_slot" schema:"max_booking_slot" validate:"gte=1"`
	Active         int     `json:"active" schema:"active" validate:"oneof=0 1"`
	Color          string  `json:"color" schema:"color"`
	Position       int     `json:"position" schema:"position" validate:"gte=0"`
	IsAllCourse    int     `json:"is_all_course" schema:"is_all_course" validate:"oneof=0 1"`
}

// New returns the defaults shown on the create form.
func New() Staff {
	return Staff{MaxBookingSlot: 1, Active: 1, IsAllCourse: 1}
}

var screen = crud.Screen[Staff]{
	Noun:       "staff",
	Collection: "staffs",
	FormPage:   "staff_form",
	ReturnTab:  "staff",
	New:        New,
	ID:         func(s Staff) string { return s.ID },
	Label:      func(s Staff) string { return s.Name },
	Created:    audit.ActionStaffCreated,
	Updated:    audit.ActionStaffUpdated,
	Deleted:    audit.ActionStaffDeleted,
}

// Resource is the staff collection of storeID.
func Resource(storeID string) *crud.Resource[Staff] {
	return crud.NewResource[Staff](apiclient.PathEscape("stores", storeID, screen.Collection))
}

// List fetches every staff member of storeID.
func List(ctx context.Context, c *apiclient.Client, storeID string) ([]Staff, error) {
	return Resource(storeID).List(ctx, c)
}

// NewHandler serves the staff create/edit/delete pages.
func NewHandler(api *apiclient.Client, renderer *web.Renderer, relay *notify.Relay, auditor *audit.Service, logger *logging.Logger) *crud.Handler[Staff] {
	return crud.NewHandler(screen, api, renderer, relay, auditor, logger)
}
