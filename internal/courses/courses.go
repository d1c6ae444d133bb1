// Package courses manages the services a store offers for booking.
package courses

import (
	"context"

	"github.com/wolfman30/store-dashboard/internal/apiclient"
	"github.com/wolfman30/store-dashboard/internal/audit"
	"github.com/wolfman30/store-dashboard/internal/crud"
	"github.com/wolfman30/store-dashboard/internal/notify"
	"github.com/wolfman30/store-dashboard/internal/web"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

// Course is a bookable service. EstimateTime is in minutes.
type Course struct {
	ID           string  `json:"id,omitempty" schema:"-"`
	Name         string  `json:"name" schema:"name" validate:"required,max=120"`
	Image        string  `json:"image" schema:"image" validate:"omitempty,url"`
	Description  string  `json:"description" schema:"description" validate:"max=2000"`
	Cost         float64 `json:"cost" schema:"cost" validate:"gte=0"`
	EstimateTime int     `json:"estimate_time" schema:"estimate_time" validate:"gte=0"`
	Active       int     `json:"active" schema:"active" validate:"oneof=0 1"`
	Color        string  `json:"color" schema:"color"`
	Position     int     `json:"position" schema:"position" validate:"gte=0"`
}

func New() Course {
	return Course{Active: 1}
}

var screen = crud.Screen[Course]{
	Noun:       "course",
	Collection: "courses",
	FormPage:   "course_form",
	ReturnTab:  "course",
	New:        New,
	ID:         func(c Course) string { return c.ID },
	Label:      func(c Course) string { return c.Name },
	Created:    audit.ActionCourseCreated,
	Updated:    audit.ActionCourseUpdated,
	Deleted:    audit.ActionCourseDeleted,
}

func Resource(storeID string) *crud.Resource[Course] {
	return crud.NewResource[Course](apiclient.PathEscape("stores", storeID, screen.Collection))
}

func List(ctx context.Context, c *apiclient.Client, storeID string) ([]Course, error) {
	return Resource(storeID).List(ctx, c)
}

// NewHandler serves the course create/edit/delete pages.
func NewHandler(api *apiclient.Client, renderer *web.Renderer, relay *notify.Relay, auditor *audit.Service, logger *logging.Logger) *crud.Handler[Course] {
	return crud.NewHandler(screen, api, renderer, relay, auditor, logger)
}
