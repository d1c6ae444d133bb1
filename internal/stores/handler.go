package stores

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/store-dashboard/internal/apiclient"
	"github.com/wolfman30/store-dashboard/internal/audit"
	"github.com/wolfman30/store-dashboard/internal/courses"
	"github.com/wolfman30/store-dashboard/internal/notify"
	"github.com/wolfman30/store-dashboard/internal/session"
	"github.com/wolfman30/store-dashboard/internal/staff"
	"github.com/wolfman30/store-dashboard/internal/web"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

// Management tabs, in display order.
const (
	TabBooking = "booking"
	TabCourse  = "course"
	TabStaff   = "staff"
)

var managementTabs = []string{TabBooking, TabCourse, TabStaff}

// ListPage is the data for the store list.
type ListPage struct {
	Stores []Store
}

// FormPage is the data for the create and update forms.
type FormPage struct {
	Store  Store
	Action string
	IsNew  bool
}

// ManagementPage is the data for /stores/{id}/management.
type ManagementPage struct {
	Store   Store
	Tab     string
	Tabs    []string
	Staff   []staff.Staff
	Courses []courses.Course
}

// ActivityPage is the data for /stores/{id}/activity.
type ActivityPage struct {
	StoreID string
	Events  []audit.Event
}

// activityLimit caps the activity list.
const activityLimit = 50

// Handler serves the store screens.
type Handler struct {
	api      *apiclient.Client
	renderer *web.Renderer
	relay    *notify.Relay
	audit    *audit.Service
	logger   *logging.Logger
}

func NewHandler(api *apiclient.Client, renderer *web.Renderer, relay *notify.Relay, auditor *audit.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{api: api, renderer: renderer, relay: relay, audit: auditor, logger: logger}
}

// Routes is mounted at /stores. Store-scoped sub-screens (settings, staff,
// courses) are mounted onto the returned router by the caller.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/create", h.createForm)
	r.Post("/create", h.create)
	r.Get("/update/{storeID}", h.updateForm)
	r.Post("/update/{storeID}", h.update)
	r.Get("/{storeID}/management", h.management)
	r.Get("/{storeID}/activity", h.activity)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := Resource().List(ctx, session.FromContext(ctx).Client(h.api))
	if err != nil {
		h.logger.Error("stores: list failed", "error", err)
		h.relay.Error(ctx, apiclient.Message(err, "Could not load stores"))
		items = []Store{}
	}
	h.renderer.Render(w, r, http.StatusOK, "stores", "Stores", ListPage{Stores: items})
}

func (h *Handler) createForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, "store_form", "New store", FormPage{Action: "/stores/create", IsNew: true})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := FormPage{Action: "/stores/create", IsNew: true}
	if status, ok := h.decode(r, &page.Store); !ok {
		h.renderer.Render(w, r, status, "store_form", "New store", page)
		return
	}

	created, err := Resource().Create(ctx, session.FromContext(ctx).Client(h.api), page.Store)
	if err != nil {
		h.logger.Error("stores: create failed", "error", err)
		h.relay.Error(ctx, apiclient.Message(err, "Could not create store"))
		h.renderer.Render(w, r, failureStatus(err), "store_form", "New store", page)
		return
	}
	h.audit.Record(ctx, audit.Event{
		Action:   audit.ActionStoreCreated,
		UserID:   session.FromContext(ctx).UserID(),
		StoreID:  created.ID,
		EntityID: created.ID,
	})
	h.relay.Success(ctx, "Store created")
	http.Redirect(w, r, "/stores", http.StatusSeeOther)
}

func (h *Handler) updateForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := chi.URLParam(r, "storeID")
	store, err := Get(ctx, session.FromContext(ctx).Client(h.api), storeID)
	if err != nil {
		h.logger.Error("stores: load failed", "store_id", storeID, "error", err)
		h.relay.Error(ctx, apiclient.Message(err, "Could not load store"))
		http.Redirect(w, r, "/stores", http.StatusSeeOther)
		return
	}
	store.ID = storeID
	h.renderer.Render(w, r, http.StatusOK, "store_form", "Edit store", FormPage{
		Store:  store,
		Action: "/stores/update/" + url.PathEscape(storeID),
	})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := chi.URLParam(r, "storeID")
	page := FormPage{Action: "/stores/update/" + url.PathEscape(storeID)}
	if status, ok := h.decode(r, &page.Store); !ok {
		page.Store.ID = storeID
		h.renderer.Render(w, r, status, "store_form", "Edit store", page)
		return
	}

	if _, err := Resource().Update(ctx, session.FromContext(ctx).Client(h.api), storeID, page.Store); err != nil {
		h.logger.Error("stores: update failed", "store_id", storeID, "error", err)
		h.relay.Error(ctx, apiclient.Message(err, "Could not update store"))
		page.Store.ID = storeID
		h.renderer.Render(w, r, failureStatus(err), "store_form", "Edit store", page)
		return
	}
	h.audit.Record(ctx, audit.Event{
		Action:   audit.ActionStoreUpdated,
		UserID:   session.FromContext(ctx).UserID(),
		StoreID:  storeID,
		EntityID: storeID,
	})
	h.relay.Success(ctx, "Store updated")
	http.Redirect(w, r, "/stores", http.StatusSeeOther)
}

func (h *Handler) management(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := chi.URLParam(r, "storeID")
	client := session.FromContext(ctx).Client(h.api)

	store, err := Get(ctx, client, storeID)
	if err != nil {
		h.logger.Error("stores: load failed", "store_id", storeID, "error", err)
		h.relay.Error(ctx, apiclient.Message(err, "Could not load store"))
		http.Redirect(w, r, "/stores", http.StatusSeeOther)
		return
	}
	store.ID = storeID

	page := ManagementPage{Store: store, Tab: managementTab(r.URL.Query().Get("action")), Tabs: managementTabs}
	switch page.Tab {
	case TabStaff:
		page.Staff, err = staff.List(ctx, client, storeID)
		if err != nil {
			h.logger.Error("stores: list staff failed", "store_id", storeID, "error", err)
			h.relay.Error(ctx, apiclient.Message(err, "Could not load staff"))
			page.Staff = []staff.Staff{}
		}
	case TabCourse:
		page.Courses, err = courses.List(ctx, client, storeID)
		if err != nil {
			h.logger.Error("stores: list courses failed", "store_id", storeID, "error", err)
			h.relay.Error(ctx, apiclient.Message(err, "Could not load courses"))
			page.Courses = []courses.Course{}
		}
	}
	h.renderer.Render(w, r, http.StatusOK, "management", "Manage "+store.Name, page)
}

func (h *Handler) activity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := chi.URLParam(r, "storeID")
	events, err := h.audit.QueryEvents(ctx, audit.Filter{StoreID: storeID, Limit: activityLimit})
	if err != nil {
		h.logger.Error("stores: query activity failed", "store_id", storeID, "error", err)
		h.relay.Error(ctx, "Could not load activity")
	}
	h.renderer.Render(w, r, http.StatusOK, "activity", "Activity", ActivityPage{StoreID: storeID, Events: events})
}

func (h *Handler) decode(r *http.Request, dst *Store) (int, bool) {
	if err := web.DecodeForm(r, dst); err != nil {
		h.relay.Error(r.Context(), "The form could not be read")
		return http.StatusBadRequest, false
	}
	if err := web.Validate(*dst); err != nil {
		h.relay.Error(r.Context(), err.Error())
		return http.StatusUnprocessableEntity, false
	}
	return http.StatusOK, true
}

// managementTab falls back to the booking tab for unknown values.
func managementTab(action string) string {
	for _, t := range managementTabs {
		if t == action {
			return t
		}
	}
	return TabBooking
}

func failureStatus(err error) int {
	if apiclient.IsTransport(err) {
		return http.StatusBadGateway
	}
	return http.StatusUnprocessableEntity
}
