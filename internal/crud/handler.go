package crud

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/store-dashboard/internal/apiclient"
	"github.com/wolfman30/store-dashboard/internal/audit"
	"github.com/wolfman30/store-dashboard/internal/notify"
	"github.com/wolfman30/store-dashboard/internal/session"
	"github.com/wolfman30/store-dashboard/internal/web"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

// Screen describes the pages of one store-scoped entity.
type Screen[T any] struct {
	Noun       string // "staff"
	Collection string // API segment under /stores/{id}, e.g. "staffs"
	FormPage   string
	ReturnTab  string // management tab shown after a mutation
	New        func() T
	ID         func(T) string
	Label      func(T) string

	Created audit.Action
	Updated audit.Action
	Deleted audit.Action
}

// Form is the data for create and edit pages.
type Form[T any] struct {
	StoreID string
	ItemID  string
	Item    T
	Action  string
	Cancel  string
}

// Confirm is the data for the delete confirmation page.
type Confirm struct {
	Noun   string
	Label  string
	Action string
	Cancel string
}

// Handler serves create/edit/delete pages for a Screen. Listing lives on the
// store management page, which every mutation redirects to, so the list is
// always fetched fresh after a change.
type Handler[T any] struct {
	screen   Screen[T]
	api      *apiclient.Client
	renderer *web.Renderer
	relay    *notify.Relay
	audit    *audit.Service
	logger   *logging.Logger
}

func NewHandler[T any](screen Screen[T], api *apiclient.Client, renderer *web.Renderer, relay *notify.Relay, auditor *audit.Service, logger *logging.Logger) *Handler[T] {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler[T]{
		screen:   screen,
		api:      api,
		renderer: renderer,
		relay:    relay,
		audit:    auditor,
		logger:   logger,
	}
}

// Routes is mounted at /stores/{storeID}/<collection>.
func (h *Handler[T]) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/new", h.newForm)
	r.Post("/", h.create)
	r.Get("/{itemID}/edit", h.editForm)
	r.Post("/{itemID}", h.update)
	r.Get("/{itemID}/delete", h.confirmDelete)
	r.Post("/{itemID}/delete", h.delete)
	return r
}

// Resource returns the API collection for storeID.
func (h *Handler[T]) Resource(storeID string) *Resource[T] {
	return NewResource[T](apiclient.PathEscape("stores", storeID, h.screen.Collection))
}

func (h *Handler[T]) client(ctx context.Context) *apiclient.Client {
	return session.FromContext(ctx).Client(h.api)
}

func (h *Handler[T]) returnURL(storeID string) string {
	return "/stores/" + url.PathEscape(storeID) + "/management?action=" + url.QueryEscape(h.screen.ReturnTab)
}

func (h *Handler[T]) basePath(storeID string) string {
	return "/stores/" + url.PathEscape(storeID) + "/" + h.screen.Collection
}

func (h *Handler[T]) renderForm(w http.ResponseWriter, r *http.Request, status int, storeID, itemID string, item T) {
	action := h.basePath(storeID)
	title := "New " + h.screen.Noun
	if itemID != "" {
		action += "/" + url.PathEscape(itemID)
		title = "Edit " + h.screen.Noun
	}
	h.renderer.Render(w, r, status, h.screen.FormPage, title, Form[T]{
		StoreID: storeID,
		ItemID:  itemID,
		Item:    item,
		Action:  action,
		Cancel:  h.returnURL(storeID),
	})
}

func (h *Handler[T]) newForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, chi.URLParam(r, "storeID"), "", h.screen.New())
}

func (h *Handler[T]) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := chi.URLParam(r, "storeID")
	item, ok := h.decode(w, r, storeID, "")
	if !ok {
		return
	}

	created, err := h.Resource(storeID).Create(ctx, h.client(ctx), item)
	if err != nil {
		h.logger.Error("crud: create failed", "noun", h.screen.Noun, "store_id", storeID, "error", err)
		h.relay.Error(ctx, apiclient.Message(err, "Could not create "+h.screen.Noun))
		h.renderForm(w, r, failureStatus(err), storeID, "", item)
		return
	}
	h.record(ctx, h.screen.Created, storeID, h.screen.ID(created))
	h.relay.Success(ctx, capitalize(h.screen.Noun)+" created")
	http.Redirect(w, r, h.returnURL(storeID), http.StatusSeeOther)
}

func (h *Handler[T]) editForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := chi.URLParam(r, "storeID")
	itemID := chi.URLParam(r, "itemID")

	item, err := h.Resource(storeID).Get(ctx, h.client(ctx), itemID)
	if err != nil {
		h.logger.Error("crud: load failed", "noun", h.screen.Noun, "store_id", storeID, "id", itemID, "error", err)
		h.relay.Error(ctx, apiclient.Message(err, "Could not load "+h.screen.Noun))
		http.Redirect(w, r, h.returnURL(storeID), http.StatusSeeOther)
		return
	}
	h.renderForm(w, r, http.StatusOK, storeID, itemID, item)
}

func (h *Handler[T]) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := chi.URLParam(r, "storeID")
	itemID := chi.URLParam(r, "itemID")
	item, ok := h.decode(w, r, storeID, itemID)
	if !ok {
		return
	}

	if _, err := h.Resource(storeID).Update(ctx, h.client(ctx), itemID, item); err != nil {
		h.logger.Error("crud: update failed", "noun", h.screen.Noun, "store_id", storeID, "id", itemID, "error", err)
		h.relay.Error(ctx, apiclient.Message(err, "Could not update "+h.screen.Noun))
		h.renderForm(w, r, failureStatus(err), storeID, itemID, item)
		return
	}
	h.record(ctx, h.screen.Updated, storeID, itemID)
	h.relay.Success(ctx, capitalize(h.screen.Noun)+" updated")
	http.Redirect(w, r, h.returnURL(storeID), http.StatusSeeOther)
}

func (h *Handler[T]) confirmDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := chi.URLParam(r, "storeID")
	itemID := chi.URLParam(r, "itemID")

	label := itemID
	if item, err := h.Resource(storeID).Get(ctx, h.client(ctx), itemID); err == nil {
		if l := h.screen.Label(item); l != "" {
			label = l
		}
	}
	h.renderer.Render(w, r, http.StatusOK, "confirm_delete", "Delete "+h.screen.Noun, Confirm{
		Noun:   h.screen.Noun,
		Label:  label,
		Action: h.basePath(storeID) + "/" + url.PathEscape(itemID) + "/delete",
		Cancel: h.returnURL(storeID),
	})
}

func (h *Handler[T]) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := chi.URLParam(r, "storeID")
	itemID := chi.URLParam(r, "itemID")

	if r.PostFormValue("confirm") != "yes" {
		http.Redirect(w, r, h.returnURL(storeID), http.StatusSeeOther)
		return
	}
	if err := h.Resource(storeID).Delete(ctx, h.client(ctx), itemID); err != nil {
		h.logger.Error("crud: delete failed", "noun", h.screen.Noun, "store_id", storeID, "id", itemID, "error", err)
		h.relay.Error(ctx, apiclient.Message(err, "Could not delete "+h.screen.Noun))
	} else {
		h.record(ctx, h.screen.Deleted, storeID, itemID)
		h.relay.Success(ctx, capitalize(h.screen.Noun)+" deleted")
	}
	http.Redirect(w, r, h.returnURL(storeID), http.StatusSeeOther)
}

func (h *Handler[T]) decode(w http.ResponseWriter, r *http.Request, storeID, itemID string) (T, bool) {
	item := h.screen.New()
	if err := web.DecodeForm(r, &item); err != nil {
		h.relay.Error(r.Context(), "The form could not be read")
		h.renderForm(w, r, http.StatusBadRequest, storeID, itemID, item)
		return item, false
	}
	if err := web.Validate(item); err != nil {
		h.relay.Error(r.Context(), err.Error())
		h.renderForm(w, r, http.StatusUnprocessableEntity, storeID, itemID, item)
		return item, false
	}
	return item, true
}

func (h *Handler[T]) record(ctx context.Context, action audit.Action, storeID, entityID string) {
	h.audit.Record(ctx, audit.Event{
		Action:   action,
		UserID:   session.FromContext(ctx).UserID(),
		StoreID:  storeID,
		EntityID: entityID,
	})
}

// failureStatus maps an upstream error to the status of the re-rendered form.
func failureStatus(err error) int {
	if apiclient.IsTransport(err) {
		return http.StatusBadGateway
	}
	return http.StatusUnprocessableEntity
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
