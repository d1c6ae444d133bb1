package settings

import (
	"context"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/store-dashboard/internal/apiclient"
	"github.com/wolfman30/store-dashboard/internal/audit"
	"github.com/wolfman30/store-dashboard/internal/notify"
	"github.com/wolfman30/store-dashboard/internal/observability/metrics"
	"github.com/wolfman30/store-dashboard/internal/schedule"
	"github.com/wolfman30/store-dashboard/internal/session"
	"github.com/wolfman30/store-dashboard/internal/web"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

// Tab is one entry of the settings tab bar.
type Tab struct {
	Key   string
	Label string
}

var tabs = []Tab{
	{Key: TabTime, Label: TimeKind.Label},
	{Key: TabSlot, Label: SlotKind.Label},
	{Key: TabBooking, Label: BookingKind.Label},
}

// Page is the data for the settings template.
type Page struct {
	StoreID  string
	Tab      string
	Tabs     []Tab
	Action   string
	Degraded bool
	Time     *TimeView
	Slot     *SlotSettings
	Booking  *BookingSettings
}

// Handler serves /stores/{storeID}/setting?action=<tab>.
type Handler struct {
	api      *apiclient.Client
	renderer *web.Renderer
	relay    *notify.Relay
	metrics  *metrics.SettingsMetrics
	audit    *audit.Service
	logger   *logging.Logger
}

func NewHandler(api *apiclient.Client, renderer *web.Renderer, relay *notify.Relay, m *metrics.SettingsMetrics, auditor *audit.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{api: api, renderer: renderer, relay: relay, metrics: m, audit: auditor, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.show)
	r.Post("/", h.submit)
	return r
}

// tabFor falls back to the opening-hours tab for unknown actions.
func tabFor(action string) string {
	for _, t := range tabs {
		if t.Key == action {
			return t.Key
		}
	}
	return TabTime
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	sess := session.FromContext(r.Context())
	page := h.page(storeID, tabFor(r.URL.Query().Get("action")))

	switch page.Tab {
	case TabTime:
		ed, _ := editor(r.Context(), h, sess, TimeKind, storeID)
		page.Degraded = ed.Degraded()
		page.Time = newTimeView(ed.Value())
	case TabSlot:
		ed, _ := editor(r.Context(), h, sess, SlotKind, storeID)
		page.Degraded = ed.Degraded()
		v := ed.Value()
		page.Slot = &v
	case TabBooking:
		ed, _ := editor(r.Context(), h, sess, BookingKind, storeID)
		page.Degraded = ed.Degraded()
		v := ed.Value()
		page.Booking = &v
	}
	h.renderer.Render(w, r, http.StatusOK, "settings", "Store settings", page)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	switch tabFor(r.URL.Query().Get("action")) {
	case TabSlot:
		submitStruct(h, w, r, SlotKind, func(p *Page, v SlotSettings) { p.Slot = &v })
	case TabBooking:
		submitStruct(h, w, r, BookingKind, func(p *Page, v BookingSettings) { p.Booking = &v })
	default:
		h.submitTime(w, r)
	}
}

func (h *Handler) page(storeID, tab string) Page {
	return Page{
		StoreID: storeID,
		Tab:     tab,
		Tabs:    tabs,
		Action:  settingsURL(storeID, tab),
	}
}

func settingsURL(storeID, tab string) string {
	return "/stores/" + url.PathEscape(storeID) + "/setting?action=" + url.QueryEscape(tab)
}

// editor returns a Ready editor. Pending unsaved edits (a session draft) are
// resumed and reported with resumed=true; otherwise the value is fetched
// fresh. Fetched values are never stored as drafts: only edits create one,
// so reopening the screen without pending edits always fetches again.
func editor[T any](ctx context.Context, h *Handler, sess *session.Session, kind Kind[T], storeID string) (ed *Editor[T], resumed bool) {
	ed = NewEditor(kind, sess.Client(h.api), h.metrics, h.logger)
	var draft T
	ok, err := sess.LoadDraft(kind.DraftKey(storeID), &draft)
	if err != nil {
		h.logger.Warn("settings: discarding unreadable draft", "kind", kind.Name, "store_id", storeID, "error", err)
		sess.ClearDraft(kind.DraftKey(storeID))
	}
	if ok {
		ed.Resume(draft)
		return ed, true
	}
	if err := ed.Load(ctx, storeID); err != nil {
		h.relay.Warning(ctx, "Saved "+strings.ToLower(kind.Label)+" settings could not be loaded; showing defaults")
	}
	return ed, false
}

func (h *Handler) keepDraft(sess *session.Session, key string, v any) {
	if err := sess.SaveDraft(key, v); err != nil {
		h.logger.Error("settings: keep draft failed", "key", key, "error", err)
	}
}

func (h *Handler) submitTime(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := chi.URLParam(r, "storeID")
	sess := session.FromContext(ctx)
	key := TimeKind.DraftKey(storeID)

	if err := r.ParseForm(); err != nil {
		h.relay.Error(ctx, "The form could not be read")
		http.Redirect(w, r, settingsURL(storeID, TabTime), http.StatusSeeOther)
		return
	}
	op, err := parseTimeOp(r.PostForm.Get("op"))
	if err != nil {
		h.relay.Error(ctx, "Unknown action")
		http.Redirect(w, r, settingsURL(storeID, TabTime), http.StatusSeeOther)
		return
	}
	if op.kind == "reset" {
		sess.ClearDraft(key)
		http.Redirect(w, r, settingsURL(storeID, TabTime), http.StatusSeeOther)
		return
	}

	ed, resumed := editor(ctx, h, sess, TimeKind, storeID)
	var form timeForm
	if err := web.DecodeForm(r, &form); err != nil {
		h.logger.Warn("settings: decode time form failed", "store_id", storeID, "error", err)
		h.relay.Error(ctx, "The form could not be read")
		http.Redirect(w, r, settingsURL(storeID, TabTime), http.StatusSeeOther)
		return
	}
	before := ed.Value().Clone()
	var problems []string
	err = ed.Edit(func(ws *schedule.WeekSettings) {
		problems = form.apply(ws)
		switch op.kind {
		case "add":
			ws.AddRange(op.day)
		case "remove":
			ws.RemoveRange(op.day, op.index)
		}
	})
	if err != nil {
		h.logger.Error("settings: edit rejected", "store_id", storeID, "phase", ed.Phase().String(), "error", err)
		h.relay.Error(ctx, "The settings are busy, please try again")
		http.Redirect(w, r, settingsURL(storeID, TabTime), http.StatusSeeOther)
		return
	}
	for _, p := range problems {
		h.relay.Error(ctx, p)
	}

	if op.kind != "save" || len(problems) > 0 {
		if resumed || !reflect.DeepEqual(before, ed.Value()) {
			h.keepDraft(sess, key, ed.Value())
		}
		http.Redirect(w, r, settingsURL(storeID, TabTime), http.StatusSeeOther)
		return
	}

	page := h.page(storeID, TabTime)
	if !save(ctx, h, w, r, sess, ed, storeID) {
		page.Time = newTimeView(ed.Value())
		h.renderer.Render(w, r, failureStatus(ed.Err()), "settings", "Store settings", page)
	}
}

func submitStruct[T any](h *Handler, w http.ResponseWriter, r *http.Request, kind Kind[T], fill func(*Page, T)) {
	ctx := r.Context()
	storeID := chi.URLParam(r, "storeID")
	sess := session.FromContext(ctx)
	key := kind.DraftKey(storeID)

	if r.PostFormValue("op") == "reset" {
		sess.ClearDraft(key)
		http.Redirect(w, r, settingsURL(storeID, kind.Name), http.StatusSeeOther)
		return
	}

	page := h.page(storeID, kind.Name)
	var value T
	if err := web.DecodeForm(r, &value); err != nil {
		h.relay.Error(ctx, "The form could not be read")
		fill(&page, value)
		h.renderer.Render(w, r, http.StatusBadRequest, "settings", "Store settings", page)
		return
	}
	h.keepDraft(sess, key, value)
	if err := web.Validate(value); err != nil {
		h.relay.Error(ctx, err.Error())
		fill(&page, value)
		h.renderer.Render(w, r, http.StatusUnprocessableEntity, "settings", "Store settings", page)
		return
	}

	ed := NewEditor(kind, sess.Client(h.api), h.metrics, h.logger)
	ed.Resume(value)
	if !save(ctx, h, w, r, sess, ed, storeID) {
		fill(&page, ed.Value())
		h.renderer.Render(w, r, failureStatus(ed.Err()), "settings", "Store settings", page)
	}
}

// save persists the editor value. On success the draft is dropped and the
// operator is sent back to the store list; on failure the draft is kept
// exactly as submitted and false is returned so the caller re-renders.
func save[T any](ctx context.Context, h *Handler, w http.ResponseWriter, r *http.Request, sess *session.Session, ed *Editor[T], storeID string) bool {
	kind := ed.Kind()
	if err := ed.Save(ctx, storeID); err != nil {
		h.keepDraft(sess, kind.DraftKey(storeID), ed.Value())
		h.relay.Error(ctx, apiclient.Message(ed.Err(), "Could not save "+strings.ToLower(kind.Label)+" settings"))
		return false
	}
	sess.ClearDraft(kind.DraftKey(storeID))
	h.audit.Record(ctx, audit.Event{
		Action:  audit.ActionSettingsSaved,
		UserID:  sess.UserID(),
		StoreID: storeID,
		Details: audit.Details(map[string]string{"kind": kind.Name}),
	})
	h.relay.Success(ctx, kind.Label+" settings saved")
	http.Redirect(w, r, "/stores", http.StatusSeeOther)
	return true
}

func failureStatus(err error) int {
	if apiclient.IsTransport(err) {
		return http.StatusBadGateway
	}
	return http.StatusUnprocessableEntity
}
