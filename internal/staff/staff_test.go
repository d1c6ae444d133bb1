package staff

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/store-dashboard/internal/apiclient/apitest"
	"github.com/wolfman30/store-dashboard/internal/notify"
	"github.com/wolfman30/store-dashboard/internal/session"
	"github.com/wolfman30/store-dashboard/internal/web"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

const collectionPath = "/stores/s1/staffs"

type harness struct {
	api    *apitest.Server
	sess   *session.Session
	router chi.Router
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := logging.Discard()
	h := &harness{api: apitest.New(t), sess: session.New()}
	h.sess.SignIn("tok-staff", &session.User{ID: "u1"})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(session.NewContext(req.Context(), h.sess)))
		})
	})
	r.Mount("/stores/{storeID}/staffs", NewHandler(h.api.Client(), web.MustRenderer(logger), notify.NewRelay(logger), nil, logger).Routes())
	h.router = r
	return h
}

func (h *harness) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func validForm() url.Values {
	return url.Values{
		"name":             {"Mia"},
		"email":            {"mia@example.com"},
		"cost":             {"25.5"},
		"max_booking_slot": {"2"},
		"active":           {"1"},
		"is_all_course":    {"0"},
		"position":         {"3"},
	}
}

func TestNewFormShowsDefaults(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/stores/s1/staffs/new", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `action="/stores/s1/staffs"`)
	assert.Contains(t, body, `name="max_booking_slot" value="1"`)
}

func TestCreateRedirectsToStaffTab(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/stores/s1/staffs", validForm())

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/stores/s1/management?action=staff", rec.Header().Get("Location"))

	reqs := h.api.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer tok-staff", reqs[0].Auth)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(reqs[0].Body, &sent))
	assert.Equal(t, "Mia", sent["name"])
	assert.EqualValues(t, 25.5, sent["cost"])
	assert.EqualValues(t, 0, sent["is_all_course"])
	assert.NotContains(t, sent, "id")

	flashes := h.sess.TakeFlashes()
	require.Len(t, flashes, 1)
	assert.Equal(t, "Staff created", flashes[0].Message)
}

func TestCreateValidationFailure(t *testing.T) {
	h := newHarness(t)
	form := validForm()
	form.Set("name", "")
	form.Set("active", "7")

	rec := h.do(http.MethodPost, "/stores/s1/staffs", form)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "name is required")
	assert.Contains(t, body, "active must be one of 0 1")
	assert.Empty(t, h.api.Requests())
}

func TestCreateAPIErrorRerendersForm(t *testing.T) {
	h := newHarness(t)
	h.api.Fail(http.MethodPost, collectionPath, 500, "email already used")

	rec := h.do(http.MethodPost, "/stores/s1/staffs", validForm())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "email already used")
	assert.Contains(t, body, `value="Mia"`)
}

func TestEditAndUpdate(t *testing.T) {
	h := newHarness(t)
	h.api.Seed(collectionPath, "7", Staff{Name: "Leo", MaxBookingSlot: 1, Active: 1})

	rec := h.do(http.MethodGet, "/stores/s1/staffs/7/edit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Leo"`)
	assert.Contains(t, rec.Body.String(), `action="/stores/s1/staffs/7"`)

	form := validForm()
	form.Set("name", "Leonard")
	rec = h.do(http.MethodPost, "/stores/s1/staffs/7", form)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	items, err := List(context.Background(), h.api.Client(), "s1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Leonard", items[0].Name)
	assert.Equal(t, "7", items[0].ID)
}

func TestEditMissingRedirectsWithError(t *testing.T) {
	h := newHarness(t)
	h.api.Seed(collectionPath, "7", Staff{Name: "Leo"})

	rec := h.do(http.MethodGet, "/stores/s1/staffs/99/edit", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	flashes := h.sess.TakeFlashes()
	require.Len(t, flashes, 1)
	assert.Equal(t, notify.LevelError, flashes[0].Level)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	h := newHarness(t)
	h.api.Seed(collectionPath, "7", Staff{Name: "Leo"})

	rec := h.do(http.MethodGet, "/stores/s1/staffs/7/delete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Leo")

	rec = h.do(http.MethodPost, "/stores/s1/staffs/7/delete", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, h.api.Has(collectionPath, "7"))

	rec = h.do(http.MethodPost, "/stores/s1/staffs/7/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.False(t, h.api.Has(collectionPath, "7"))
	assert.Equal(t, 1, h.api.Count(http.MethodDelete, collectionPath+"/7"))
}
