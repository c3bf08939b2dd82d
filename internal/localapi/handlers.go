package localapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/dmitrymomot/tenderbell/pkg/logger"
	"github.com/dmitrymomot/tenderbell/pkg/notifications"
)

// maxBodySize caps request bodies; preference patches are tiny.
const maxBodySize = 64 << 10

type statusView struct {
	Connected bool              `json:"connected"`
	State     string            `json:"state"`
	Scope     string            `json:"scope"`
	Unread    int               `json:"unread"`
	Stale     bool              `json:"stale"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	store := h.session.Store()
	view := statusView{
		Connected: h.session.Connected(),
		State:     h.session.State(),
		Scope:     store.Scope().String(),
		Unread:    store.UnreadCount(),
		Stale:     store.Stale(),
	}
	status := http.StatusOK
	if len(h.checks) > 0 {
		view.Checks = make(map[string]string, len(h.checks))
		for _, c := range h.checks {
			if err := c.Probe(r.Context()); err != nil {
				h.log.LogAttrs(r.Context(), slog.LevelWarn, "status check failed",
					slog.String("check", c.Name), logger.Error(err))
				view.Checks[c.Name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			view.Checks[c.Name] = "ok"
		}
	}
	writeJSON(w, status, Response{Data: view})
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := notifications.Filter{
		ReadState: notifications.ParseReadState(q.Get("read")),
		Category:  q.Get("category"),
		Search:    q.Get("q"),
	}
	if t := q.Get("type"); t != "" {
		f.Type = notifications.ParseType(t)
	}

	store := h.session.Store()
	all := store.Notifications()
	ok(w, f.Apply(all), map[string]any{
		"unread":     store.UnreadCount(),
		"total":      len(all),
		"stale":      store.Stale(),
		"categories": notifications.Categories(all),
	})
}

func (h *handlers) pending(w http.ResponseWriter, _ *http.Request) {
	list := h.session.Store().Pending()
	ok(w, list, map[string]any{"total": len(list)})
}

func (h *handlers) markRead(w http.ResponseWriter, r *http.Request) {
	h.mark(w, r, true)
}

func (h *handlers) markUnread(w http.ResponseWriter, r *http.Request) {
	h.mark(w, r, false)
}

func (h *handlers) mark(w http.ResponseWriter, r *http.Request, read bool) {
	id, found := h.lookup(w, r)
	if !found {
		return
	}
	store := h.session.Store()
	if read {
		store.MarkAsRead(id)
	} else {
		store.MarkAsUnread(id)
	}
	n, _ := store.Get(id)
	ok(w, n, map[string]any{"unread": store.UnreadCount()})
}

func (h *handlers) markAll(w http.ResponseWriter, _ *http.Request) {
	store := h.session.Store()
	if err := store.MarkAllAsRead(); err != nil {
		failErr(w, err)
		return
	}
	ok(w, nil, map[string]any{"unread": store.UnreadCount()})
}

func (h *handlers) remove(w http.ResponseWriter, r *http.Request) {
	id, found := h.lookup(w, r)
	if !found {
		return
	}
	h.session.Store().DeleteNotification(id)
	w.WriteHeader(http.StatusNoContent)
}

// lookup parses {id} and writes 400 or 404 when it does not name an entry.
func (h *handlers) lookup(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		fail(w, http.StatusBadRequest, "bad_request", "invalid notification id")
		return 0, false
	}
	if _, found := h.session.Store().Get(id); !found {
		fail(w, http.StatusNotFound, "not_found", "notification not found")
		return 0, false
	}
	return id, true
}

func (h *handlers) getPreferences(w http.ResponseWriter, _ *http.Request) {
	ok(w, h.session.Preferences().Current(), nil)
}

func (h *handlers) patchPreferences(w http.ResponseWriter, r *http.Request) {
	var patch notifications.PreferencesPatch
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		fail(w, http.StatusBadRequest, "bad_request", "invalid preferences patch: "+err.Error())
		return
	}
	if patch.IsEmpty() {
		ok(w, h.session.Preferences().Current(), nil)
		return
	}
	p, err := h.session.Preferences().Update(patch)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, p, nil)
}

func (h *handlers) tender(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		fail(w, http.StatusBadRequest, "bad_request", "invalid tender id")
		return
	}
	t, err := h.session.Tender(r.Context(), id)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, t, nil)
}

// events streams "toast", "change" and "preferences" events until the client
// goes away. Slow readers lose events rather than stall the session.
func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, flushes := w.(http.Flusher); !flushes {
		fail(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}
	sse := datastar.NewSSE(w, r)

	toasts := h.session.ToastBus().Subscribe(ctx)
	defer toasts.Close()
	changes := h.session.Store().Changes(ctx)
	defer changes.Close()
	prefs := h.session.Preferences().Changes(ctx)
	defer prefs.Close()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	toastCh, changeCh, prefCh := toasts.Receive(ctx), changes.Receive(ctx), prefs.Receive(ctx)
	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case msg, open := <-toastCh:
			if !open {
				return
			}
			err = sendJSON(sse, eventToast, msg.Data)
		case msg, open := <-changeCh:
			if !open {
				return
			}
			err = sendJSON(sse, eventChange, msg.Data)
		case msg, open := <-prefCh:
			if !open {
				return
			}
			err = sendJSON(sse, eventPreferences, msg.Data)
		case <-ticker.C:
			err = sendJSON(sse, eventPing, time.Now().UTC())
		}
		if err != nil {
			if !errors.Is(err, ctx.Err()) {
				h.log.LogAttrs(ctx, slog.LevelDebug, "event stream closed", logger.Error(err))
			}
			return
		}
	}
}
