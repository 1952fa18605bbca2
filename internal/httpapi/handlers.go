package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/hidden-role-client/internal/hub"
	"github.com/DoyleJ11/hidden-role-client/internal/i18n"
	"github.com/DoyleJ11/hidden-role-client/internal/lobby"
	"github.com/DoyleJ11/hidden-role-client/internal/session"
	"github.com/DoyleJ11/hidden-role-client/internal/ws"
	"github.com/DoyleJ11/hidden-role-client/pkg/types"
)

const maxBody = 1 << 16

type Options struct {
	Text *i18n.Localizer
	Log  *zap.Logger
	// Ready reports whether the store can be reached. Nil means always ready.
	Ready          func(ctx context.Context) error
	OriginPatterns []string
}

func (o *Options) defaults() {
	if o.Text == nil {
		o.Text = i18n.New("en")
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
}

type api struct {
	hub  *hub.Hub
	opts Options
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (a *api) readyz(w http.ResponseWriter, r *http.Request) {
	if a.opts.Ready == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.opts.Ready(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

// lobby resolves the {account} URL param to its lobby, writing a 404 if none.
func (a *api) lobby(w http.ResponseWriter, r *http.Request) (*lobby.Lobby, bool) {
	lb, ok := a.hub.Ensure(r.Context(), chi.URLParam(r, "account"))
	if !ok {
		writeError(w, http.StatusNotFound, "account not available")
		return nil, false
	}
	return lb, true
}

func (a *api) getView(w http.ResponseWriter, r *http.Request) {
	lb, ok := a.lobby(w, r)
	if !ok {
		return
	}
	a.respond(w, r, lb, http.StatusOK)
}

// action handles routes whose message needs no request body.
func (a *api) action(m lobby.Msg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, ok := a.lobby(w, r)
		if !ok {
			return
		}
		a.dispatch(w, r, lb, m)
	}
}

func (a *api) createSession(w http.ResponseWriter, r *http.Request) {
	var req types.SessionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	form := session.Form{DisplayName: req.DisplayName, Capacity: req.Capacity}
	if err := form.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	lb, ok := a.lobby(w, r)
	if !ok {
		return
	}
	a.dispatch(w, r, lb, lobby.Create{Form: form})
}

func (a *api) selectSession(w http.ResponseWriter, r *http.Request) {
	var req types.SelectRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lb, ok := a.lobby(w, r)
	if !ok {
		return
	}
	var m lobby.Msg = lobby.Select{ID: req.ID}
	if req.ID == "" {
		m = lobby.Deselect{}
	}
	a.dispatch(w, r, lb, m)
}

func (a *api) verify(w http.ResponseWriter, r *http.Request) {
	var req types.SelectRequest
	if err := decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lb, ok := a.lobby(w, r)
	if !ok {
		return
	}
	a.dispatch(w, r, lb, lobby.Verify{ID: req.ID})
}

// dispatch sends m and answers 202 with the view as it stands once m is applied.
func (a *api) dispatch(w http.ResponseWriter, r *http.Request, lb *lobby.Lobby, m lobby.Msg) {
	if !lb.Send(m) {
		writeError(w, http.StatusServiceUnavailable, "lobby closed")
		return
	}
	a.respond(w, r, lb, http.StatusAccepted)
}

func (a *api) respond(w http.ResponseWriter, r *http.Request, lb *lobby.Lobby, status int) {
	v, ok := lb.View(r.Context())
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "lobby closed")
		return
	}
	writeJSON(w, status, ws.Encode(v, a.opts.Text))
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}
