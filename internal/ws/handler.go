package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/hidden-role-client/internal/hub"
	"github.com/DoyleJ11/hidden-role-client/internal/i18n"
	"github.com/DoyleJ11/hidden-role-client/internal/lobby"
	"github.com/DoyleJ11/hidden-role-client/pkg/types"
)

const writeTimeout = 3 * time.Second

type Options struct {
	Text *i18n.Localizer
	Log  *zap.Logger
	// OriginPatterns loosens the same-origin check, e.g. "localhost:*" in dev.
	OriginPatterns []string
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	if opts.Text == nil {
		opts.Text = i18n.New("en")
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		account := r.URL.Query().Get("account")
		if account == "" {
			http.Error(w, "missing account", http.StatusBadRequest)
			return
		}

		lb, ok := h.Ensure(r.Context(), account)
		if !ok {
			http.Error(w, "account not available", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := opts.Log.Named("ws").With(zap.String("account", account), zap.String("client", clientID))

		out := make(chan lobby.View, 8)
		if !lb.Send(lobby.Join{ClientID: clientID, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "lobby closed")
			return
		}
		defer lb.Send(lobby.Leave{ClientID: clientID})
		log.Debug("client joined")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case v, ok := <-out:
					if !ok {
						// Dropped as too slow, or the lobby shut down.
						conn.Close(websocket.StatusGoingAway, "lobby closed")
						return
					}
					state := Encode(v, opts.Text)
					msg := types.ServerMessage{Type: types.MsgSnapshot, Version: v.Version, State: &state}
					if err := write(writeCtx, conn, msg); err != nil {
						log.Debug("write failed", zap.Error(err))
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Debug("client left")
				default:
					log.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Error: "bad json"})
				continue
			}

			m, ok := ToLobbyMsg(cm)
			if !ok {
				_ = write(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Error: "unknown type"})
				continue
			}
			if !lb.Send(m) {
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
