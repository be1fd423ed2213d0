package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmarroquin/clinicstock-backend/api/responses"
	"github.com/dmarroquin/clinicstock-backend/api/validators"
	"github.com/dmarroquin/clinicstock-backend/internal/realtime"
	pkgerrors "github.com/dmarroquin/clinicstock-backend/pkg/errors"
	"github.com/dmarroquin/clinicstock-backend/pkg/logger"
)

const heartbeatInterval = 30 * time.Second

// StreamEvents upgrades the request to a server-sent event stream. The
// connection auto-joins the caller's personal room; item rooms are joined
// through the rooms endpoints.
func StreamEvents(registry *realtime.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registry == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event registry unavailable"))
			return
		}

		userID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		conn := registry.Register(userID)
		defer registry.Unregister(conn.ID)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		fmt.Fprintf(w, "event: connected\ndata: {\"connection_id\":%q}\n\n", conn.ID)
		flusher.Flush()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		ctx := r.Context()
		if logg != nil {
			logg.Info(logg.WithField(ctx, "connection_id", conn.ID), "event stream opened")
		}

		for {
			select {
			case <-ctx.Done():
				return
			case frame, open := <-conn.Events():
				if !open {
					return
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", frame.Name, frame.Data)
				flusher.Flush()
			case <-heartbeat.C:
				fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			}
		}
	}
}

type joinRoomRequest struct {
	Room string `json:"room" validate:"required,max=64"`
}

// JoinRoom subscribes one of the caller's live connections to a room.
func JoinRoom(registry *realtime.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ownedConnection(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body joinRoomRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !realtime.ValidRoom(body.Room) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid room name"))
			return
		}

		if err := registry.Join(conn.ID, body.Room); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "connection no longer live"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "joined", "room": body.Room})
	}
}

// LeaveRoom unsubscribes the connection from a room. Leaving a room the
// connection never joined is a no-op.
func LeaveRoom(registry *realtime.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ownedConnection(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		room := r.URL.Query().Get("room")
		if !realtime.ValidRoom(room) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid room name"))
			return
		}

		registry.Leave(conn.ID, room)
		responses.WriteSuccess(w, map[string]string{"status": "left", "room": room})
	}
}

// ownedConnection resolves the path connection and enforces that it belongs
// to the authenticated user.
func ownedConnection(registry *realtime.Registry, r *http.Request) (*realtime.Connection, error) {
	if registry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event registry unavailable")
	}

	userID, err := actorFromContext(r)
	if err != nil {
		return nil, err
	}

	connID := chi.URLParam(r, "connID")
	conn, ok := registry.Get(connID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "connection not found")
	}
	if conn.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "connection belongs to another user")
	}
	return conn, nil
}
