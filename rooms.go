// Census room API
//
// Each room is a four-phase party game: players gather in a lobby,
// anonymously submit questions about the group, then vote on who fits
// each one best. Ballots stay sealed until everyone has finished.
// Mutating handlers follow one shape: decode, lock the room code,
// load, apply the engine operation, save, broadcast.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/census/game"
)

type App struct {
	engine *game.Engine
	store  RoomStore
	locks  *roomLocks
	hub    *Hub
}

func newApp(cfg *Config, store RoomStore) *App {
	codes := game.NewCodeAllocator(cfg.codeLength, func(code string) (bool, error) {
		return store.Exists(context.Background(), code)
	})

	return &App{
		engine: game.NewEngine(codes),
		store:  store,
		locks:  newRoomLocks(),
		hub:    newHub(),
	}
}

// mutateRoom runs op against the stored room under that code's lock,
// persists the result, and broadcasts the new state to subscribers.
func (app *App) mutateRoom(ctx context.Context, code string, op func(*game.Room) error) (*game.Room, error) {
	code = normalizeCode(code)

	defer app.locks.lock(code).Unlock()

	room, err := app.store.Load(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := op(room); err != nil {
		return nil, err
	}

	if err := app.store.Save(ctx, room); err != nil {
		return nil, err
	}

	app.hub.Publish(room.Code, room)

	return room, nil
}

type CreateRoomRequest struct {
	HostName                string   `json:"hostName"`
	QuestionDurationSeconds *float64 `json:"questionDurationSeconds"`
}

type JoinRoomRequest struct {
	Name string `json:"name"`
}

type ActorRequest struct {
	PlayerID string `json:"playerId"`
}

type SubmitQuestionRequest struct {
	PlayerID string `json:"playerId"`
	Text     string `json:"text"`
}

type SubmitVoteRequest struct {
	PlayerID       string `json:"playerId"`
	TargetPlayerID string `json:"targetPlayerId"`
	QuestionIndex  int    `json:"questionIndex"`
}

type RoomResponse struct {
	Room       *game.Room `json:"room"`
	PlayerID   string     `json:"playerId,omitempty"`
	QuestionID string     `json:"questionId,omitempty"`
}

type ResultsResponse struct {
	Results []game.QuestionResult `json:"results"`
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", game.ErrInvalidInput)
	}

	return nil
}

func createRoom(cfg *Config, app *App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		var req CreateRoomRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)

			return
		}

		// Absent duration means "use the default"; the engine tells
		// the two apart by being handed a NaN.
		duration := math.NaN()
		if req.QuestionDurationSeconds != nil {
			duration = *req.QuestionDurationSeconds
		}

		room, err := app.engine.CreateRoom(req.HostName, duration)
		if err != nil {
			writeError(w, err)

			return
		}

		if err := app.store.Save(r.Context(), room); err != nil {
			writeError(w, err)

			return
		}

		logf(cfg, "ROOMS: Created room %s for %q", room.Code, room.Member(room.HostID).Name)

		writeJSON(w, http.StatusCreated, RoomResponse{
			Room:     game.Redact(room),
			PlayerID: room.HostID,
		})
	}
}

func getRoom(cfg *Config, app *App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		securityHeaders(cfg, w)

		room, err := app.store.Load(r.Context(), ps.ByName("code"))
		if err != nil {
			writeError(w, err)

			return
		}

		writeJSON(w, http.StatusOK, RoomResponse{Room: game.Redact(room)})
	}
}

func deleteRoom(cfg *Config, app *App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		securityHeaders(cfg, w)

		var req ActorRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)

			return
		}

		code := normalizeCode(ps.ByName("code"))

		defer app.locks.lock(code).Unlock()

		room, err := app.store.Load(r.Context(), code)
		if err != nil {
			writeError(w, err)

			return
		}

		if room.HostID != req.PlayerID {
			writeError(w, fmt.Errorf("%w: only the host may close the room", game.ErrForbidden))

			return
		}

		if err := app.store.Delete(r.Context(), code); err != nil {
			writeError(w, err)

			return
		}

		app.hub.CloseRoom(code)

		logf(cfg, "ROOMS: Deleted room %s", code)

		w.WriteHeader(http.StatusNoContent)
	}
}

func joinRoom(cfg *Config, app *App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		securityHeaders(cfg, w)

		var req JoinRoomRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)

			return
		}

		var player *game.Player
		room, err := app.mutateRoom(r.Context(), ps.ByName("code"), func(room *game.Room) error {
			var err error
			player, err = app.engine.Join(room, req.Name)

			return err
		})
		if err != nil {
			writeError(w, err)

			return
		}

		logf(cfg, "ROOMS: Player %q joined room %s", player.Name, room.Code)

		writeJSON(w, http.StatusOK, RoomResponse{
			Room:     game.Redact(room),
			PlayerID: player.ID,
		})
	}
}

func startQuestionPhase(cfg *Config, app *App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		securityHeaders(cfg, w)

		var req ActorRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)

			return
		}

		room, err := app.mutateRoom(r.Context(), ps.ByName("code"), func(room *game.Room) error {
			return app.engine.StartQuestions(room, req.PlayerID)
		})
		if err != nil {
			writeError(w, err)

			return
		}

		logf(cfg, "ROOMS: Room %s entered the question phase", room.Code)

		writeJSON(w, http.StatusOK, RoomResponse{Room: game.Redact(room)})
	}
}

func submitQuestion(cfg *Config, app *App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		securityHeaders(cfg, w)

		var req SubmitQuestionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)

			return
		}

		var question *game.Question
		room, err := app.mutateRoom(r.Context(), ps.ByName("code"), func(room *game.Room) error {
			var err error
			question, err = app.engine.SubmitQuestion(room, req.PlayerID, req.Text)

			return err
		})
		if err != nil {
			writeError(w, err)

			return
		}

		// Question texts are anonymous; log only the count.
		logf(cfg, "ROOMS: Room %s holds %d questions", room.Code, len(room.Questions))

		writeJSON(w, http.StatusOK, RoomResponse{
			Room:       game.Redact(room),
			QuestionID: question.ID,
		})
	}
}

func startReviewPhase(cfg *Config, app *App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		securityHeaders(cfg, w)

		var req ActorRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)

			return
		}

		room, err := app.mutateRoom(r.Context(), ps.ByName("code"), func(room *game.Room) error {
			return app.engine.StartReview(room, req.PlayerID)
		})
		if err != nil {
			writeError(w, err)

			return
		}

		logf(cfg, "ROOMS: Room %s entered review with %d questions", room.Code, len(room.Questions))

		writeJSON(w, http.StatusOK, RoomResponse{Room: game.Redact(room)})
	}
}

func submitVote(cfg *Config, app *App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		securityHeaders(cfg, w)

		var req SubmitVoteRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)

			return
		}

		room, err := app.mutateRoom(r.Context(), ps.ByName("code"), func(room *game.Room) error {
			return app.engine.SubmitVote(room, req.PlayerID, req.TargetPlayerID, req.QuestionIndex)
		})
		if err != nil {
			writeError(w, err)

			return
		}

		if room.Phase == game.PhaseComplete {
			logf(cfg, "ROOMS: Room %s completed, every player finished voting", room.Code)
		}

		writeJSON(w, http.StatusOK, RoomResponse{Room: game.Redact(room)})
	}
}

func completeRoom(cfg *Config, app *App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		securityHeaders(cfg, w)

		var req ActorRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)

			return
		}

		room, err := app.mutateRoom(r.Context(), ps.ByName("code"), func(room *game.Room) error {
			return app.engine.Complete(room, req.PlayerID)
		})
		if err != nil {
			writeError(w, err)

			return
		}

		logf(cfg, "ROOMS: Room %s completed by the host", room.Code)

		writeJSON(w, http.StatusOK, RoomResponse{Room: game.Redact(room)})
	}
}

func getResults(cfg *Config, app *App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		securityHeaders(cfg, w)

		room, err := app.store.Load(r.Context(), ps.ByName("code"))
		if err != nil {
			writeError(w, err)

			return
		}

		if room.Phase != game.PhaseComplete {
			writeError(w, fmt.Errorf("%w: results are available once the room is complete", game.ErrWrongPhase))

			return
		}

		writeJSON(w, http.StatusOK, ResultsResponse{Results: game.Results(room)})
	}
}

func serveRoomSocket(cfg *Config, app *App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := normalizeCode(ps.ByName("code"))

		room, err := app.store.Load(r.Context(), code)
		if err != nil {
			writeError(w, err)

			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "WS: Upgrade failed for %s: %v", realIP(r), err)

			return
		}

		client := &wsClient{
			conn: conn,
			send: make(chan any, 8),
		}

		app.hub.Register(code, client)

		// Fresh subscribers get a snapshot before any deltas.
		client.send <- roomMessage(room)

		logf(cfg, "WS: Subscriber joined room %s from %s", code, realIP(r))

		go client.writePump()
		client.readPump(app.hub, code)
	}
}

func roomPage(cfg *Config, room *game.Room) string {
	public := game.Redact(room)

	var sb strings.Builder

	sb.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	sb.WriteString(getFavicon())
	sb.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	sb.WriteString(`<meta http-equiv="refresh" content="5">`)
	sb.WriteString(pageStyle())
	sb.WriteString(fmt.Sprintf("<title>census room %s</title></head><body>", public.Code))
	sb.WriteString(fmt.Sprintf("<h1>Room %s</h1>", public.Code))
	sb.WriteString(fmt.Sprintf("<p>Phase: %s</p>", public.Phase))

	sb.WriteString("<ul>")
	for _, p := range public.PlayersInJoinOrder() {
		name := html.EscapeString(p.Name)
		if p.IsHost {
			name += " (host)"
		}
		sb.WriteString("<li>" + name + "</li>")
	}
	sb.WriteString("</ul>")

	if public.Phase == game.PhaseComplete {
		sb.WriteString("<h2>Results</h2><ol>")
		for i, res := range game.Results(public) {
			winner := "no votes"
			if w := public.Member(res.WinnerID); w != nil {
				winner = html.EscapeString(w.Name)
			}
			sb.WriteString("<li>" + html.EscapeString(public.Questions[i].Text) + ": " + winner + "</li>")
		}
		sb.WriteString("</ol>")
	}

	sb.WriteString(fmt.Sprintf(`<p><img src="%s/rooms/%s/qr" alt="Share this room" width="160" height="160"></p>`,
		cfg.prefix, public.Code))
	sb.WriteString("</body></html>")

	return sb.String()
}

func serveRoomPage(cfg *Config, app *App, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		room, err := app.store.Load(r.Context(), ps.ByName("code"))
		if err != nil {
			w.WriteHeader(errorStatus(err))

			_, werr := io.WriteString(w, newPage("Not Found", "That room does not exist or has already ended."))
			if werr != nil {
				errs <- werr
			}

			return
		}

		_, err = io.WriteString(w, roomPage(cfg, room))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRoomQR(cfg *Config, app *App, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := normalizeCode(ps.ByName("code"))

		ok, err := app.store.Exists(r.Context(), code)
		if err != nil {
			writeError(w, err)

			return
		}
		if !ok {
			writeError(w, fmt.Errorf("%w: room %q", game.ErrNotFound, code))

			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)

		_, err = w.Write(png)
		if err != nil {
			errs <- err

			return
		}
	}
}

// registerRoomRoutes sets up the JSON API under $prefix/api, plus the
// human-facing room page, QR code, and websocket endpoints.
func registerRoomRoutes(cfg *Config, app *App, mux *httprouter.Router, errs chan<- error) {
	mux.POST(cfg.prefix+"/api/rooms", createRoom(cfg, app))
	mux.GET(cfg.prefix+"/api/rooms/:code", getRoom(cfg, app))
	mux.DELETE(cfg.prefix+"/api/rooms/:code", deleteRoom(cfg, app))
	mux.POST(cfg.prefix+"/api/rooms/:code/players", joinRoom(cfg, app))
	mux.POST(cfg.prefix+"/api/rooms/:code/question-phase", startQuestionPhase(cfg, app))
	mux.POST(cfg.prefix+"/api/rooms/:code/questions", submitQuestion(cfg, app))
	mux.POST(cfg.prefix+"/api/rooms/:code/review-phase", startReviewPhase(cfg, app))
	mux.POST(cfg.prefix+"/api/rooms/:code/votes", submitVote(cfg, app))
	mux.POST(cfg.prefix+"/api/rooms/:code/complete", completeRoom(cfg, app))
	mux.GET(cfg.prefix+"/api/rooms/:code/results", getResults(cfg, app))
	mux.GET(cfg.prefix+"/api/rooms/:code/ws", serveRoomSocket(cfg, app))

	mux.GET(cfg.prefix+"/rooms/:code", serveRoomPage(cfg, app, errs))
	mux.GET(cfg.prefix+"/rooms/:code/qr", serveRoomQR(cfg, app, errs))
}
