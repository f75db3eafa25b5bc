package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vmihailenco/msgpack/v5"

	"voxel-royale/internal/game"
	"voxel-royale/internal/game/voxel"
)

var (
	errUnknownAction = errors.New("unknown action")
	errMatchOver     = errors.New("match is over")
	errQueueFull     = errors.New("action queue full")
	errBadWeapon     = errors.New("unknown weapon")
)

// inputRequest is the body of POST /api/input and the websocket "input" message
type inputRequest struct {
	Intents []string `json:"intents"`
	Yaw     float64  `json:"yaw"`
	Pitch   float64  `json:"pitch"`
}

// applyInput validates intent names and forwards them to the engine
func applyInput(engine EngineInterface, req inputRequest) error {
	in, unknown := game.ParseIntents(req.Intents)
	if len(unknown) > 0 {
		return errors.New("unknown intents: " + strings.Join(unknown, ", "))
	}
	engine.SetInput(in, req.Yaw, req.Pitch)
	return nil
}

// runAction executes one named control action. arg is only used by "weapon".
func runAction(engine EngineInterface, name, arg string) (map[string]interface{}, error) {
	switch name {
	case "fire", "destroy":
		act := game.ActionFire
		if name == "destroy" {
			act = game.ActionDestroy
		}
		if !engine.QueueAction(act) {
			if snap := engine.Snapshot(); snap != nil && snap.Over {
				return nil, errMatchOver
			}
			return nil, errQueueFull
		}
		return map[string]interface{}{"queued": name}, nil

	case "build":
		return map[string]interface{}{"buildMode": engine.ToggleBuild()}, nil

	case "cycle-block":
		return map[string]interface{}{"selectedBlock": engine.CycleBlock()}, nil

	case "invulnerable":
		return map[string]interface{}{"invulnerable": engine.ToggleInvulnerable()}, nil

	case "weapon":
		k, ok := game.ParseWeapon(arg)
		if !ok {
			return nil, errBadWeapon
		}
		engine.SelectWeapon(k)
		return map[string]interface{}{"weapon": k.String()}, nil

	case "restart":
		if err := engine.Restart(); err != nil {
			return nil, err
		}
		log.Println("🔄 Match restarted via API")
		return map[string]interface{}{"restarted": true}, nil
	}
	return nil, errUnknownAction
}

// statusFor maps action errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, errMatchOver), errors.Is(err, game.ErrMatchInProgress):
		return http.StatusConflict
	case errors.Is(err, errQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, errBadWeapon):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	if snap == nil {
		writeError(w, "No match running", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}

// handleGetWorld returns the voxel grid as msgpack: size, height, revision
// and the flat cell array indexed x + z*size + y*size*size.
func (h *routerHandlers) handleGetWorld(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	if snap == nil {
		writeError(w, "No match running", http.StatusServiceUnavailable)
		return
	}

	data, err := msgpack.Marshal(&snap.World)
	if err != nil {
		log.Printf("❌ World encode failed: %v", err)
		writeError(w, "Encode failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-msgpack")
	w.Header().Set("X-World-Revision", strconv.FormatUint(snap.World.Revision, 10))
	w.Write(data)
}

func (h *routerHandlers) handleGetMinimap(w http.ResponseWriter, r *http.Request) {
	size := 0
	if q := r.URL.Query().Get("size"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeError(w, "size must be a positive integer", http.StatusBadRequest)
			return
		}
		size = n
	}

	snap := h.engine.Snapshot()
	if snap == nil {
		writeError(w, "No match running", http.StatusServiceUnavailable)
		return
	}

	start := time.Now()
	var buf bytes.Buffer
	if err := h.renderer.EncodePNG(&buf, snap, size); err != nil {
		log.Printf("❌ Minimap render failed: %v", err)
		writeError(w, "Render failed", http.StatusInternalServerError)
		return
	}
	RecordMinimap(time.Since(start))

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"eventLog":   h.engine.GetEventLogStats(),
		"pickupGrid": h.engine.GetPickupGridStats(),
		"renderer":   h.renderer.GetStats(),
		"throttle":   h.throttle.GetStats(),
	}
	if snap := h.engine.Snapshot(); snap != nil {
		stats["matchId"] = snap.MatchID
		stats["tick"] = snap.TickNumber
		stats["sequence"] = snap.Sequence
		stats["wave"] = snap.Wave
		stats["score"] = snap.Score
		stats["playersAlive"] = snap.PlayersAlive
		stats["opponents"] = len(snap.Opponents)
		stats["particles"] = len(snap.Particles)
		stats["items"] = len(snap.Items)
		stats["worldRevision"] = snap.World.Revision
	}
	writeJSON(w, stats)
}

func (h *routerHandlers) handleGetWeapons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, game.AllWeapons())
}

// blockEntry is one row of GET /api/blocks
type blockEntry struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (h *routerHandlers) handleGetBlocks(w http.ResponseWriter, r *http.Request) {
	blocks := make([]blockEntry, 0, voxel.BlockCount)
	for id, info := range voxel.AllBlocks() {
		blocks = append(blocks, blockEntry{ID: int(id), Name: info.Name, Color: info.Color})
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].ID < blocks[j].ID })
	writeJSON(w, blocks)
}

func (h *routerHandlers) handleInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := applyInput(h.engine, req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleSelectWeapon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Weapon string `json:"weapon"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	h.respondAction(w, "weapon", req.Weapon)
}

func (h *routerHandlers) handleAction(w http.ResponseWriter, r *http.Request) {
	h.respondAction(w, chi.URLParam(r, "name"), "")
}

func (h *routerHandlers) respondAction(w http.ResponseWriter, name, arg string) {
	result, err := runAction(h.engine, name, arg)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	result["success"] = true
	writeJSON(w, result)
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
