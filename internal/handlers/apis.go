package handlers

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/p0isonxs/synqType/internal/constants"
	"github.com/p0isonxs/synqType/internal/db"
	"github.com/p0isonxs/synqType/internal/models"
	"github.com/p0isonxs/synqType/internal/sim"
	"github.com/p0isonxs/synqType/internal/words"
)

// HandleCreateRoom builds the creator-side configuration, word sequence
// included, and spins up the room. Guests converge to this exact sequence
// through the settings broadcast.
func HandleCreateRoom(w http.ResponseWriter, r *http.Request) {

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var reqBody models.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cfg := sim.Settings{
		Theme:           reqBody.Theme,
		SentenceLength:  reqBody.SentenceLength,
		TimeLimit:       reqBody.TimeLimit,
		MaxPlayers:      reqBody.MaxPlayers,
		EnableBetting:   reqBody.EnableBetting,
		BetAmount:       reqBody.BetAmount,
		ContractAddress: reqBody.ContractAddress,
	}
	if cfg.Theme == "" {
		cfg.Theme = constants.DefaultTheme
	}
	if cfg.SentenceLength == 0 {
		cfg.SentenceLength = constants.DefaultSentenceLength
	}
	if cfg.TimeLimit == 0 {
		cfg.TimeLimit = constants.DefaultTimeLimit
	}
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = constants.DefaultMaxPlayers
	}
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if cfg.EnableBetting {
		amount, err := strconv.ParseFloat(cfg.BetAmount, 64)
		if err != nil || amount < constants.MinBetAmount || amount > constants.MaxBetAmount {
			http.Error(w, "bet amount out of range", http.StatusBadRequest)
			return
		}
	}

	cfg.Words = buildWordSequence(r.Context(), cfg.SentenceLength, cfg.Theme)

	handle, err := RoomManager.CreateRoom(&cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	log.Printf("Room %s created, theme=%s len=%d limit=%ds betting=%v",
		handle.ID, cfg.Theme, cfg.SentenceLength, cfg.TimeLimit, cfg.EnableBetting)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"room_id": handle.ID,
		"status":  "created",
	})
}

// buildWordSequence prefers a stored word pool when Mongo is connected and
// falls back to the built-in library.
func buildWordSequence(ctx context.Context, length int, theme string) []string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	if db.Connected() {
		ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		var (
			list *db.WordList
			err  error
		)
		if theme == "random" {
			list, err = db.GetRandomWordList(ctx)
		} else {
			list, err = db.GetWordList(ctx, theme)
		}
		if err != nil {
			log.Printf("word list lookup failed for theme %q, using library: %v", theme, err)
		} else if len(list.Words) > 0 {
			seq := make([]string, 0, length)
			for i := 0; i < length; i++ {
				seq = append(seq, list.Words[i%len(list.Words)])
			}
			words.Shuffle(seq, rng)
			return seq
		}
	}
	return words.GenerateShuffled(length, theme, rng)
}

// HandleRoomInfo reports whether a room exists and, when it does, its
// current view snapshot.
func HandleRoomInfo(w http.ResponseWriter, r *http.Request) {

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	roomID := r.URL.Query().Get("room_id")
	if roomID == "" {
		http.Error(w, "Missing room_id", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	handle, err := RoomManager.GetRoom(roomID)
	if err != nil {
		json.NewEncoder(w).Encode(map[string]any{"exists": false})
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"exists": true,
		"state":  handle.Snapshot(),
	})
}
