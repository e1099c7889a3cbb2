package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/agroloop/agroloop/internal/app/advisory"
	"github.com/agroloop/agroloop/internal/domain"
)

// ─── Advisory API ───────────────────────────────────────────────────────────

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ImagePath) == "" {
		writeDomainError(w, domain.Invalid("imagePath", "is required"))
		return
	}
	writeJSON(w, http.StatusOK, s.app.Disease.Classify(r.Context(), req.ImagePath))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.app.Chat.Ask(r.Context(), req.Message)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"messages": s.app.Chat.History()})
}

func (s *Server) handleClearChat(w http.ResponseWriter, r *http.Request) {
	s.app.Chat.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// configView hides vendor keys; clients only learn whether one is set.
type configView struct {
	EnableRealTime bool `json:"enableRealTime"`
	UseFreeModels  bool `json:"useFreeModels"`
	PlantNetKeySet bool `json:"plantnetKeySet"`
	OpenAIKeySet   bool `json:"openaiKeySet"`
}

func viewOf(c domain.AIConfig) configView {
	return configView{
		EnableRealTime: c.EnableRealTime,
		UseFreeModels:  c.UseFreeModels,
		PlantNetKeySet: c.PlantNetAPIKey != "",
		OpenAIKeySet:   c.OpenAIAPIKey != "",
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(s.app.AIConfig.Get()))
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var p advisory.ConfigPatch
	if !decodeJSON(w, r, &p) {
		return
	}
	cfg, err := s.app.AIConfig.Update(p)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(cfg))
}

// handleCalls lists recent vendor outcomes, newest last.
// GET /api/advisor/calls?limit=20
func (s *Server) handleCalls(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"calls": s.app.Calls.Recent(limit)})
}
