package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agroloop/agroloop/internal/app/farm"
	"github.com/agroloop/agroloop/internal/domain"
)

// ─── Verification Codes ─────────────────────────────────────────────────────
//
// Issuing is the officer path: a signed-in user may issue for any farmer id,
// and farmerId defaults to the signed-in user when omitted. Listing, stats
// and redemption only ever act on the signed-in user's own codes.

func (s *Server) handleIssueCode(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.currentUID(w)
	if !ok {
		return
	}
	var req domain.VerificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.FarmerID) == "" {
		req.FarmerID = uid
	}
	code, err := s.app.Codes.Issue(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, code)
}

func (s *Server) handleListCodes(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.currentUID(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"codes": s.app.Codes.List(uid),
	})
}

// handleRedeemCode redeems for the signed-in farmer. A farmerId in the body
// is ignored.
func (s *Server) handleRedeemCode(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.currentUID(w)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	code, err := s.app.Codes.Redeem(strings.TrimSpace(req.Code), uid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, code)
}

func (s *Server) handleCodeStats(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.currentUID(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.app.Codes.Stats(uid))
}

func (s *Server) handleCleanupCodes(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUID(w); !ok {
		return
	}
	n, err := s.app.Codes.CleanupExpired()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.currentUID(w)
	if !ok {
		return
	}
	list := s.app.Ledger.Activities(uid)
	if t := r.URL.Query().Get("type"); t != "" {
		at := domain.ActivityType(t)
		if !at.Valid() {
			writeError(w, http.StatusBadRequest, "unknown activity type: "+t)
			return
		}
		list = s.app.Ledger.ByType(uid, at)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"activities": list,
		"totals":     s.app.Ledger.Totals(uid),
	})
}

func (s *Server) handleClearActivities(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.currentUID(w)
	if !ok {
		return
	}
	if err := s.app.Ledger.Clear(uid); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleLedgerSummary(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.currentUID(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.app.Ledger.Summarize(uid))
}

// ─── Farm Flows ─────────────────────────────────────────────────────────────

func (s *Server) handleWasteTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"wasteTypes": farm.WasteTypes()})
}

func (s *Server) handleLogWaste(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.currentUID(w)
	if !ok {
		return
	}
	var req farm.WasteLog
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := s.app.Farm.LogWaste(uid, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"activity": a,
		"totals":   s.app.Ledger.Totals(uid),
	})
}

func (s *Server) handleRewards(w http.ResponseWriter, r *http.Request) {
	cat := domain.RewardCategory(r.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, map[string]any{"rewards": farm.Rewards(cat)})
}

func (s *Server) handleRedeemReward(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.currentUID(w)
	if !ok {
		return
	}
	a, err := s.app.Farm.RedeemReward(uid, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"activity": a,
		"totals":   s.app.Ledger.Totals(uid),
	})
}

type imageRequest struct {
	ImagePath string `json:"imagePath"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.currentUID(w)
	if !ok {
		return
	}
	var req imageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	scan, err := s.app.Farm.ScanCrop(r.Context(), uid, req.ImagePath)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scan)
}
