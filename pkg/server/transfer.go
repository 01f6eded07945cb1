package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tariffbuilder/tariffbuilder/pkg/common"
	"github.com/tariffbuilder/tariffbuilder/pkg/draft"
	"github.com/tariffbuilder/tariffbuilder/pkg/log"
	"github.com/tariffbuilder/tariffbuilder/pkg/types"
)

// maxImportBytes bounds an imported document. Real tariff documents
// are a few hundred KB at most.
const maxImportBytes = 4 << 20

// handleImport replaces the session's draft with the posted tariff
// document. Import is all-or-nothing: a document that fails to parse
// leaves the draft untouched.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		// since we failed to read, don't return JSON error
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	s.applyImport(w, r, data)
}

// handleImportURL fetches a tariff document from a URL and imports it.
func (s *Server) handleImportURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		writeJSONError(w, fmt.Sprintf("invalid import url: %q", req.URL), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	fetchReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		writeJSONError(w, fmt.Sprintf("invalid import url: %q", req.URL), http.StatusBadRequest)
		return
	}
	resp, err := common.HTTPClient(15 * time.Second).Do(fetchReq)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to fetch import url",
			slog.String("url", u.String()), slog.Any("error", err))
		writeJSONError(w, "failed to fetch tariff document", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Ctx(ctx).WarnContext(ctx, "import url returned non-200",
			slog.String("url", u.String()), slog.Int("status", resp.StatusCode))
		writeJSONError(w, fmt.Sprintf("tariff document fetch returned %d", resp.StatusCode), http.StatusBadGateway)
		return
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImportBytes))
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to read import url body",
			slog.String("url", u.String()), slog.Any("error", err))
		writeJSONError(w, "failed to fetch tariff document", http.StatusBadGateway)
		return
	}
	s.applyImport(w, r, data)
}

func (s *Server) applyImport(w http.ResponseWriter, r *http.Request, data []byte) {
	t, err := types.ParseDocument(data)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.getSession(r).WithDraft(func(d *draft.TariffDraft) {
		d.ApplyDocument(t)
	})
	s.writeDraft(w, r)
}

// handleExport assembles the current draft, including the live grid
// paint state, into a downloadable URDB-style document.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := s.getSession(r)

	var doc types.Document
	sess.WithDraft(func(d *draft.TariffDraft) {
		doc = types.Document{Items: []types.Tariff{d.BuildDocument(r.Context(), s.store, sess.ID)}}
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="usurdb.json"`)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		slog.Warn("failed to write export", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}
