package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tariffbuilder/tariffbuilder/pkg/draft"
	"github.com/tariffbuilder/tariffbuilder/pkg/grid"
	"github.com/tariffbuilder/tariffbuilder/pkg/session"
	"github.com/tariffbuilder/tariffbuilder/pkg/types"
)

var errMissingCell = errors.New("either month/hour or cells is required")

func gridTitle(gridID types.GridID) string {
	switch gridID {
	case types.GridEnergyWeekday:
		return "Energy Weekday Schedule"
	case types.GridEnergyWeekend:
		return "Energy Weekend Schedule"
	case types.GridDemandWeekday:
		return "Demand Weekday Schedule"
	case types.GridDemandWeekend:
		return "Demand Weekend Schedule"
	}
	return string(gridID)
}

// renderGrid rebuilds the HTML fragment for a grid from the session's
// current engine and draft state. Every grid operation responds with
// this fragment so the client swaps it in wholesale.
func (s *Server) renderGrid(r *http.Request, sess *session.Session, gridID types.GridID) string {
	var fragment string
	sess.WithEngine(r.Context(), gridID, func(e *grid.Engine, d *draft.TariffDraft) {
		rateUnit := "$/kWh"
		if gridID.IsDemand() {
			rateUnit = "$/" + d.DemandRateUnit
		}
		fragment = grid.RenderGrid(grid.RenderOptions{
			GridID:       gridID,
			Matrix:       e.Matrix(),
			Periods:      d.GridPeriods(gridID),
			Title:        gridTitle(gridID),
			RateUnit:     rateUnit,
			ShowRates:    s.showRates,
			ActivePeriod: e.ActivePeriod(),
			CopyFrom:     gridID.Sibling(),
		})
	})
	return fragment
}

// gridOp parses the grid ID, runs op under the session lock, and
// responds with the re-rendered fragment. An op error becomes a 400.
func (s *Server) gridOp(w http.ResponseWriter, r *http.Request, op func(e *grid.Engine) error) {
	gridID, err := types.ParseGridID(r.PathValue("gridID"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess := s.getSession(r)

	var opErr error
	sess.WithEngine(r.Context(), gridID, func(e *grid.Engine, d *draft.TariffDraft) {
		opErr = op(e)
	})
	if opErr != nil {
		writeJSONError(w, opErr.Error(), http.StatusBadRequest)
		return
	}
	writeHTML(w, s.renderGrid(r, sess, gridID))
}

func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	gridID, err := types.ParseGridID(r.PathValue("gridID"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeHTML(w, s.renderGrid(r, s.getSession(r), gridID))
}

func (s *Server) handleGridSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Period int `json:"period"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	s.gridOp(w, r, func(e *grid.Engine) error {
		return e.SelectPeriod(req.Period)
	})
}

// handleGridPaint handles both a single click and a drag gesture. A
// drag sends the cells in traversal order so the last one becomes the
// fill anchor.
func (s *Server) handleGridPaint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Month *int        `json:"month"`
		Hour  *int        `json:"hour"`
		Cells []grid.Cell `json:"cells"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	s.gridOp(w, r, func(e *grid.Engine) error {
		if len(req.Cells) > 0 {
			return e.PaintDrag(r.Context(), req.Cells)
		}
		if req.Month == nil || req.Hour == nil {
			return errMissingCell
		}
		return e.PaintCell(r.Context(), *req.Month, *req.Hour)
	})
}

func (s *Server) handleGridFillAll(w http.ResponseWriter, r *http.Request) {
	s.gridOp(w, r, func(e *grid.Engine) error {
		e.FillAll(r.Context())
		return nil
	})
}

func (s *Server) handleGridFillRow(w http.ResponseWriter, r *http.Request) {
	s.gridOp(w, r, func(e *grid.Engine) error {
		e.FillMonthRow(r.Context())
		return nil
	})
}

func (s *Server) handleGridFillColumn(w http.ResponseWriter, r *http.Request) {
	s.gridOp(w, r, func(e *grid.Engine) error {
		e.FillHourColumn(r.Context())
		return nil
	})
}

func (s *Server) handleGridClear(w http.ResponseWriter, r *http.Request) {
	s.gridOp(w, r, func(e *grid.Engine) error {
		e.ClearAll(r.Context())
		return nil
	})
}

// handleGridCopy clones the sibling grid's stored matrix into this one
// (weekday pattern into weekend or vice versa).
func (s *Server) handleGridCopy(w http.ResponseWriter, r *http.Request) {
	gridID, err := types.ParseGridID(r.PathValue("gridID"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.gridOp(w, r, func(e *grid.Engine) error {
		e.CopyFromSibling(r.Context(), gridID.Sibling())
		return nil
	})
}
