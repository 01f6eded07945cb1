package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tariffbuilder/tariffbuilder/pkg/draft"
	"github.com/tariffbuilder/tariffbuilder/pkg/types"
)

// draftResponse is the editable form state returned after every form
// mutation so the client can re-render without a second round trip.
type draftResponse struct {
	Utility           string   `json:"utility"`
	Name              string   `json:"name"`
	Sector            string   `json:"sector"`
	ServiceType       string   `json:"serviceType"`
	Description       string   `json:"description"`
	Source            string   `json:"source"`
	SourceParent      string   `json:"sourceParent"`
	StartDate         string   `json:"startDate"`
	EIAID             *int     `json:"eiaid,omitempty"`
	VoltageCategory   string   `json:"voltageCategory"`
	PhaseWiring       string   `json:"phaseWiring"`
	PeakKWCapacityMin *float64 `json:"peakKWCapacityMin,omitempty"`
	PeakKWCapacityMax *float64 `json:"peakKWCapacityMax,omitempty"`

	EnergyPeriods  []types.RatePeriod `json:"energyPeriods"`
	EnergyComments string             `json:"energyComments"`

	DemandEnabled  bool               `json:"demandEnabled"`
	DemandPeriods  []types.RatePeriod `json:"demandPeriods"`
	DemandRateUnit string             `json:"demandRateUnit"`
	DemandWindow   *float64           `json:"demandWindow,omitempty"`
	DemandReactive *float64           `json:"demandReactive,omitempty"`
	DemandComments string             `json:"demandComments"`

	FlatEnabled bool               `json:"flatEnabled"`
	FlatPeriods []types.RatePeriod `json:"flatPeriods"`
	FlatMonths  []int              `json:"flatMonths"`
	FlatUnit    string             `json:"flatUnit"`

	FixedCharge      *float64 `json:"fixedCharge,omitempty"`
	FixedChargeUnits string   `json:"fixedChargeUnits"`
	MinMonthlyCharge *float64 `json:"minMonthlyCharge,omitempty"`
	AnnualMinCharge  *float64 `json:"annualMinCharge,omitempty"`

	SchedVersion int  `json:"schedVersion"`
	Ready        bool `json:"ready"`
}

func draftToResponse(d *draft.TariffDraft) draftResponse {
	resp := draftResponse{
		Utility:           d.Utility,
		Name:              d.Name,
		Sector:            d.Sector,
		ServiceType:       d.ServiceType,
		Description:       d.Description,
		Source:            d.Source,
		SourceParent:      d.SourceParent,
		EIAID:             d.EIAID,
		VoltageCategory:   d.VoltageCategory,
		PhaseWiring:       d.PhaseWiring,
		PeakKWCapacityMin: d.PeakKWCapacityMin,
		PeakKWCapacityMax: d.PeakKWCapacityMax,
		EnergyPeriods:     d.EnergyPeriods,
		EnergyComments:    d.EnergyComments,
		DemandEnabled:     d.DemandEnabled,
		DemandPeriods:     d.DemandPeriods,
		DemandRateUnit:    d.DemandRateUnit,
		DemandWindow:      d.DemandWindow,
		DemandReactive:    d.DemandReactive,
		DemandComments:    d.DemandComments,
		FlatEnabled:       d.FlatEnabled,
		FlatPeriods:       d.FlatPeriods,
		FlatMonths:        d.FlatMonths,
		FlatUnit:          d.FlatUnit,
		FixedCharge:       d.FixedCharge,
		FixedChargeUnits:  d.FixedChargeUnits,
		MinMonthlyCharge:  d.MinMonthlyCharge,
		AnnualMinCharge:   d.AnnualMinCharge,
		SchedVersion:      d.SchedVersion,
		Ready:             d.Ready(),
	}
	if !d.StartDate.IsZero() {
		resp.StartDate = d.StartDate.Format("2006-01-02")
	}
	return resp
}

func (s *Server) writeDraft(w http.ResponseWriter, r *http.Request) {
	var resp draftResponse
	s.getSession(r).WithDraft(func(d *draft.TariffDraft) {
		resp = draftToResponse(d)
	})
	writeJSON(w, resp)
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	s.writeDraft(w, r)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.getSession(r).WithDraft(func(d *draft.TariffDraft) {
		d.Reset()
	})
	s.writeDraft(w, r)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var resp struct {
		Ready  bool          `json:"ready"`
		Issues []draft.Issue `json:"issues"`
	}
	s.getSession(r).WithDraft(func(d *draft.TariffDraft) {
		resp.Ready = d.Ready()
		resp.Issues = d.Validate()
	})
	writeJSON(w, resp)
}

// basicInfoRequest uses pointer fields so a request only updates the
// fields it carries. Numeric fields arrive as text so a malformed entry
// can be rejected without touching the stored value.
type basicInfoRequest struct {
	Utility           *string `json:"utility"`
	Name              *string `json:"name"`
	Sector            *string `json:"sector"`
	ServiceType       *string `json:"serviceType"`
	Description       *string `json:"description"`
	Source            *string `json:"source"`
	SourceParent      *string `json:"sourceParent"`
	StartDate         *string `json:"startDate"`
	EIAID             *string `json:"eiaid"`
	VoltageCategory   *string `json:"voltageCategory"`
	PhaseWiring       *string `json:"phaseWiring"`
	PeakKWCapacityMin *string `json:"peakKWCapacityMin"`
	PeakKWCapacityMax *string `json:"peakKWCapacityMax"`
}

func (s *Server) handleBasicInfo(w http.ResponseWriter, r *http.Request) {
	var req basicInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// since we failed to read, don't return JSON error
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	var fieldErr error
	s.getSession(r).WithDraft(func(d *draft.TariffDraft) {
		if req.Utility != nil {
			d.Utility = *req.Utility
		}
		if req.Name != nil {
			d.Name = *req.Name
		}
		if req.Sector != nil {
			if !oneOf(*req.Sector, types.SectorOptions) {
				fieldErr = fmt.Errorf("unknown sector: %q", *req.Sector)
				return
			}
			d.Sector = *req.Sector
		}
		if req.ServiceType != nil {
			if !oneOf(*req.ServiceType, types.ServiceTypeOptions) {
				fieldErr = fmt.Errorf("unknown service type: %q", *req.ServiceType)
				return
			}
			d.ServiceType = *req.ServiceType
		}
		if req.Description != nil {
			d.Description = *req.Description
		}
		if req.Source != nil {
			d.Source = *req.Source
		}
		if req.SourceParent != nil {
			d.SourceParent = *req.SourceParent
		}
		if req.StartDate != nil {
			day, err := time.Parse("2006-01-02", *req.StartDate)
			if err != nil {
				fieldErr = fmt.Errorf("invalid start date: %q", *req.StartDate)
				return
			}
			d.StartDate = day
		}
		if req.EIAID != nil {
			v, err := draft.ParseOptionalNumber(*req.EIAID)
			if err != nil {
				fieldErr = err
				return
			}
			if v == nil {
				d.EIAID = nil
			} else {
				id := int(*v)
				d.EIAID = &id
			}
		}
		if req.VoltageCategory != nil {
			if !oneOf(*req.VoltageCategory, types.VoltageCategories) {
				fieldErr = fmt.Errorf("unknown voltage category: %q", *req.VoltageCategory)
				return
			}
			d.VoltageCategory = *req.VoltageCategory
		}
		if req.PhaseWiring != nil {
			if !oneOf(*req.PhaseWiring, types.PhaseOptions) {
				fieldErr = fmt.Errorf("unknown phase wiring: %q", *req.PhaseWiring)
				return
			}
			d.PhaseWiring = *req.PhaseWiring
		}
		if req.PeakKWCapacityMin != nil {
			v, err := draft.ParseOptionalNumber(*req.PeakKWCapacityMin)
			if err != nil {
				fieldErr = err
				return
			}
			d.PeakKWCapacityMin = v
		}
		if req.PeakKWCapacityMax != nil {
			v, err := draft.ParseOptionalNumber(*req.PeakKWCapacityMax)
			if err != nil {
				fieldErr = err
				return
			}
			d.PeakKWCapacityMax = v
		}
	})
	if fieldErr != nil {
		writeJSONError(w, fieldErr.Error(), http.StatusBadRequest)
		return
	}
	s.writeDraft(w, r)
}

// handlePeriods applies one period-list edit for a category: either a
// count change or a single field edit. Field errors come back as 400
// with the inline message; the stored value keeps its last valid state.
func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	cat, err := draft.ParseCategory(r.PathValue("category"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req struct {
		Count *int    `json:"count"`
		Index *int    `json:"index"`
		Field *string `json:"field"`
		Value *string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	var editErr error
	s.getSession(r).WithDraft(func(d *draft.TariffDraft) {
		switch {
		case req.Count != nil:
			editErr = d.SetPeriodCount(cat, *req.Count)
		case req.Index != nil && req.Field != nil && req.Value != nil:
			editErr = d.SetPeriodField(cat, *req.Index, *req.Field, *req.Value)
		default:
			editErr = fmt.Errorf("either count or index/field/value is required")
		}
	})
	if editErr != nil {
		writeJSONError(w, editErr.Error(), http.StatusBadRequest)
		return
	}
	s.writeDraft(w, r)
}

func (s *Server) handleDemand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled  *bool   `json:"enabled"`
		RateUnit *string `json:"rateUnit"`
		Window   *string `json:"window"`
		Reactive *string `json:"reactive"`
		Comments *string `json:"comments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	var fieldErr error
	s.getSession(r).WithDraft(func(d *draft.TariffDraft) {
		if req.Enabled != nil {
			d.SetDemandEnabled(*req.Enabled)
		}
		if req.RateUnit != nil {
			if !oneOf(*req.RateUnit, types.DemandUnitOptions) {
				fieldErr = fmt.Errorf("unknown demand unit: %q", *req.RateUnit)
				return
			}
			d.DemandRateUnit = *req.RateUnit
		}
		if req.Window != nil {
			v, err := draft.ParseOptionalNumber(*req.Window)
			if err != nil {
				fieldErr = err
				return
			}
			d.DemandWindow = v
		}
		if req.Reactive != nil {
			v, err := draft.ParseOptionalNumber(*req.Reactive)
			if err != nil {
				fieldErr = err
				return
			}
			d.DemandReactive = v
		}
		if req.Comments != nil {
			d.DemandComments = *req.Comments
		}
	})
	if fieldErr != nil {
		writeJSONError(w, fieldErr.Error(), http.StatusBadRequest)
		return
	}
	s.writeDraft(w, r)
}

func (s *Server) handleFlat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool   `json:"enabled"`
		Unit    *string `json:"unit"`
		Month   *int    `json:"month"`
		Period  *int    `json:"period"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	var fieldErr error
	s.getSession(r).WithDraft(func(d *draft.TariffDraft) {
		if req.Enabled != nil {
			d.SetFlatEnabled(*req.Enabled)
		}
		if req.Unit != nil {
			if !oneOf(*req.Unit, types.DemandUnitOptions) {
				fieldErr = fmt.Errorf("unknown demand unit: %q", *req.Unit)
				return
			}
			d.FlatUnit = *req.Unit
		}
		if req.Month != nil && req.Period != nil {
			fieldErr = d.SetFlatMonth(*req.Month, *req.Period)
		}
	})
	if fieldErr != nil {
		writeJSONError(w, fieldErr.Error(), http.StatusBadRequest)
		return
	}
	s.writeDraft(w, r)
}

func (s *Server) handleFixed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FixedCharge *string `json:"fixedCharge"`
		Units       *string `json:"units"`
		MinMonthly  *string `json:"minMonthly"`
		AnnualMin   *string `json:"annualMin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	var fieldErr error
	s.getSession(r).WithDraft(func(d *draft.TariffDraft) {
		if req.FixedCharge != nil {
			v, err := draft.ParseOptionalNumber(*req.FixedCharge)
			if err != nil {
				fieldErr = err
				return
			}
			d.FixedCharge = v
		}
		if req.Units != nil {
			d.FixedChargeUnits = *req.Units
		}
		if req.MinMonthly != nil {
			v, err := draft.ParseOptionalNumber(*req.MinMonthly)
			if err != nil {
				fieldErr = err
				return
			}
			d.MinMonthlyCharge = v
		}
		if req.AnnualMin != nil {
			v, err := draft.ParseOptionalNumber(*req.AnnualMin)
			if err != nil {
				fieldErr = err
				return
			}
			d.AnnualMinCharge = v
		}
	})
	if fieldErr != nil {
		writeJSONError(w, fieldErr.Error(), http.StatusBadRequest)
		return
	}
	s.writeDraft(w, r)
}

func oneOf(v string, options []string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
