package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tariffbuilder/tariffbuilder/pkg/gridstore"
	"github.com/tariffbuilder/tariffbuilder/pkg/preset"
	"github.com/tariffbuilder/tariffbuilder/pkg/session"
	"github.com/tariffbuilder/tariffbuilder/pkg/types"
)

func newTestServer(t *testing.T, store gridstore.Store) *Server {
	t.Helper()
	p, err := preset.Parse([]byte(`
energy:
  - label: Off-Peak
    rate: 0.08
  - label: On-Peak
    rate: 0.25
demand:
  - label: Base
    rate: 10.0
flat:
  - label: All Months
    rate: 0.0
`))
	require.NoError(t, err)
	if store == nil {
		ms := gridstore.NewMemoryStore()
		t.Cleanup(func() { ms.Close() })
		store = ms
	}
	return &Server{
		sessions:   session.NewManager(p, store),
		store:      store,
		serverName: "tariffbuilder-test",
	}
}

// client wraps httptest with a cookie jar so the session cookie carries
// between requests.
type client struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func newClient(t *testing.T, s *Server) *client {
	return &client{t: t, handler: s.setupHandler()}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			buf, err := json.Marshal(body)
			require.NoError(c.t, err)
			reader = bytes.NewReader(buf)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		c.cookies = append(c.cookies, ck)
	}
	return w
}

func (c *client) doJSON(method, path string, body any, out any) *httptest.ResponseRecorder {
	c.t.Helper()
	w := c.do(method, path, body)
	if out != nil && w.Code == http.StatusOK {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w
}

func TestHealthz(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	w := c.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, "tariffbuilder-test", w.Result().Header.Get("Server"))
}

func TestSessionCookie(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	w := c.do(http.MethodGet, "/api/draft", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var sessionID string
	for _, ck := range w.Result().Cookies() {
		if ck.Name == sessionCookie {
			sessionID = ck.Value
			assert.True(t, ck.HttpOnly)
		}
	}
	require.NotEmpty(t, sessionID)

	// Subsequent requests with the cookie stay in the same session.
	var resp draftResponse
	c.doJSON(http.MethodPost, "/api/basic", map[string]string{"utility": "Test Co"}, &resp)
	assert.Equal(t, "Test Co", resp.Utility)
	c.doJSON(http.MethodGet, "/api/draft", nil, &resp)
	assert.Equal(t, "Test Co", resp.Utility)
}

func TestEditorPage(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	w := c.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Tariff Builder")
	assert.Contains(t, w.Result().Header.Get("Content-Type"), "text/html")
}

func TestBasicInfo(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))

	t.Run("valid fields apply", func(t *testing.T) {
		var resp draftResponse
		w := c.doJSON(http.MethodPost, "/api/basic", map[string]string{
			"utility":   "Pacific Power",
			"name":      "Schedule 48",
			"sector":    "Industrial",
			"startDate": "2026-01-01",
			"eiaid":     "14354",
		}, &resp)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Pacific Power", resp.Utility)
		assert.Equal(t, "Industrial", resp.Sector)
		assert.Equal(t, "2026-01-01", resp.StartDate)
		require.NotNil(t, resp.EIAID)
		assert.Equal(t, 14354, *resp.EIAID)
	})

	t.Run("unknown sector rejected, draft untouched", func(t *testing.T) {
		w := c.do(http.MethodPost, "/api/basic", map[string]string{"sector": "Agricultural"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp draftResponse
		c.doJSON(http.MethodGet, "/api/draft", nil, &resp)
		assert.Equal(t, "Industrial", resp.Sector)
	})

	t.Run("malformed number keeps last value", func(t *testing.T) {
		w := c.do(http.MethodPost, "/api/basic", map[string]string{"eiaid": "not-a-number"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp draftResponse
		c.doJSON(http.MethodGet, "/api/draft", nil, &resp)
		require.NotNil(t, resp.EIAID)
		assert.Equal(t, 14354, *resp.EIAID)
	})
}

func TestPeriodEdits(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))

	var resp draftResponse
	w := c.doJSON(http.MethodPost, "/api/periods/energy", map[string]int{"count": 3}, &resp)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.EnergyPeriods, 3)
	assert.Equal(t, "Period 2", resp.EnergyPeriods[2].Label)

	w = c.doJSON(http.MethodPost, "/api/periods/energy", map[string]any{
		"index": 2, "field": "rate", "value": "0.31",
	}, &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.31, resp.EnergyPeriods[2].Rate)
	// highest rate renders red
	assert.Equal(t, "#ff0000", resp.EnergyPeriods[2].Color)

	t.Run("bad value is field-local", func(t *testing.T) {
		w := c.do(http.MethodPost, "/api/periods/energy", map[string]any{
			"index": 2, "field": "rate", "value": "oops",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		c.doJSON(http.MethodGet, "/api/draft", nil, &resp)
		assert.Equal(t, 0.31, resp.EnergyPeriods[2].Rate)
	})

	t.Run("unknown category is 400", func(t *testing.T) {
		w := c.do(http.MethodPost, "/api/periods/wind", map[string]int{"count": 2})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDemandAndFlat(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))

	var resp draftResponse
	c.doJSON(http.MethodGet, "/api/draft", nil, &resp)
	startVersion := resp.SchedVersion

	w := c.doJSON(http.MethodPost, "/api/demand", map[string]any{"enabled": true, "rateUnit": "kVA"}, &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.DemandEnabled)
	assert.Equal(t, "kVA", resp.DemandRateUnit)
	assert.Equal(t, startVersion+1, resp.SchedVersion)

	w = c.doJSON(http.MethodPost, "/api/flat", map[string]any{"enabled": true}, &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.FlatEnabled)
	assert.Equal(t, startVersion+1, resp.SchedVersion)

	c.doJSON(http.MethodPost, "/api/periods/flat", map[string]int{"count": 2}, &resp)
	w = c.doJSON(http.MethodPost, "/api/flat", map[string]any{"month": 6, "period": 1}, &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, resp.FlatMonths[6])

	t.Run("unknown unit rejected", func(t *testing.T) {
		w := c.do(http.MethodPost, "/api/demand", map[string]any{"rateUnit": "MW"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFixedCharges(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	var resp draftResponse
	w := c.doJSON(http.MethodPost, "/api/fixed", map[string]string{
		"fixedCharge": "19.95",
		"minMonthly":  "",
	}, &resp)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.FixedCharge)
	assert.Equal(t, 19.95, *resp.FixedCharge)
	assert.Nil(t, resp.MinMonthlyCharge)
}

func TestValidateEndpoint(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	var v struct {
		Ready  bool `json:"ready"`
		Issues []struct {
			Level string `json:"level"`
			Msg   string `json:"msg"`
		} `json:"issues"`
	}
	c.doJSON(http.MethodGet, "/api/validate", nil, &v)
	assert.False(t, v.Ready)

	var msgs []string
	for _, i := range v.Issues {
		if i.Level == "error" {
			msgs = append(msgs, i.Msg)
		}
	}
	assert.Contains(t, msgs, "Utility name is required.")

	c.do(http.MethodPost, "/api/basic", map[string]string{"utility": "U", "name": "R"})
	c.doJSON(http.MethodGet, "/api/validate", nil, &v)
	assert.True(t, v.Ready)
}

func TestGridOperations(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	c.do(http.MethodPost, "/api/periods/energy", map[string]int{"count": 3})

	t.Run("get renders the fragment", func(t *testing.T) {
		w := c.do(http.MethodGet, "/api/grid/energy_weekday", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `data-grid="energy_weekday"`)
		assert.Equal(t, 288, strings.Count(body, `class="cell"`))
	})

	t.Run("select then paint", func(t *testing.T) {
		w := c.do(http.MethodPost, "/api/grid/energy_weekday/select", map[string]int{"period": 2})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `class="pbtn sel" data-p="2"`)

		w = c.do(http.MethodPost, "/api/grid/energy_weekday/paint", map[string]int{"month": 3, "hour": 7})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `data-m="3" data-h="7" data-p="2"`)
	})

	t.Run("drag paints every cell", func(t *testing.T) {
		cells := []map[string]int{
			{"month": 0, "hour": 0}, {"month": 0, "hour": 1}, {"month": 0, "hour": 2},
		}
		w := c.do(http.MethodPost, "/api/grid/energy_weekday/paint", map[string]any{"cells": cells})
		require.Equal(t, http.StatusOK, w.Code)
		for _, cell := range cells {
			assert.Contains(t, w.Body.String(), fmt.Sprintf(`data-m="%d" data-h="%d" data-p="2"`, cell["month"], cell["hour"]))
		}
	})

	t.Run("fill row targets the last painted month", func(t *testing.T) {
		w := c.do(http.MethodPost, "/api/grid/energy_weekday/fill/row", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 24, strings.Count(w.Body.String(), `data-m="0" data-h`)) // sanity: row exists
		for hour := 0; hour < 24; hour++ {
			assert.Contains(t, w.Body.String(), fmt.Sprintf(`data-m="0" data-h="%d" data-p="2"`, hour))
		}
	})

	t.Run("out of range paint is 400", func(t *testing.T) {
		w := c.do(http.MethodPost, "/api/grid/energy_weekday/paint", map[string]int{"month": 12, "hour": 0})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown grid is 400", func(t *testing.T) {
		w := c.do(http.MethodGet, "/api/grid/energy_holiday", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("copy clones the sibling", func(t *testing.T) {
		w := c.do(http.MethodPost, "/api/grid/energy_weekend/copy", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `data-grid="energy_weekend"`)
		assert.Contains(t, w.Body.String(), `data-m="3" data-h="7" data-p="2"`)
	})

	t.Run("clear resets to period 0", func(t *testing.T) {
		w := c.do(http.MethodPost, "/api/grid/energy_weekday/clear", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `data-m="3" data-h="7" data-p="0"`)
		assert.Contains(t, w.Body.String(), `data-m="0" data-h="1" data-p="0"`)
	})
}

func TestImportExport(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))

	doc := map[string]any{
		"items": []any{map[string]any{
			"utilityName": "Georgia Power Co",
			"rateName":    "TOU-GSD-7",
			"energyRateStrux": []any{
				map[string]any{"energyRateTiers": []any{map[string]any{"rate": 0.05}}},
				map[string]any{"energyRateTiers": []any{map[string]any{"rate": 0.11}}},
			},
			"energyTOULabels":    []any{"Off-Peak", "On-Peak"},
			"energyWeekdaySched": [][]int{{1, 1, 0}},
		}},
	}

	var resp draftResponse
	w := c.doJSON(http.MethodPost, "/api/import", doc, &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Georgia Power Co", resp.Utility)
	require.Len(t, resp.EnergyPeriods, 2)
	assert.Equal(t, "On-Peak", resp.EnergyPeriods[1].Label)
	assert.Equal(t, 0.11, resp.EnergyPeriods[1].Rate)
	importVersion := resp.SchedVersion

	// Paint one cell after the import, then export: the document must
	// carry both the imported schedule and the fresh paint.
	w = c.do(http.MethodPost, "/api/grid/energy_weekday/select", map[string]int{"period": 1})
	require.Equal(t, http.StatusOK, w.Code)
	w = c.do(http.MethodPost, "/api/grid/energy_weekday/paint", map[string]int{"month": 11, "hour": 23})
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Result().Header.Get("Content-Disposition"), "attachment")

	var exported types.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exported))
	require.Len(t, exported.Items, 1)
	out := exported.Items[0]
	assert.Equal(t, "Georgia Power Co", out.Utility)
	assert.Equal(t, "USA", out.Country)
	require.Len(t, out.EnergyRateStructure, 2)
	assert.Equal(t, "kWh", out.EnergyRateStructure[0][0].Unit)
	// imported cells
	assert.Equal(t, 1, out.EnergyWeekdaySchedule[0][0])
	assert.Equal(t, 0, out.EnergyWeekdaySchedule[0][2])
	// freshly painted cell
	assert.Equal(t, 1, out.EnergyWeekdaySchedule[11][23])

	t.Run("import garbage is 400 and leaves the draft", func(t *testing.T) {
		w := c.do(http.MethodPost, "/api/import", `{"energyRateStrux": "nope"`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		c.doJSON(http.MethodGet, "/api/draft", nil, &resp)
		assert.Equal(t, "Georgia Power Co", resp.Utility)
		assert.Equal(t, importVersion, resp.SchedVersion)
	})
}

func TestImportFromURL(t *testing.T) {
	doc := `{"utility": "Remote Electric", "name": "R-1", "energyratestructure": [[{"rate": 0.2}]]}`
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, doc)
	}))
	defer upstream.Close()

	c := newClient(t, newTestServer(t, nil))
	var resp draftResponse
	w := c.doJSON(http.MethodPost, "/api/import/url", map[string]string{"url": upstream.URL}, &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Remote Electric", resp.Utility)
	require.Len(t, resp.EnergyPeriods, 1)
	assert.Equal(t, 0.2, resp.EnergyPeriods[0].Rate)

	t.Run("bad scheme rejected", func(t *testing.T) {
		w := c.do(http.MethodPost, "/api/import/url", map[string]string{"url": "ftp://example.com/doc.json"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("upstream failure is 502", func(t *testing.T) {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer failing.Close()
		w := c.do(http.MethodPost, "/api/import/url", map[string]string{"url": failing.URL})
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestReset(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))

	var resp draftResponse
	c.doJSON(http.MethodPost, "/api/basic", map[string]string{"utility": "Gone Soon"}, &resp)
	before := resp.SchedVersion
	c.do(http.MethodPost, "/api/grid/energy_weekday/select", map[string]int{"period": 1})
	c.do(http.MethodPost, "/api/grid/energy_weekday/fill/all", nil)

	w := c.doJSON(http.MethodPost, "/api/reset", nil, &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, resp.Utility)
	assert.Equal(t, before+1, resp.SchedVersion)

	// The version bump discards the old paint.
	w = c.do(http.MethodGet, "/api/grid/energy_weekday", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `data-p="1"`)
}

func TestPaintSurvivesStoreFailure(t *testing.T) {
	store := &mockStore{}
	store.On("Load", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("store down"))
	store.On("Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("store down"))

	c := newClient(t, newTestServer(t, store))
	c.do(http.MethodPost, "/api/periods/energy", map[string]int{"count": 2})
	c.do(http.MethodPost, "/api/grid/energy_weekday/select", map[string]int{"period": 1})
	w := c.do(http.MethodPost, "/api/grid/energy_weekday/paint", map[string]int{"month": 0, "hour": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-m="0" data-h="0" data-p="1"`)
}
