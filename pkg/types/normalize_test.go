package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	t.Run("canonical names, bare record", func(t *testing.T) {
		doc := `{
			"utility": "Test Electric",
			"name": "TOU-8",
			"sector": "Commercial",
			"eiaid": 12345,
			"energyratestructure": [[{"unit":"kWh","rate":0.08,"adj":0.01}]],
			"energytoulabels": ["Off-Peak"]
		}`
		tariff, err := ParseDocument([]byte(doc))
		require.NoError(t, err)
		assert.Equal(t, "Test Electric", tariff.Utility)
		assert.Equal(t, "TOU-8", tariff.Name)
		require.NotNil(t, tariff.EIAID)
		assert.Equal(t, 12345, *tariff.EIAID)
		require.Len(t, tariff.EnergyRateStructure, 1)
		assert.Equal(t, 0.08, tariff.EnergyRateStructure[0][0].Rate)
		assert.Equal(t, 0.01, tariff.EnergyRateStructure[0][0].Adj)
	})

	t.Run("local names are remapped", func(t *testing.T) {
		doc := `{
			"utilityName": "Local Power",
			"rateName": "Rate A",
			"eiaId": 42,
			"demandMin": 50,
			"energyTOULabels": ["Base"],
			"energyRateStrux": [[{"rate":0.1,"adj":0}]],
			"energyWeekdaySched": [[0,0,1]]
		}`
		tariff, err := ParseDocument([]byte(doc))
		require.NoError(t, err)
		assert.Equal(t, "Local Power", tariff.Utility)
		assert.Equal(t, "Rate A", tariff.Name)
		require.NotNil(t, tariff.EIAID)
		assert.Equal(t, 42, *tariff.EIAID)
		require.NotNil(t, tariff.PeakKWCapacityMin)
		assert.Equal(t, 50.0, *tariff.PeakKWCapacityMin)
		assert.Equal(t, []string{"Base"}, tariff.EnergyTOULabels)
		assert.Equal(t, 1, tariff.EnergyWeekdaySchedule[0][2])
	})

	t.Run("items wrapper uses first item", func(t *testing.T) {
		doc := `{"items": [{"utility": "First"}, {"utility": "Second"}]}`
		tariff, err := ParseDocument([]byte(doc))
		require.NoError(t, err)
		assert.Equal(t, "First", tariff.Utility)
	})

	t.Run("nested tier objects flatten", func(t *testing.T) {
		doc := `{
			"energyRateStrux": [
				{"energyRateTiers": [{"rate": 0.2, "adj": 0.0}, {"rate": 0.3, "adj": 0.0}]},
				{"rate": 0.4, "adj": 0.1}
			]
		}`
		tariff, err := ParseDocument([]byte(doc))
		require.NoError(t, err)
		require.Len(t, tariff.EnergyRateStructure, 2)
		// Extra tiers survive parsing even though only tier 0 is edited.
		require.Len(t, tariff.EnergyRateStructure[0], 2)
		assert.Equal(t, 0.2, tariff.EnergyRateStructure[0][0].Rate)
		// A bare tier object becomes a one-tier list.
		require.Len(t, tariff.EnergyRateStructure[1], 1)
		assert.Equal(t, 0.4, tariff.EnergyRateStructure[1][0].Rate)
	})

	t.Run("unparseable JSON errors", func(t *testing.T) {
		_, err := ParseDocument([]byte(`{"utility": `))
		assert.Error(t, err)
	})

	t.Run("wrong shape errors", func(t *testing.T) {
		_, err := ParseDocument([]byte(`{"energyratestructure": "not a list of lists"}`))
		assert.Error(t, err)
	})
}

func TestPeriodsFromStructure(t *testing.T) {
	structure := [][]RateTier{
		{{Rate: 0.08, Adj: 0.0}},
		{{Rate: 0.25, Adj: -0.01}, {Rate: 0.5}},
		{},
	}
	periods := PeriodsFromStructure(structure, []string{"Off-Peak"}, "Period")
	require.Len(t, periods, 3)
	assert.Equal(t, "Off-Peak", periods[0].Label)
	assert.Equal(t, "Period 1", periods[1].Label, "missing labels fall back to defaults")
	assert.Equal(t, 0.25, periods[1].Rate)
	assert.Equal(t, -0.01, periods[1].Adj, "only the first tier is consumed")
	assert.Zero(t, periods[2].Rate, "empty tier list yields zero rates")
	for _, p := range periods {
		assert.NotEmpty(t, p.Color, "colors are assigned on extraction")
	}

	assert.Nil(t, PeriodsFromStructure(nil, nil, "Period"))
}
