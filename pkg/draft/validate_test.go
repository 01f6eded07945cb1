package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messages(issues []Issue, level Level) []string {
	var msgs []string
	for _, issue := range issues {
		if issue.Level == level {
			msgs = append(msgs, issue.Msg)
		}
	}
	return msgs
}

func TestValidate(t *testing.T) {
	d := New(testPresets(t))

	t.Run("blank form has required-field errors", func(t *testing.T) {
		errs := messages(d.Validate(), LevelError)
		assert.Contains(t, errs, "Utility name is required.")
		assert.Contains(t, errs, "Rate name is required.")
		assert.False(t, d.Ready())
	})

	t.Run("errors clear once required fields are set", func(t *testing.T) {
		d.Utility = "Test Utility"
		d.Name = "Test Rate"
		require.Empty(t, messages(d.Validate(), LevelError))
		assert.True(t, d.Ready())
	})

	t.Run("warnings and infos never block readiness", func(t *testing.T) {
		issues := d.Validate()
		assert.Contains(t, messages(issues, LevelWarn), "No description provided (optional).")
		assert.Contains(t, messages(issues, LevelInfo), "TOU Demand charges are not enabled.")
		assert.True(t, d.Ready())
	})
}
