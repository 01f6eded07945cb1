package draft

// Level classifies a validation issue. Only error-level issues block
// the "ready to export" status; none of them block the export action
// itself.
type Level string

const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
)

// Issue is one advisory validation finding.
type Issue struct {
	Level Level  `json:"level"`
	Msg   string `json:"msg"`
}

// Validate returns the advisory issues for the draft's current state.
func (d *TariffDraft) Validate() []Issue {
	var issues []Issue
	addError := func(msg string) { issues = append(issues, Issue{Level: LevelError, Msg: msg}) }
	addWarn := func(msg string) { issues = append(issues, Issue{Level: LevelWarn, Msg: msg}) }
	addInfo := func(msg string) { issues = append(issues, Issue{Level: LevelInfo, Msg: msg}) }

	if d.Utility == "" {
		addError("Utility name is required.")
	}
	if d.Name == "" {
		addError("Rate name is required.")
	}
	if len(d.EnergyPeriods) == 0 {
		addError("At least one energy rate period is required.")
	}
	if d.DemandEnabled && len(d.DemandPeriods) == 0 {
		addError("TOU Demand is enabled but has no periods defined.")
	}
	if d.FlatEnabled && len(d.FlatPeriods) == 0 {
		addError("Flat Demand is enabled but has no periods defined.")
	}

	if d.Description == "" {
		addWarn("No description provided (optional).")
	}
	if d.Source == "" {
		addWarn("No source URL provided (optional).")
	}
	if d.FixedCharge == nil {
		addWarn("No fixed monthly charge set (optional).")
	}
	if !d.DemandEnabled {
		addInfo("TOU Demand charges are not enabled.")
	}
	if !d.FlatEnabled {
		addInfo("Flat Demand charges are not enabled.")
	}

	return issues
}

// Ready reports whether the draft has no error-level issues.
func (d *TariffDraft) Ready() bool {
	for _, issue := range d.Validate() {
		if issue.Level == LevelError {
			return false
		}
	}
	return true
}
