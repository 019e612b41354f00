package model

// WorkUnit is one (table, window, target, exogenous feature) computation.
// The table is shared read-only between all units of a batch.
type WorkUnit struct {
	Table         *TimeTable `json:"-"`
	Window        int        `json:"window"`
	TargetName    string     `json:"target_name"`
	ExogenousName string     `json:"exogenous_name"`
}

// IsTarget returns true if the unit points the target at itself
func (u WorkUnit) IsTarget() bool {
	return u.ExogenousName == u.TargetName
}

// SaliencyResult holds the shaped series produced for one exogenous feature.
// Shaped is nil only for the target feature itself, which is never shaped.
// InvertedShaped is nil when the metric opts out of the inverted variant.
type SaliencyResult struct {
	ExogenousName  string    `json:"exogenous_name"`
	Shaped         []float64 `json:"shaped"`
	InvertedShaped []float64 `json:"inverted_shaped,omitempty"`
}

// HasInverted returns true if an inverted-shaped series is present
func (r SaliencyResult) HasInverted() bool {
	return r.InvertedShaped != nil
}
