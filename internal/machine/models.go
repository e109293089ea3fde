package machine

// Axis is one driven part of the separator with its actual and target
// speed variables.
type Axis struct {
	Name   string
	Key    string // JSON key of GET responses
	Actual string
	Target string
}

// Axes lists the machine's axes in route order.
var Axes = []Axis{
	{Name: "belt", Key: "speedOfBelt", Actual: "belt.actual", Target: "belt.target"},
	{Name: "drum", Key: "speedOfDrum", Actual: "drum.actual", Target: "drum.target"},
	{Name: "feeder", Key: "speedOfFeeder", Actual: "feeder.actual", Target: "feeder.target"},
}

// legacyPaths maps PATCH /speed operation paths to axes.
var legacyPaths = map[string]string{
	"/SpeedOfBelt":      "belt",
	"/SpeedOfDrum":      "drum",
	"/SpeedOfFeeder":    "feeder",
	"/SpeedOfVibration": "feeder",
}

// Belt returns the conveyor belt axis, the one the legacy /speed routes read.
func Belt() Axis {
	a, _ := axisByName("belt")
	return a
}

func axisByName(name string) (Axis, bool) {
	for _, a := range Axes {
		if a.Name == name {
			return a, true
		}
	}
	return Axis{}, false
}

// SpeedRequest is the body of a speed PATCH
type SpeedRequest struct {
	Speed *float64 `json:"speed" binding:"required"`
}

// Operation is one entry of a legacy PATCH /speed request
type Operation struct {
	Path  string   `json:"path" binding:"required"`
	Value *float64 `json:"value" binding:"required"`
}

// PatchRequest is the body of PATCH /speed
type PatchRequest struct {
	Operations []Operation `json:"operations" binding:"required,dive"`
}

// VariableRequest is the body of PUT /variables/:name
type VariableRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

// OperationResult reports the outcome of one operation or batch entry
type OperationResult struct {
	Path  string  `json:"path,omitempty"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	OK    bool    `json:"ok"`
	Error string  `json:"error,omitempty"`

	err error
}
