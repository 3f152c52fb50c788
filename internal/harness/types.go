package harness

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// SQL and Args are the compiled statement; empty when the request
	// failed to build.
	SQL  string `json:"sql,omitempty"`
	Args []any  `json:"args,omitempty"`

	// Code is the first PlanError code when the request failed to build.
	Code string `json:"code,omitempty"`

	// Executed reports whether the statement ran against the setup
	// database; Rows, Affected and Exists are its outcome.
	Executed bool  `json:"executed,omitempty"`
	Rows     int   `json:"rows,omitempty"`
	Affected int64 `json:"affected,omitempty"`
	Exists   *bool `json:"exists,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
