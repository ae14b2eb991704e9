package indexer

import (
	"encoding/json"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Report summarizes one run.
type Report struct {
	Scanned       int64 `json:"scanned"`
	Inserted      int64 `json:"inserted"`
	Duplicates    int64 `json:"duplicates"`
	Skipped       int64 `json:"skipped"`
	CoverFailures int64 `json:"coverFailures"`

	Duration time.Duration `json:"-"`

	// ItemErrors holds per-book extraction and cover failures.
	ItemErrors *multierror.Error `json:"-"`
	// LoadWarning is the *catalog.LoadError from reading the previous
	// catalog, if any. The run continued from the recovered catalog.
	LoadWarning error `json:"-"`
}

// Errors returns the per-book errors, or nil.
func (r *Report) Errors() []error {
	if r == nil || r.ItemErrors == nil {
		return nil
	}
	return r.ItemErrors.Errors
}

// MarshalJSON renders errors as strings alongside the counters.
func (r *Report) MarshalJSON() ([]byte, error) {
	type plain Report

	var errs []string
	for _, err := range r.Errors() {
		errs = append(errs, err.Error())
	}

	var warning string
	if r.LoadWarning != nil {
		warning = r.LoadWarning.Error()
	}

	return json.Marshal(struct {
		plain
		DurationMs  int64    `json:"durationMs"`
		Errors      []string `json:"errors,omitempty"`
		LoadWarning string   `json:"loadWarning,omitempty"`
	}{
		plain:       plain(*r),
		DurationMs:  r.Duration.Milliseconds(),
		Errors:      errs,
		LoadWarning: warning,
	})
}
