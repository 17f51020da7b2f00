package api

// CompareRequest asks the service to diff a test run against a reference run.
// Both paths follow the loader's resolution rules: file, directory, or
// wildcard pattern.
type CompareRequest struct {
	ReferencePath string `json:"reference_path"`
	TestPath      string `json:"test_path"`

	// Kind is tokens or logits; empty defaults to tokens. Text records need
	// a tokenizer and are not served over HTTP.
	Kind string `json:"kind,omitempty"`

	BatchSize int `json:"batch_size"`

	// TopK, when set, scores level 1 on the reference's top-k shortlist with
	// a mean squared error loss instead of full-row cross entropy.
	TopK *int `json:"top_k,omitempty"`

	// Threshold, when set, marks level-1 metrics above it as failures.
	Threshold *float64 `json:"threshold,omitempty"`
}

// CompareReport is one stored comparison outcome.
type CompareReport struct {
	ID            string `json:"id"`
	Object        string `json:"object"`
	CreatedAt     int64  `json:"created_at"`
	ReferencePath string `json:"reference_path"`
	TestPath      string `json:"test_path"`
	Kind          string `json:"kind"`
	Sequences     int    `json:"sequences"`

	Level0Count int           `json:"level0_failure_count"`
	Level0      []MismatchDTO `json:"level0_failures,omitempty"`

	Level1 *Level1Summary `json:"level1,omitempty"`
}

type MismatchDTO struct {
	Seq int `json:"sequence"`
	Pos int `json:"position"`
}

type MetricDTO struct {
	Seq   int     `json:"sequence"`
	Pos   int     `json:"position"`
	Value float64 `json:"value"`
}

// Level1Summary aggregates the distributional comparison. Failures are only
// populated when the request carried a threshold.
type Level1Summary struct {
	Metrics      int         `json:"metrics"`
	MaxValue     float64     `json:"max_value"`
	MeanValue    float64     `json:"mean_value"`
	TopK         *int        `json:"top_k,omitempty"`
	Threshold    *float64    `json:"threshold,omitempty"`
	FailureCount int         `json:"failure_count"`
	Failures     []MetricDTO `json:"failures,omitempty"`
}

type ReportList struct {
	Object string          `json:"object"`
	Data   []CompareReport `json:"data"`
}

type DeleteReportResp struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

type HealthResp struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type ReportError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}
