package entity

import "time"

type ScenarioReport struct {
	Browser        BrowserKind   `json:"browser"`
	BaseURL        string        `json:"base_url"`
	FooterTitles   []string      `json:"footer_titles"`
	FooterSections int           `json:"footer_sections"`
	SearchTerm     string        `json:"search_term"`
	SearchVerified bool          `json:"search_verified"`
	Screenshots    []string      `json:"screenshots"`
	Passed         bool          `json:"passed"`
	Error          string        `json:"error,omitempty"`
	Duration       time.Duration `json:"duration"`
}
