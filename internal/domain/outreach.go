package domain

import "time"

// OutreachState is the scheduler state for a run.
type OutreachState string

const (
	OutreachIdle             OutreachState = "idle"
	OutreachConfirming       OutreachState = "confirming"
	OutreachSending          OutreachState = "sending"
	OutreachDailyLimitWait   OutreachState = "daily_limit_wait"
	OutreachBatchRest        OutreachState = "batch_rest"
	OutreachRateLimitBackoff OutreachState = "rate_limit_backoff"
	OutreachDone             OutreachState = "done"
)

// OutreachPolicy bounds the delivery rate of a run.
type OutreachPolicy struct {
	MinDelaySec   int  `json:"min_delay_sec"`
	MaxDelaySec   int  `json:"max_delay_sec"`
	DailyCap      int  `json:"daily_cap"`
	BatchSize     int  `json:"batch_size"`
	BatchRestMin  int  `json:"batch_rest_min"`
	NaturalPacing bool `json:"natural_pacing"`
}

// DefaultOutreachPolicy mirrors the pacing the tool has always shipped with.
func DefaultOutreachPolicy() OutreachPolicy {
	return OutreachPolicy{
		MinDelaySec:   30,
		MaxDelaySec:   90,
		DailyCap:      50,
		BatchSize:     10,
		BatchRestMin:  30,
		NaturalPacing: true,
	}
}

// OutreachRun is the progress record of one delivery run. It is checkpointed
// every 10 processed recipients and once more at terminal state.
type OutreachRun struct {
	ID               string        `json:"id"`
	Subject          string        `json:"subject"`
	Body             string        `json:"body"`
	Total            int           `json:"total"`
	Processed        int           `json:"processed"`
	Succeeded        []string      `json:"succeeded"`
	Failed           []string      `json:"failed"`
	DailySent        int           `json:"daily_sent"`
	DailyWindowStart time.Time     `json:"daily_window_start"`
	State            OutreachState `json:"state"`
	ResumeAt         *time.Time    `json:"resume_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}
