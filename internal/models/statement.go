package models

// Line results recorded in DebugLine.Result.
const (
	LineParsed   = "parsed"
	LineSkipped  = "skipped"
	LineHeader   = "header"
	LineRejected = "rejected"
)

// DebugLine captures what the parser did with each input line.
type DebugLine struct {
	Page        int      `json:"page"`
	LineNum     int      `json:"line_num"`
	Text        string   `json:"text"`
	Result      string   `json:"result"`
	Matched     bool     `json:"matched"`
	Rule        string   `json:"rule,omitempty"`
	Groups      []string `json:"groups,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	Date        string   `json:"date,omitempty"`
	Type        TxnType  `json:"type,omitempty"`
	Amount      float64  `json:"amount,omitempty"`
	CheckNumber string   `json:"check_number,omitempty"`
}

// ParseStats summarises one statement parse.
type ParseStats struct {
	Lines      int            `json:"lines"`
	Skipped    int            `json:"skipped"`
	Headers    int            `json:"headers"`
	Parsed     int            `json:"parsed"`
	Rejected   int            `json:"rejected"`
	RejectedBy map[string]int `json:"rejected_by,omitempty"`
	Truncated  bool           `json:"truncated,omitempty"`
}

// StatementInfo is the output of parsing one statement's text.
type StatementInfo struct {
	Transactions []BankTransaction
	DebugLines   []DebugLine
	Stats        ParseStats
	TextLength   int
}
