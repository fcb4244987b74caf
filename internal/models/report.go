package models

// ReconciliationReport is the bank-vs-book reconciliation for one statement balance.
type ReconciliationReport struct {
	StatementBalance       float64 `json:"statement_balance"`
	BookBalance            float64 `json:"book_balance"`
	OutstandingChecks      []Check `json:"outstanding_checks"`
	OutstandingChecksTotal float64 `json:"outstanding_checks_total"`
	DepositsInTransit      []Sale  `json:"deposits_in_transit"`
	DepositsInTransitTotal float64 `json:"deposits_in_transit_total"`
	ReconciledBalance      float64 `json:"reconciled_balance"`
	Difference             float64 `json:"difference"`
}

// AgeBucket groups outstanding checks by days since issue.
type AgeBucket struct {
	Label  string  `json:"label"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
	Checks []Check `json:"checks"`
}

// InTransitReport lists pending checks by age.
type InTransitReport struct {
	GeneratedOn Date        `json:"generated_on"`
	TotalChecks int         `json:"total_checks"`
	TotalAmount float64     `json:"total_amount"`
	ByAge       []AgeBucket `json:"by_age"`
}
