package domain

import (
	"encoding/json"
	"fmt"
)

// Payload is the type-specific body of a DomainEvent. One variant exists per
// EventType so handlers receive checked shapes instead of casting raw JSON.
type Payload interface {
	EventType() EventType
	Validate() error
}

// Compliance subtypes. SanctionAlert drives the HIGH priority policy.
const (
	ComplianceSanctionAlert     = "SANCTION_ALERT"
	ComplianceRegulationChange  = "REGULATION_CHANGE"
	ComplianceReportingDeadline = "REPORTING_DEADLINE"
)

// AccountSyncPayload describes a completed or requested account sync at an
// external banking provider.
type AccountSyncPayload struct {
	Provider   string   `json:"provider"`
	AccountIDs []string `json:"accountIds"`
	SyncedAt   string   `json:"syncedAt,omitempty"`
}

func (AccountSyncPayload) EventType() EventType { return EventAccountSync }

func (p AccountSyncPayload) Validate() error {
	if p.Provider == "" {
		return fmt.Errorf("account sync: provider is required")
	}
	if len(p.AccountIDs) == 0 {
		return fmt.Errorf("account sync: at least one account ID is required")
	}
	return nil
}

// TransactionPayload describes a newly observed transaction. Amount is in
// minor units (cents).
type TransactionPayload struct {
	TransactionID string `json:"transactionId"`
	AccountID     string `json:"accountId"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Category      string `json:"category,omitempty"`
	Description   string `json:"description,omitempty"`
}

func (TransactionPayload) EventType() EventType { return EventTransactionNew }

func (p TransactionPayload) Validate() error {
	if p.TransactionID == "" {
		return fmt.Errorf("transaction: transactionId is required")
	}
	if p.AccountID == "" {
		return fmt.Errorf("transaction: accountId is required")
	}
	if p.Currency == "" {
		return fmt.Errorf("transaction: currency is required")
	}
	return nil
}

// BalanceChangePayload describes a balance delta on a synced account.
type BalanceChangePayload struct {
	AccountID       string `json:"accountId"`
	PreviousBalance int64  `json:"previousBalance"`
	NewBalance      int64  `json:"newBalance"`
	Currency        string `json:"currency"`
}

func (BalanceChangePayload) EventType() EventType { return EventBalanceChange }

func (p BalanceChangePayload) Validate() error {
	if p.AccountID == "" {
		return fmt.Errorf("balance change: accountId is required")
	}
	if p.Currency == "" {
		return fmt.Errorf("balance change: currency is required")
	}
	return nil
}

// DocumentPayload describes a finished document classification run.
type DocumentPayload struct {
	DocumentID     string  `json:"documentId"`
	DocumentType   string  `json:"documentType"`
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	TaxYear        int     `json:"taxYear,omitempty"`
}

func (DocumentPayload) EventType() EventType { return EventDocumentProcessed }

func (p DocumentPayload) Validate() error {
	if p.DocumentID == "" {
		return fmt.Errorf("document: documentId is required")
	}
	if p.Classification == "" {
		return fmt.Errorf("document: classification is required")
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("document: confidence must be within [0,1], got %v", p.Confidence)
	}
	return nil
}

// CompliancePayload describes a compliance alert or regulatory update.
type CompliancePayload struct {
	Subtype  string `json:"subtype"`
	Severity string `json:"severity,omitempty"`
	Details  string `json:"details,omitempty"`
}

func (CompliancePayload) EventType() EventType { return EventComplianceUpdate }

func (p CompliancePayload) Validate() error {
	if p.Subtype == "" {
		return fmt.Errorf("compliance: subtype is required")
	}
	return nil
}

// MarketDataPayload carries a batch of market ticks relevant to a client's
// portfolio positions.
type MarketDataPayload struct {
	Symbols []string `json:"symbols"`
	AsOf    string   `json:"asOf,omitempty"`
}

func (MarketDataPayload) EventType() EventType { return EventMarketDataUpdate }

func (p MarketDataPayload) Validate() error {
	if len(p.Symbols) == 0 {
		return fmt.Errorf("market data: at least one symbol is required")
	}
	return nil
}

// ParsePayload decodes raw JSON into the payload variant for t and validates
// it. Used at the HTTP and Kafka ingestion boundaries.
func ParsePayload(t EventType, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("payload is required for %s", t)
	}

	var p Payload
	switch t {
	case EventAccountSync:
		p = &AccountSyncPayload{}
	case EventTransactionNew:
		p = &TransactionPayload{}
	case EventBalanceChange:
		p = &BalanceChangePayload{}
	case EventDocumentProcessed:
		p = &DocumentPayload{}
	case EventComplianceUpdate:
		p = &CompliancePayload{}
	case EventMarketDataUpdate:
		p = &MarketDataPayload{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", t)
	}

	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
