package policy

import "github.com/francis/platform/internal/domain"

// DefaultHighValueThreshold is the transaction amount (minor units) at or
// above which a new transaction is treated as urgent.
const DefaultHighValueThreshold = 1000

// PriorityPolicy assigns a queue priority to an event based on its type and
// payload content.
type PriorityPolicy struct {
	// HighValueThreshold overrides DefaultHighValueThreshold when > 0.
	HighValueThreshold int64
}

// Assign returns the priority for an event of type t carrying payload p.
//
//   - TRANSACTION_NEW at or above the high-value threshold -> HIGH
//   - COMPLIANCE_UPDATE with subtype SANCTION_ALERT        -> HIGH
//   - ACCOUNT_SYNC, DOCUMENT_PROCESSED, other compliance   -> MEDIUM
//   - BALANCE_CHANGE, MARKET_DATA_UPDATE                   -> LOW
func (pp PriorityPolicy) Assign(t domain.EventType, p domain.Payload) domain.Priority {
	threshold := pp.HighValueThreshold
	if threshold <= 0 {
		threshold = DefaultHighValueThreshold
	}

	switch t {
	case domain.EventTransactionNew:
		if tx, ok := p.(*domain.TransactionPayload); ok {
			amount := tx.Amount
			if amount < 0 {
				amount = -amount
			}
			if amount >= threshold {
				return domain.PriorityHigh
			}
		}
		return domain.PriorityMedium
	case domain.EventComplianceUpdate:
		if c, ok := p.(*domain.CompliancePayload); ok && c.Subtype == domain.ComplianceSanctionAlert {
			return domain.PriorityHigh
		}
		return domain.PriorityMedium
	case domain.EventAccountSync, domain.EventDocumentProcessed:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// MaxRetriesFor returns the retry ceiling for an event type. Banking events
// get the extended ceiling.
func MaxRetriesFor(t domain.EventType) int {
	switch t {
	case domain.EventAccountSync, domain.EventTransactionNew, domain.EventBalanceChange:
		return domain.BankingMaxRetries
	default:
		return domain.DefaultMaxRetries
	}
}
