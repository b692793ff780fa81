package payin

// PayInStatus represents the lifecycle state of a payment request
type PayInStatus string

const (
	// StatusInitiated is the state of a freshly created request, before a
	// collection account is allocated.
	StatusInitiated PayInStatus = "INITIATED"
	// StatusAssigned means a bank account has been allocated and the request
	// is awaiting a matching bank credit.
	StatusAssigned PayInStatus = "ASSIGNED"
	// StatusSuccess means a bank credit matched on account and amount.
	StatusSuccess PayInStatus = "SUCCESS"
	// StatusDispute means a bank credit matched on account but not amount.
	StatusDispute PayInStatus = "DISPUTE"
	// StatusBankMismatch means a bank credit matched by UTR or short code but
	// arrived on a different account than assigned.
	StatusBankMismatch PayInStatus = "BANK_MISMATCH"
	// StatusDuplicate means the submitted UTR is already claimed elsewhere.
	StatusDuplicate PayInStatus = "DUPLICATE"
	// StatusFailed is a terminal failure, reached by timeout or correction.
	StatusFailed PayInStatus = "FAILED"
	// StatusDropped means the request idled past its window and was swept.
	StatusDropped PayInStatus = "DROPPED"
	// StatusPending means a user submission (e.g. chat bot) is awaiting the
	// matching bank credit line.
	StatusPending PayInStatus = "PENDING"
	// StatusImgPending means an uploaded payment proof is awaiting extraction.
	StatusImgPending PayInStatus = "IMG_PENDING"
)

// String returns the string representation of the status
func (s PayInStatus) String() string {
	return string(s)
}

// IsValid returns true for a known status
func (s PayInStatus) IsValid() bool {
	switch s {
	case StatusInitiated, StatusAssigned, StatusSuccess, StatusDispute,
		StatusBankMismatch, StatusDuplicate, StatusFailed, StatusDropped,
		StatusPending, StatusImgPending:
		return true
	}
	return false
}

// IsTerminal returns true when no further automatic transition is possible
func (s PayInStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusDropped:
		return true
	}
	return false
}

// IsOpen returns true while the request is still awaiting a matching bank credit
func (s PayInStatus) IsOpen() bool {
	switch s {
	case StatusAssigned, StatusPending, StatusImgPending:
		return true
	}
	return false
}

// IsCorrectable returns true for states an operator may promote to SUCCESS or
// FAILED through the correction workflow.
func (s PayInStatus) IsCorrectable() bool {
	switch s {
	case StatusDispute, StatusDuplicate, StatusBankMismatch:
		return true
	}
	return false
}

// allowedTransitions is the full transition table of the PayIn state machine.
// Correction transitions (DISPUTE/DUPLICATE/BANK_MISMATCH back to ASSIGNED or
// DROPPED) belong to the reset workflow.
var allowedTransitions = map[PayInStatus][]PayInStatus{
	StatusInitiated: {StatusAssigned, StatusDropped, StatusFailed},
	StatusAssigned: {
		StatusSuccess, StatusDispute, StatusBankMismatch, StatusDuplicate,
		StatusPending, StatusImgPending, StatusDropped, StatusFailed,
	},
	StatusPending: {
		StatusSuccess, StatusDispute, StatusBankMismatch, StatusDuplicate,
		StatusDropped, StatusFailed,
	},
	StatusImgPending: {
		StatusSuccess, StatusDispute, StatusBankMismatch, StatusDuplicate,
		StatusDropped, StatusFailed,
	},
	StatusDispute:      {StatusSuccess, StatusFailed, StatusAssigned, StatusDropped},
	StatusDuplicate:    {StatusSuccess, StatusFailed, StatusAssigned, StatusDropped},
	StatusBankMismatch: {StatusSuccess, StatusFailed, StatusAssigned, StatusDropped},
}

// CanTransitionTo reports whether the state machine permits moving from s to target
func (s PayInStatus) CanTransitionTo(target PayInStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}
