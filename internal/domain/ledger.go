package domain

type GrantRequest struct {
	UserID         int64
	Reason         GrantReason
	Amount         int64
	IdempotencyKey string
	Metadata       map[string]any
}

type GrantResult struct {
	Grant        *RewardGrant
	BalanceAfter int64
	// Replayed is set when the idempotency key was already recorded and
	// nothing was credited by this call.
	Replayed bool
}

type DebitRequest struct {
	UserID        int64
	Amount        int64
	Origin        TxOrigin
	ReferenceType string
	ReferenceID   int64
}

// Origin returns the wallet transaction origin for a grant reason.
func (r GrantReason) Origin() TxOrigin {
	return TxOrigin(r)
}
