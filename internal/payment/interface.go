package payment

import (
	"context"
	"time"

	"github.com/lunarphp/opayo/internal/models"
	"github.com/lunarphp/opayo/internal/opayo"
)

// Gateway is the slice of the Opayo client the payment flow needs.
// *opayo.Client satisfies it; tests substitute a mock.
type Gateway interface {
	MerchantSessionKey(ctx context.Context) (string, error)
	Authorize(ctx context.Context, req opayo.AuthorizationRequest) (*opayo.TransactionResponse, error)
	CompleteChallenge(ctx context.Context, outcome opayo.ChallengeOutcome) (*opayo.ChallengeResponse, error)
	Transaction(ctx context.Context, id string) (*opayo.Transaction, error)
	Capture(ctx context.Context, reference string, amount int) (*opayo.InstructionResponse, error)
	Refund(ctx context.Context, reference, vendorTxCode string, amount int, description string) (*opayo.RefundResponse, error)
}

// OrderStore stamps orders as placed. Satisfied by repository.OrderRepository.
type OrderStore interface {
	MarkPlaced(id uint, placedAt time.Time) error
}

// TransactionStore appends ledger rows. Satisfied by
// repository.TransactionRepository.
type TransactionStore interface {
	Create(tx *models.Transaction) error
}

// ReusableStore persists saved card tokens. Satisfied by
// repository.ReusablePaymentRepository.
type ReusableStore interface {
	Save(rp *models.ReusablePayment) error
}
