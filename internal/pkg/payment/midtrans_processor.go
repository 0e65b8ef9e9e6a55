package payment

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// ChargeRequest describes a single membership charge.
type ChargeRequest struct {
	UserId          uuid.UUID
	Email           string
	FullName        string
	Amount          float64
	Description     string
	PaymentMethodId *string
}

// ChargeResult carries the gateway reference for the charge. Any non-error
// return is treated as success by callers.
type ChargeResult struct {
	Id          string
	RedirectURL string
}

type IPaymentProcessor interface {
	ProcessPayment(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
}

type midtransProcessor struct {
	client      snap.Client
	redirectURL string
}

func NewMidtransProcessor(serverKey string, isProduction bool, redirectURL string) IPaymentProcessor {
	env := midtrans.Sandbox
	if isProduction {
		env = midtrans.Production
	}

	var client snap.Client
	client.New(serverKey, env)

	return &midtransProcessor{
		client:      client,
		redirectURL: redirectURL,
	}
}

// toGatewayAmount converts a dollar amount to the gateway's integer unit,
// charged in cents so pro-rated fractions are not silently truncated.
func toGatewayAmount(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (p *midtransProcessor) ProcessPayment(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	orderId := uuid.New().String()

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderId,
			GrossAmt: toGatewayAmount(req.Amount),
		},
		CreditCard: &snap.CreditCardDetails{
			Secure: true,
		},
		Callbacks: &snap.Callbacks{
			Finish: p.redirectURL,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.FullName,
			Email: req.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    req.UserId.String(),
				Price: toGatewayAmount(req.Amount),
				Qty:   1,
				Name:  req.Description,
			},
		},
		EnabledPayments: snap.AllSnapPaymentType,
	}

	resp, midErr := p.client.CreateTransaction(snapReq)
	if midErr != nil {
		return nil, fmt.Errorf("midtrans charge failed: %w", midErr)
	}

	return &ChargeResult{Id: orderId, RedirectURL: resp.RedirectURL}, nil
}
