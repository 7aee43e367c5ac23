package payment

import (
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// StripeClient tạo PaymentIntent cho thanh toán thẻ quốc tế.
type StripeClient struct{}

func NewStripeClient(secretKey string) *StripeClient {
	stripe.Key = secretKey
	return &StripeClient{}
}

// CreatePaymentIntent tạo một PaymentIntent với số tiền VND. VND không có đơn
// vị lẻ nên amount truyền thẳng, không nhân 100 như USD.
func (c *StripeClient) CreatePaymentIntent(amount int64, transactionID string, description string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(string(stripe.CurrencyVND)),
		Description: stripe.String(description),
	}
	params.AddMetadata("transaction_id", transactionID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("lỗi tạo Stripe PaymentIntent: %w", err)
	}
	return pi, nil
}
