// Package razorpay adapts the Razorpay SDK to payment.Gateway.
package razorpay

import (
	"context"
	"fmt"

	rzp "github.com/razorpay/razorpay-go"

	"github.com/nekogravitycat/library-booking-backend/internal/payment"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/money"
)

type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type paymentAPI interface {
	Transfer(paymentID string, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Gateway implements payment.Gateway over Orders and Route transfers.
type Gateway struct {
	orders   orderAPI
	payments paymentAPI
}

func New(keyID, keySecret string) *Gateway {
	c := rzp.NewClient(keyID, keySecret)
	return &Gateway{orders: c.Order, payments: c.Payment}
}

func (g *Gateway) CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := g.orders.Create(orderPayload(req), nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	return parseOrder(body)
}

func (g *Gateway) Transfer(ctx context.Context, req payment.TransferRequest) (*payment.Transfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := g.payments.Transfer(req.PaymentID, transferPayload(req), nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay transfer: %w", err)
	}
	return parseTransfer(body)
}

func orderPayload(req payment.OrderRequest) map[string]interface{} {
	data := map[string]interface{}{
		"amount":   int64(req.Amount),
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}
	return data
}

func transferPayload(req payment.TransferRequest) map[string]interface{} {
	transfer := map[string]interface{}{
		"account":  req.Account,
		"amount":   int64(req.Amount),
		"currency": req.Currency,
	}
	if len(req.Notes) > 0 {
		transfer["notes"] = req.Notes
	}
	return map[string]interface{}{"transfers": []map[string]interface{}{transfer}}
}

func parseOrder(body map[string]interface{}) (*payment.Order, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay create order: response has no id")
	}
	amount, err := asMinor(body["amount"])
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	currency, _ := body["currency"].(string)
	status, _ := body["status"].(string)
	return &payment.Order{ID: id, Amount: amount, Currency: currency, Status: status}, nil
}

// parseTransfer accepts the collection the transfers endpoint returns and a bare transfer entity.
func parseTransfer(body map[string]interface{}) (*payment.Transfer, error) {
	if items, ok := body["items"].([]interface{}); ok {
		if len(items) == 0 {
			return nil, fmt.Errorf("razorpay transfer: empty transfer list")
		}
		first, ok := items[0].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("razorpay transfer: unexpected item %T", items[0])
		}
		body = first
	}
	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay transfer: response has no id")
	}
	return &payment.Transfer{ID: id}, nil
}

func asMinor(v interface{}) (money.Minor, error) {
	switch n := v.(type) {
	case float64:
		return money.Minor(n), nil
	case int64:
		return money.Minor(n), nil
	case int:
		return money.Minor(n), nil
	default:
		return 0, fmt.Errorf("unexpected amount %T", v)
	}
}
