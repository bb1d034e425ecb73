package httppresentation

import (
	"time"

	domcart "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// Money leaves the service as a two-decimal string so clients never parse floats.
func money(d decimal.Decimal) string { return d.StringFixed(2) }

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type productResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	StockQuantity int    `json:"stock_quantity"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func toProductResponse(p *catalog.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Price:         money(p.Price),
		StockQuantity: p.StockQuantity,
		CreatedAt:     timestamp(p.CreatedAt),
		UpdatedAt:     timestamp(p.UpdatedAt),
	}
}

type upsertProductRequest struct {
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type stockResponse struct {
	ProductID     string `json:"product_id"`
	StockQuantity int    `json:"stock_quantity"`
}

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type cartLineResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Subtotal    string `json:"subtotal"`
}

type cartResponse struct {
	UserID    string             `json:"user_id"`
	Items     []cartLineResponse `json:"items"`
	Total     string             `json:"total"`
	UpdatedAt string             `json:"updated_at,omitempty"`
}

func toCartResponse(c *domcart.Cart) cartResponse {
	items := make([]cartLineResponse, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, cartLineResponse{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   money(l.UnitPrice),
			Quantity:    l.Quantity,
			Subtotal:    money(l.Subtotal()),
		})
	}
	return cartResponse{
		UserID:    c.UserID,
		Items:     items,
		Total:     money(c.Total()),
		UpdatedAt: timestamp(c.UpdatedAt),
	}
}

type addressDTO struct {
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	PhoneNumber  string `json:"phone_number"`
}

func (a addressDTO) toDomain() domorder.ShippingAddress {
	return domorder.ShippingAddress{
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
		PhoneNumber:  a.PhoneNumber,
	}
}

func toAddressDTO(a domorder.ShippingAddress) addressDTO {
	return addressDTO{
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
		PhoneNumber:  a.PhoneNumber,
	}
}

type paymentInfoDTO struct {
	Method         string `json:"method"`
	CardNumber     string `json:"card_number,omitempty"`
	CardHolderName string `json:"card_holder_name,omitempty"`
	ExpiryDate     string `json:"expiry_date,omitempty"`
	CVV            string `json:"cvv,omitempty"`
	PayPalEmail    string `json:"paypal_email,omitempty"`
	AccountNumber  string `json:"account_number,omitempty"`
	BankName       string `json:"bank_name,omitempty"`
}

func (p paymentInfoDTO) toDomain() dompay.Info {
	return dompay.Info{
		Method:         dompay.Method(p.Method),
		CardNumber:     p.CardNumber,
		CardHolderName: p.CardHolderName,
		ExpiryDate:     p.ExpiryDate,
		CVV:            p.CVV,
		PayPalEmail:    p.PayPalEmail,
		AccountNumber:  p.AccountNumber,
		BankName:       p.BankName,
	}
}

type createOrderRequest struct {
	ShippingAddress addressDTO     `json:"shipping_address"`
	Payment         paymentInfoDTO `json:"payment"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderLineResponse struct {
	ProductID       string `json:"product_id"`
	ProductName     string `json:"product_name"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase string `json:"price_at_purchase"`
	Subtotal        string `json:"subtotal"`
}

type paymentResponse struct {
	ID            string `json:"id"`
	Method        string `json:"method"`
	Account       string `json:"account"`
	Amount        string `json:"amount"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	PaidAt        string `json:"paid_at,omitempty"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	Status          string              `json:"status"`
	Items           []orderLineResponse `json:"items"`
	Total           string              `json:"total"`
	ShippingAddress addressDTO          `json:"shipping_address"`
	Payment         *paymentResponse    `json:"payment,omitempty"`
	CreatedAt       string              `json:"created_at"`
	UpdatedAt       string              `json:"updated_at"`
}

func toOrderResponse(o *domorder.Order) orderResponse {
	items := make([]orderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, orderLineResponse{
			ProductID:       l.ProductID,
			ProductName:     l.ProductName,
			Quantity:        l.Quantity,
			PriceAtPurchase: money(l.PriceAtPurchase),
			Subtotal:        money(l.Subtotal()),
		})
	}
	resp := orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		Items:           items,
		Total:           money(o.Total),
		ShippingAddress: toAddressDTO(o.ShippingAddress),
		CreatedAt:       timestamp(o.CreatedAt),
		UpdatedAt:       timestamp(o.UpdatedAt),
	}
	if p := o.Payment; p != nil {
		resp.Payment = &paymentResponse{
			ID:            p.ID,
			Method:        string(p.Method),
			Account:       p.Account,
			Amount:        money(p.Amount),
			TransactionID: p.TransactionID,
			Status:        string(p.Status),
			PaidAt:        timestamp(p.PaidAt),
		}
	}
	return resp
}
