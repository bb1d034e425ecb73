package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
)

type productRow struct {
	ID            string          `gorm:"primaryKey;type:varchar(64)"`
	Name          string          `gorm:"not null;type:varchar(255)"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	StockQuantity int             `gorm:"not null;check:stock_quantity >= 0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (productRow) TableName() string { return "products" }

type addressColumns struct {
	AddressLine1 string `gorm:"not null;type:varchar(255)"`
	AddressLine2 string `gorm:"type:varchar(255)"`
	City         string `gorm:"not null;type:varchar(100)"`
	State        string `gorm:"not null;type:varchar(100)"`
	PostalCode   string `gorm:"not null;type:varchar(20)"`
	Country      string `gorm:"not null;type:varchar(100)"`
	PhoneNumber  string `gorm:"not null;type:varchar(50)"`
}

type orderRow struct {
	ID              string          `gorm:"primaryKey;type:varchar(64)"`
	UserID          string          `gorm:"not null;type:varchar(64);index;uniqueIndex:idx_orders_user_idempotency"`
	IdempotencyKey  *string         `gorm:"type:varchar(128);uniqueIndex:idx_orders_user_idempotency"`
	Status          string          `gorm:"not null;type:varchar(20)"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ShippingAddress addressColumns  `gorm:"embedded;embeddedPrefix:ship_"`
	Lines           []orderLineRow  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment         *paymentRow     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time       `gorm:"index"`
	UpdatedAt       time.Time
}

func (orderRow) TableName() string { return "orders" }

type orderLineRow struct {
	ID              uint            `gorm:"primaryKey;autoIncrement"`
	OrderID         string          `gorm:"not null;type:varchar(64);index"`
	Position        int             `gorm:"not null"`
	ProductID       string          `gorm:"not null;type:varchar(64)"`
	ProductName     string          `gorm:"not null;type:varchar(255)"`
	Quantity        int             `gorm:"not null;check:quantity > 0"`
	PriceAtPurchase decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (orderLineRow) TableName() string { return "order_lines" }

type paymentRow struct {
	ID            string          `gorm:"primaryKey;type:varchar(64)"`
	OrderID       string          `gorm:"not null;type:varchar(64);uniqueIndex"`
	Method        string          `gorm:"not null;type:varchar(20)"`
	Account       string          `gorm:"type:varchar(255)"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TransactionID string          `gorm:"type:varchar(64)"`
	Status        string          `gorm:"not null;type:varchar(20)"`
	PaidAt        time.Time
	UpdatedAt     time.Time
}

func (paymentRow) TableName() string { return "payments" }

func toProductRow(p *catalog.Product) productRow {
	return productRow{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (r productRow) toDomain() *catalog.Product {
	return &catalog.Product{
		ID:            r.ID,
		Name:          r.Name,
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toOrderRow(o *domorder.Order) orderRow {
	row := orderRow{
		ID:     o.ID,
		UserID: o.UserID,
		Status: string(o.Status),
		Total:  o.Total,
		ShippingAddress: addressColumns{
			AddressLine1: o.ShippingAddress.AddressLine1,
			AddressLine2: o.ShippingAddress.AddressLine2,
			City:         o.ShippingAddress.City,
			State:        o.ShippingAddress.State,
			PostalCode:   o.ShippingAddress.PostalCode,
			Country:      o.ShippingAddress.Country,
			PhoneNumber:  o.ShippingAddress.PhoneNumber,
		},
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if o.IdempotencyKey != "" {
		key := o.IdempotencyKey
		row.IdempotencyKey = &key
	}
	for i, l := range o.Lines {
		row.Lines = append(row.Lines, orderLineRow{
			OrderID:         o.ID,
			Position:        i,
			ProductID:       l.ProductID,
			ProductName:     l.ProductName,
			Quantity:        l.Quantity,
			PriceAtPurchase: l.PriceAtPurchase,
		})
	}
	if o.Payment != nil {
		p := toPaymentRow(o.Payment)
		row.Payment = &p
	}
	return row
}

func toPaymentRow(p *dompay.Payment) paymentRow {
	return paymentRow{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Method:        string(p.Method),
		Account:       p.Account,
		Amount:        p.Amount,
		TransactionID: p.TransactionID,
		Status:        string(p.Status),
		PaidAt:        p.PaidAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (r orderRow) toDomain() *domorder.Order {
	o := &domorder.Order{
		ID:     r.ID,
		UserID: r.UserID,
		Status: domorder.Status(r.Status),
		Total:  r.Total,
		ShippingAddress: domorder.ShippingAddress{
			AddressLine1: r.ShippingAddress.AddressLine1,
			AddressLine2: r.ShippingAddress.AddressLine2,
			City:         r.ShippingAddress.City,
			State:        r.ShippingAddress.State,
			PostalCode:   r.ShippingAddress.PostalCode,
			Country:      r.ShippingAddress.Country,
			PhoneNumber:  r.ShippingAddress.PhoneNumber,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.IdempotencyKey != nil {
		o.IdempotencyKey = *r.IdempotencyKey
	}
	o.Lines = make([]domorder.Line, 0, len(r.Lines))
	for _, l := range r.Lines {
		o.Lines = append(o.Lines, domorder.Line{
			ProductID:       l.ProductID,
			ProductName:     l.ProductName,
			Quantity:        l.Quantity,
			PriceAtPurchase: l.PriceAtPurchase,
		})
	}
	if r.Payment != nil {
		o.Payment = &dompay.Payment{
			ID:            r.Payment.ID,
			OrderID:       r.Payment.OrderID,
			Method:        dompay.Method(r.Payment.Method),
			Account:       r.Payment.Account,
			Amount:        r.Payment.Amount,
			TransactionID: r.Payment.TransactionID,
			Status:        dompay.Status(r.Payment.Status),
			PaidAt:        r.Payment.PaidAt,
			UpdatedAt:     r.Payment.UpdatedAt,
		}
	}
	return o
}
