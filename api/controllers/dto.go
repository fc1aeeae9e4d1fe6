package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/trovemart/trovemart-backend/pkg/db/models"
	"github.com/trovemart/trovemart-backend/pkg/enums"
	"github.com/trovemart/trovemart-backend/pkg/types"
)

type cartItemResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	Quantity       int        `json:"quantity"`
	UnitPricePaise int64      `json:"unit_price_paise"`
}

type cartResponse struct {
	ID        uuid.UUID          `json:"id"`
	UserID    uuid.UUID          `json:"user_id"`
	Items     []cartItemResponse `json:"items"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func newCartResponse(cart *models.Cart) cartResponse {
	items := make([]cartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Quantity:       item.Quantity,
			UnitPricePaise: item.UnitPricePaise,
		})
	}
	return cartResponse{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     items,
		UpdatedAt: cart.UpdatedAt,
	}
}

type orderItemResponse struct {
	ID              uuid.UUID            `json:"id"`
	SellerID        uuid.UUID            `json:"seller_id"`
	ProductID       uuid.UUID            `json:"product_id"`
	VariantID       *uuid.UUID           `json:"variant_id,omitempty"`
	SKU             string               `json:"sku"`
	Name            string               `json:"name"`
	Quantity        int                  `json:"quantity"`
	UnitPricePaise  int64                `json:"unit_price_paise"`
	FinalPricePaise int64                `json:"final_price_paise"`
	LineTotalPaise  int64                `json:"line_total_paise"`
	GSTPaise        int64                `json:"gst_paise"`
	DeliveryStatus  enums.DeliveryStatus `json:"delivery_status"`
	WaybillNumber   *string              `json:"waybill_number,omitempty"`
}

type invoiceResponse struct {
	ID            uuid.UUID `json:"id"`
	SellerID      uuid.UUID `json:"seller_id"`
	InvoiceNumber string    `json:"invoice_number"`
	SubtotalPaise int64     `json:"subtotal_paise"`
	GSTPaise      int64     `json:"gst_paise"`
	TotalPaise    int64     `json:"total_paise"`
}

type paymentResponse struct {
	ID               uuid.UUID           `json:"id"`
	Method           enums.PaymentMethod `json:"method"`
	Status           enums.PaymentStatus `json:"status"`
	AmountPaise      int64               `json:"amount_paise"`
	GatewayOrderID   *string             `json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string             `json:"gateway_payment_id,omitempty"`
	FailureReason    *string             `json:"failure_reason,omitempty"`
	CapturedAt       *time.Time          `json:"captured_at,omitempty"`
	CashCollectedAt  *time.Time          `json:"cash_collected_at,omitempty"`
}

func newPaymentResponse(payment *models.Payment) paymentResponse {
	return paymentResponse{
		ID:               payment.ID,
		Method:           payment.Method,
		Status:           payment.Status,
		AmountPaise:      payment.AmountPaise,
		GatewayOrderID:   payment.GatewayOrderID,
		GatewayPaymentID: payment.GatewayPaymentID,
		FailureReason:    payment.FailureReason,
		CapturedAt:       payment.CapturedAt,
		CashCollectedAt:  payment.CashCollectedAt,
	}
}

type orderResponse struct {
	ID                 uuid.UUID             `json:"id"`
	OrderNumber        string                `json:"order_number"`
	Status             enums.OrderStatus     `json:"status"`
	DeliveryStatus     enums.DeliveryStatus  `json:"delivery_status"`
	PaymentMethod      enums.PaymentMethod   `json:"payment_method"`
	RefundStatus       enums.RefundStatus    `json:"refund_status"`
	Currency           enums.Currency        `json:"currency"`
	ShippingAddress    types.Address         `json:"shipping_address"`
	SubtotalPaise      int64                 `json:"subtotal_paise"`
	DiscountPaise      int64                 `json:"discount_paise"`
	GSTPaise           int64                 `json:"gst_paise"`
	DeliveryFeePaise   int64                 `json:"delivery_fee_paise"`
	TotalPaise         int64                 `json:"total_paise"`
	CouponSnapshot     *types.CouponSnapshot `json:"coupon,omitempty"`
	DeliveryFeeMissing bool                  `json:"delivery_fee_missing,omitempty"`
	Timeline           types.Timeline        `json:"timeline,omitempty"`
	Items              []orderItemResponse   `json:"items,omitempty"`
	Invoices           []invoiceResponse     `json:"invoices,omitempty"`
	Payment            *paymentResponse      `json:"payment,omitempty"`
	DeliveredAt        *time.Time            `json:"delivered_at,omitempty"`
	CancelledAt        *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		ID:                 order.ID,
		OrderNumber:        order.OrderNumber,
		Status:             order.Status,
		DeliveryStatus:     order.DeliveryStatus,
		PaymentMethod:      order.PaymentMethod,
		RefundStatus:       order.RefundStatus,
		Currency:           order.Currency,
		ShippingAddress:    order.ShippingAddress,
		SubtotalPaise:      order.SubtotalPaise,
		DiscountPaise:      order.DiscountPaise,
		GSTPaise:           order.GSTPaise,
		DeliveryFeePaise:   order.DeliveryFeePaise,
		TotalPaise:         order.TotalPaise,
		CouponSnapshot:     order.CouponSnapshot,
		DeliveryFeeMissing: order.DeliveryFeeMissing,
		Timeline:           order.Timeline,
		DeliveredAt:        order.DeliveredAt,
		CancelledAt:        order.CancelledAt,
		CreatedAt:          order.CreatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ID:              item.ID,
			SellerID:        item.SellerID,
			ProductID:       item.ProductID,
			VariantID:       item.VariantID,
			SKU:             item.SKU,
			Name:            item.Name,
			Quantity:        item.Quantity,
			UnitPricePaise:  item.UnitPricePaise,
			FinalPricePaise: item.FinalPricePaise,
			LineTotalPaise:  item.LineTotalPaise,
			GSTPaise:        item.GSTPaise,
			DeliveryStatus:  item.DeliveryStatus,
			WaybillNumber:   item.WaybillNumber,
		})
	}
	for _, inv := range order.Invoices {
		resp.Invoices = append(resp.Invoices, invoiceResponse{
			ID:            inv.ID,
			SellerID:      inv.SellerID,
			InvoiceNumber: inv.InvoiceNumber,
			SubtotalPaise: inv.SubtotalPaise,
			GSTPaise:      inv.GSTPaise,
			TotalPaise:    inv.TotalPaise,
		})
	}
	if order.Payment != nil {
		payment := newPaymentResponse(order.Payment)
		resp.Payment = &payment
	}
	return resp
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type notificationResponse struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Link      *string                `json:"link,omitempty"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type notificationListResponse struct {
	Notifications []notificationResponse `json:"notifications"`
	NextCursor    string                 `json:"next_cursor,omitempty"`
}

type payoutLogResponse struct {
	ID                uuid.UUID          `json:"id"`
	OrderItemID       uuid.UUID          `json:"order_item_id"`
	SellerID          uuid.UUID          `json:"seller_id"`
	Status            enums.PayoutStatus `json:"status"`
	GrossPaise        int64              `json:"gross_paise"`
	CommissionPaise   int64              `json:"commission_paise"`
	NetPaise          int64              `json:"net_paise"`
	GatewayTransferID *string            `json:"gateway_transfer_id,omitempty"`
	FailureReason     *string            `json:"failure_reason,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}
