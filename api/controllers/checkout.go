package controllers

import (
	"net/http"

	"github.com/trovemart/trovemart-backend/api/responses"
	"github.com/trovemart/trovemart-backend/api/validators"
	checkoutsvc "github.com/trovemart/trovemart-backend/internal/checkout"
	"github.com/trovemart/trovemart-backend/pkg/enums"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
	"github.com/trovemart/trovemart-backend/pkg/logger"
	"github.com/trovemart/trovemart-backend/pkg/types"
)

type checkoutRequest struct {
	ShippingAddress addressPayload `json:"shipping_address" validate:"required"`
	CouponCode      string         `json:"coupon_code"`
	PaymentMethod   string         `json:"payment_method" validate:"required"`
}

type addressPayload struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Email   string `json:"email" validate:"omitempty,email"`
	Line1   string `json:"line1" validate:"required"`
	Line2   string `json:"line2"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Pincode string `json:"pincode" validate:"required,len=6,numeric"`
	Country string `json:"country"`
}

func (p addressPayload) toAddress() types.Address {
	country := p.Country
	if country == "" {
		country = "IN"
	}
	return types.Address{
		Name:    p.Name,
		Phone:   p.Phone,
		Email:   p.Email,
		Line1:   p.Line1,
		Line2:   p.Line2,
		City:    p.City,
		State:   p.State,
		Pincode: p.Pincode,
		Country: country,
	}
}

func (p checkoutRequest) paymentMethod() (enums.PaymentMethod, error) {
	method := enums.PaymentMethod(p.PaymentMethod)
	if !method.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method").WithDetails(map[string]any{"payment_method": p.PaymentMethod})
	}
	return method, nil
}

// CheckoutSummary prices the caller's cart without side effects.
func CheckoutSummary(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return quoteHandler(svc, logg, false)
}

// CheckoutApplyCoupon prices the cart with a coupon applied. The coupon is
// evaluated but not redeemed; redemption happens at commit.
func CheckoutApplyCoupon(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return quoteHandler(svc, logg, true)
}

func quoteHandler(svc checkoutsvc.Service, logg *logger.Logger, couponRequired bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if couponRequired && payload.CouponCode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required"))
			return
		}

		method, err := payload.paymentMethod()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Quote(r.Context(), checkoutsvc.QuoteRequest{
			UserID:          userID,
			ShippingAddress: payload.ShippingAddress.toAddress(),
			CouponCode:      payload.CouponCode,
			PaymentMethod:   method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

// OrderCreate runs the commit pipeline: reprice, reserve stock, redeem the
// coupon, split per seller, and persist the order with its payment row.
func OrderCreate(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := payload.paymentMethod()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Execute(r.Context(), checkoutsvc.CommitRequest{
			UserID:          userID,
			ShippingAddress: payload.ShippingAddress.toAddress(),
			CouponCode:      payload.CouponCode,
			PaymentMethod:   method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}
