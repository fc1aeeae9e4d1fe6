package controllers

import (
	"net/http"

	"github.com/trovemart/trovemart-backend/api/responses"
	"github.com/trovemart/trovemart-backend/api/validators"
	ordersvc "github.com/trovemart/trovemart-backend/internal/orders"
	paymentsvc "github.com/trovemart/trovemart-backend/internal/payments"
	payoutsvc "github.com/trovemart/trovemart-backend/internal/payouts"
	"github.com/trovemart/trovemart-backend/pkg/enums"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
	"github.com/trovemart/trovemart-backend/pkg/logger"
)

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"`
}

// AdminOrderStatus drives the order state machine. Illegal jumps are
// rejected by the service with the current and requested states.
func AdminOrderStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload orderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		note := payload.Note
		if note == "" {
			note = "status updated by operator"
		}

		order, err := svc.Transition(r.Context(), orderID, enums.OrderStatus(payload.Status), note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// AdminOrderShip books a carrier parcel per seller group and moves the
// order in transit once every group has a waybill.
func AdminOrderShip(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Ship(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type sellerDeliveredRequest struct {
	Note string `json:"note"`
}

// AdminSellerDelivered records that one seller's parcel reached the buyer.
// The order itself flips to delivered once the last parcel is recorded.
func AdminSellerDelivered(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sellerID, err := pathUUID(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload sellerDeliveredRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		note := payload.Note
		if note == "" {
			note = "parcel delivered"
		}

		order, err := svc.MarkSellerDelivered(r.Context(), orderID, sellerID, note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// AdminCODCollected confirms cash receipt for a COD order and triggers
// seller settlement.
func AdminCODCollected(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.MarkCODCollected(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

// AdminPayoutSettle retries seller settlement for a captured order. Already
// settled items are skipped, so the endpoint is safe to call repeatedly.
func AdminPayoutSettle(svc payoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Settle(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "settled"})
	}
}

// AdminPayoutHistory lists every settlement attempt recorded for an order.
func AdminPayoutHistory(svc payoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.History(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list := make([]payoutLogResponse, 0, len(rows))
		for _, row := range rows {
			list = append(list, payoutLogResponse{
				ID:                row.ID,
				OrderItemID:       row.OrderItemID,
				SellerID:          row.SellerID,
				Status:            row.Status,
				GrossPaise:        row.GrossPaise,
				CommissionPaise:   row.CommissionPaise,
				NetPaise:          row.NetPaise,
				GatewayTransferID: row.GatewayTransferID,
				FailureReason:     row.FailureReason,
				CreatedAt:         row.CreatedAt,
			})
		}

		responses.WriteSuccess(w, list)
	}
}
