package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/trovemart/trovemart-backend/api/responses"
	paymentsvc "github.com/trovemart/trovemart-backend/internal/payments"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
	"github.com/trovemart/trovemart-backend/pkg/logger"
	"github.com/trovemart/trovemart-backend/pkg/metrics"
)

const (
	razorpaySignatureHeader = "X-Razorpay-Signature"
	razorpayEventIDHeader   = "X-Razorpay-Event-Id"
)

// RazorpayWebhook ingests gateway payment events. Signature verification and
// event-id dedup happen inside the payments service; the controller only
// shapes the HTTP exchange and counts outcomes.
func RazorpayWebhook(svc paymentsvc.Service, hooks *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := strings.TrimSpace(r.Header.Get(razorpaySignatureHeader))
		if signature == "" {
			if hooks != nil {
				hooks.Inc("unknown", "missing_signature")
			}
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSecurity, "signature header missing"))
			return
		}
		eventID := strings.TrimSpace(r.Header.Get(razorpayEventIDHeader))

		event := eventName(body)
		if err := svc.HandleWebhook(ctx, body, signature, eventID); err != nil {
			if hooks != nil {
				hooks.Inc(event, "error")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if hooks != nil {
			hooks.Inc(event, "ok")
		}
		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}

// eventName peeks at the top-level event field for metrics labels. The
// service does the real parse after verifying the signature.
func eventName(body []byte) string {
	var probe struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.Event == "" {
		return "unknown"
	}
	return probe.Event
}
