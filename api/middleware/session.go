package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/adityakhanna/vastra-backend/api/responses"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
	"github.com/adityakhanna/vastra-backend/pkg/logger"
)

const (
	sessionIDHeader = "X-Session-Id"
	channelHeader   = "X-Sales-Channel"

	maxSessionIDLength = 128
)

// SessionContext requires the storefront session header and resolves the sales
// channel. Cart, coupon, checkout and order routes all key on the session.
func SessionContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(sessionIDHeader))
			if sessionID == "" {
				sessionID = SessionIDFromContext(r.Context())
			}
			if sessionID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Session-Id header required"))
				return
			}
			if len(sessionID) > maxSessionIDLength {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id too long"))
				return
			}

			channel := enums.SalesChannelRetail
			if raw := strings.TrimSpace(r.Header.Get(channelHeader)); raw != "" {
				parsed, err := enums.ParseSalesChannel(raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid sales channel").WithDetails(map[string]any{"channel": raw}))
					return
				}
				channel = parsed
			}

			ctx := context.WithValue(r.Context(), ctxSessionID, sessionID)
			ctx = context.WithValue(ctx, ctxChannel, string(channel))

			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
				ctx = logg.WithChannel(ctx, string(channel))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
