package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/skyfinder/internal/logger"
	"github.com/dharmasatrya/skyfinder/internal/session"
)

const (
	SessionCookie = "skyfinder_session"
	sessionKey    = "session"
)

// SessionMiddleware attaches the caller's session, issuing a cookie for new or
// expired ones.
func (h *Handler) SessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var id string
		if cookie, err := c.Cookie(SessionCookie); err == nil {
			id = cookie.Value
		}

		s, created := h.sessions.GetOrCreate(id)
		if created {
			c.SetCookie(&http.Cookie{
				Name:     SessionCookie,
				Value:    s.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Set(sessionKey, s)
		return next(c)
	}
}

func sessionFrom(c echo.Context) *session.Session {
	return c.Get(sessionKey).(*session.Session)
}

// RequestLogger logs one line per request, at a level chosen by status class.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := map[string]any{
				"method":     req.Method,
				"path":       req.URL.Path,
				"status":     status,
				"latency":    time.Since(start),
				"client_ip":  c.RealIP(),
				"user_agent": req.UserAgent(),
			}
			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				fields["request_id"] = id
			}
			if req.URL.RawQuery != "" {
				fields["query"] = req.URL.RawQuery
			}

			log := logger.WithFields(fields)
			switch {
			case status >= 500:
				log.Error(err, "HTTP Request")
			case status >= 400:
				log.Warn("HTTP Request")
			default:
				log.Info("HTTP Request")
			}
			return nil
		}
	}
}
