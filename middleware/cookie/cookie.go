package cookie

import (
	"context"
	"net/http"
	"sync"

	"github.com/jaxron/nexthttp/pkg/client/logger"
	"github.com/jaxron/nexthttp/pkg/client/middleware"
	"github.com/jaxron/nexthttp/pkg/client/request"
	"github.com/jaxron/nexthttp/pkg/client/response"
)

// CookieMiddleware manages cookie rotation for requests.
type CookieMiddleware struct {
	cookies [][]*http.Cookie
	current int
	logger  logger.Logger
	mu      sync.Mutex
}

// New creates a new CookieMiddleware instance.
func New(cookies [][]*http.Cookie) *CookieMiddleware {
	return &CookieMiddleware{
		cookies: cookies,
		current: 0,
		logger:  &logger.NoOpLogger{},
		mu:      sync.Mutex{},
	}
}

// next returns the cookie set for this request and advances the rotation.
func (m *CookieMiddleware) next() []*http.Cookie {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.cookies) == 0 {
		return nil
	}
	cookies := m.cookies[m.current]
	m.current = (m.current + 1) % len(m.cookies)
	return cookies
}

// Process applies cookie logic before passing the request to the next middleware.
func (m *CookieMiddleware) Process(ctx context.Context, req *request.Request, next middleware.NextFunc) (*response.Response, error) {
	if cookies := m.next(); len(cookies) > 0 {
		m.logger.WithFields(logger.Int("cookies", len(cookies))).Debug("Using Cookie")

		// Apply the cookies to the request
		for _, cookie := range cookies {
			req = req.WithCookie(cookie)
		}
	}
	return next(ctx, req)
}

// UpdateCookies updates the list of cookies at runtime.
func (m *CookieMiddleware) UpdateCookies(cookies [][]*http.Cookie) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Replace the existing cookie list with the new one
	m.cookies = cookies
	m.current = 0

	m.logger.WithFields(logger.Int("cookies", len(cookies))).Debug("Cookies updated")
}

// GetCookieCount returns the current number of cookie sets in the list.
func (m *CookieMiddleware) GetCookieCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.cookies)
}

// SetLogger sets the logger for the middleware.
func (m *CookieMiddleware) SetLogger(l logger.Logger) {
	m.logger = l
}
