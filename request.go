package auth

import (
	"net/http"
)

// HeaderAuthorization is the header AccessGuard reads credentials from
const HeaderAuthorization = "Authorization"

// RequestReader is the read-only view of an inbound request AccessGuard needs.
// Cookie returns an empty string when the cookie is absent.
type RequestReader interface {
	Header(key string) string
	Cookie(name string) string
}

type httpRequest struct {
	r *http.Request
}

// FromHTTPRequest adapts a net/http request
func FromHTTPRequest(r *http.Request) RequestReader {
	return httpRequest{r: r}
}

func (h httpRequest) Header(key string) string {
	if h.r == nil {
		return ""
	}
	return h.r.Header.Get(key)
}

func (h httpRequest) Cookie(name string) string {
	if h.r == nil || name == "" {
		return ""
	}
	c, err := h.r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
