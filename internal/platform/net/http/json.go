package http

import (
	"net/http"

	"sibyl/internal/platform/net/http/bind"
)

// JSONHandler adapts a typed JSON handler onto the platform Handler.
// The body binds and validates into T before fn runs
func JSONHandler[T any](fn func(*http.Request, T) (any, error)) Handler {
	return Handle(func(r *http.Request) Response {
		in, err := bind.ParseJSON[T](r)
		if err != nil {
			return Error(err)
		}
		return respond(fn(r, in))
	})
}

// JSONHandlerNoBody adapts a bodyless handler, e.g. GET endpoints
func JSONHandlerNoBody(fn func(*http.Request) (any, error)) Handler {
	return Handle(func(r *http.Request) Response {
		return respond(fn(r))
	})
}

// respond maps a handler result onto the envelope
func respond(out any, err error) Response {
	if err != nil {
		return Error(err)
	}
	return OK(out)
}
