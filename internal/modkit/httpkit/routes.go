package httpkit

import "net/http"

// MountUnder mounts a subrouter at prefix and applies the module's
// middlewares before any routes register. Module MountRoutes implementations
// delegate here so prefix and middleware handling stay in one place
func MountUnder(r Router, prefix string, mw []func(http.Handler) http.Handler, mount func(Router)) {
	r.Route(prefix, func(sub Router) {
		if len(mw) > 0 {
			sub.Use(mw...)
		}
		mount(sub)
	})
}
