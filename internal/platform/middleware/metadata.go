package middleware

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"agrimarket/pkg/requestcontext"
)

// DeviceHeader lets a client state its viewport class explicitly; it wins
// over User-Agent sniffing.
const DeviceHeader = "X-Device-Class"

// ClientMetadata extracts client IP, User-Agent and device class from the
// request and adds them to the context. The device class picks the map
// surface size used when fitting markers.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), ua)
		ctx = requestcontext.WithDevice(ctx, DeviceFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceFromRequest resolves the device class from the explicit header or the
// User-Agent.
func DeviceFromRequest(r *http.Request) requestcontext.DeviceClass {
	switch requestcontext.DeviceClass(strings.ToLower(r.Header.Get(DeviceHeader))) {
	case requestcontext.DeviceMobile:
		return requestcontext.DeviceMobile
	case requestcontext.DeviceTablet:
		return requestcontext.DeviceTablet
	case requestcontext.DeviceDesktop:
		return requestcontext.DeviceDesktop
	}
	return DeviceFromUserAgent(r.Header.Get("User-Agent"))
}

// DeviceFromUserAgent classifies a User-Agent string.
func DeviceFromUserAgent(raw string) requestcontext.DeviceClass {
	if raw == "" {
		return requestcontext.DeviceDesktop
	}
	ua := useragent.New(raw)
	platform := strings.ToLower(ua.Platform())
	if platform == "ipad" || (strings.Contains(strings.ToLower(ua.OS()), "android") && !ua.Mobile()) {
		return requestcontext.DeviceTablet
	}
	if ua.Mobile() {
		return requestcontext.DeviceMobile
	}
	return requestcontext.DeviceDesktop
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port", or "[::1]:port" for IPv6
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
