package testutil

import (
	"net/http"

	"agrimarket/pkg/requestcontext"
)

// WithDevice sets the device class on the request context, as the client
// metadata middleware would.
func WithDevice(req *http.Request, device requestcontext.DeviceClass) *http.Request {
	return req.WithContext(requestcontext.WithDevice(req.Context(), device))
}

// WithRequestID sets the request id on the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
