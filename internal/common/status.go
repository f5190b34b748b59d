package common

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// Messages for the status codes the Discord REST API answers with
var messages = map[int]string{
	http.StatusOK:                  "OK",
	http.StatusNoContent:           "No content",
	http.StatusBadRequest:          "Bad request",
	http.StatusUnauthorized:        "Unauthorized",
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "Not found",
	http.StatusMethodNotAllowed:    "Method not allowed",
	http.StatusTooManyRequests:     "Rate limit exceeded",
	http.StatusInternalServerError: "Internal server error",
	http.StatusBadGateway:          "Bad gateway",
	http.StatusServiceUnavailable:  "Service unavailable",
	http.StatusGatewayTimeout:      "Gateway timeout",
}

// StatusMessage returns a short description of a status code,
// or an empty string if the code is not understood
func StatusMessage(code int) string {
	return messages[code]
}

// RESTStatus extracts the status code of a failed Discord REST request.
// Errors that never got a response, like network failures, report false.
func RESTStatus(err error) (int, bool) {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return 0, false
	}
	return restErr.Response.StatusCode, true
}

// RESTCode returns the Discord JSON error code of a failed request, if any
func RESTCode(err error) (int, bool) {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Message == nil {
		return 0, false
	}
	return restErr.Message.Code, true
}
