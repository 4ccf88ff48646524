/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
// A zero Status defaults to HTTP 200 at construction time; business failures that should map
// to a specific HTTP status set it here.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room, Message, and Discovery Business Logic Errors
	ErrRoomNotFound:          {Code: ErrRoomNotFound, Message: "Chat room not found.", Status: http.StatusNotFound},
	ErrInvalidCoordinate:     {Code: ErrInvalidCoordinate, Message: "Invalid latitude/longitude pair.", Status: http.StatusBadRequest},
	ErrInvalidRadius:         {Code: ErrInvalidRadius, Message: "Invalid discovery radius.", Status: http.StatusBadRequest},
	ErrMessageNotFound:       {Code: ErrMessageNotFound, Message: "Message not found.", Status: http.StatusNotFound},
	ErrEmptyMessage:          {Code: ErrEmptyMessage, Message: "Message text must not be empty.", Status: http.StatusBadRequest},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long.", Status: http.StatusBadRequest},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Message: "File is too large.", Status: http.StatusBadRequest},
	ErrAttachmentInvalid:     {Code: ErrAttachmentInvalid, Message: "Invalid attachment.", Status: http.StatusBadRequest},

	// 3xxx: Geolocation Errors
	ErrLocationUnavailable:      {Code: ErrLocationUnavailable, Message: "Location is currently unavailable.", Status: http.StatusServiceUnavailable},
	ErrLocationPermissionDenied: {Code: ErrLocationPermissionDenied, Message: "Location access was denied.", Status: http.StatusForbidden},
	ErrLocationTimeout:          {Code: ErrLocationTimeout, Message: "Location lookup timed out.", Status: http.StatusGatewayTimeout},

	// 4xxx: Backing Store Errors
	ErrStoreUnavailable:   {Code: ErrStoreUnavailable, Message: "Service is temporarily unavailable. Please try again.", Status: http.StatusServiceUnavailable},
	ErrSubscriptionFailed: {Code: ErrSubscriptionFailed, Message: "Live updates could not be established.", Status: http.StatusServiceUnavailable},

	// 5xxx: Internal System Errors
	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusBadGateway},
}
