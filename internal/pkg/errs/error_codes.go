/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Room, Message, and Discovery Business Logic Errors
const (
	// ErrRoomNotFound indicates that the referenced room does not exist.
	ErrRoomNotFound = 2101

	// ErrInvalidCoordinate indicates a latitude outside [-90,90] or longitude outside [-180,180].
	ErrInvalidCoordinate = 2102

	// ErrInvalidRadius indicates a non-positive or non-finite discovery radius.
	ErrInvalidRadius = 2103

	// ErrMessageNotFound indicates that the referenced message does not exist.
	ErrMessageNotFound = 2201

	// ErrEmptyMessage indicates that a message body was empty after trimming.
	ErrEmptyMessage = 2202

	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2203

	// ErrFileSizeTooLarge indicates that an attachment exceeded the size limit.
	ErrFileSizeTooLarge = 2301

	// ErrAttachmentInvalid indicates a disallowed attachment type or malformed attachment key.
	ErrAttachmentInvalid = 2302
)

// 3xxx: Geolocation Errors
const (
	// ErrLocationUnavailable indicates the geolocation provider could not produce a reading.
	ErrLocationUnavailable = 3001

	// ErrLocationPermissionDenied indicates location access was refused.
	ErrLocationPermissionDenied = 3002

	// ErrLocationTimeout indicates the geolocation reading did not complete in time.
	ErrLocationTimeout = 3003
)

// 4xxx: Backing Store Errors
const (
	// ErrStoreUnavailable indicates the document store is transiently unreachable.
	ErrStoreUnavailable = 4001

	// ErrSubscriptionFailed indicates a live subscription could not be established.
	ErrSubscriptionFailed = 4002
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates the attachment storage service rejected an operation.
	ErrFileStorageFailed = 5001
)
