/*
Package errs defines the application error codes and the CustomError type
returned by every core operation and rendered by the HTTP and realtime layers.
*/
package errs

// 1xxx: request validation
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates a request body that is not application/json.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates a syntactically invalid JSON body or frame.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing data after the JSON value.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates the per-IP request budget is exhausted.
	ErrRateLimitExceeded = 1007

	// ErrUnknownMessageType indicates a realtime frame with an unsupported type.
	ErrUnknownMessageType = 1008
)

// 2xxx: rooms and messages
const (
	// ErrRoomNameInvalid indicates an empty or oversized room name.
	ErrRoomNameInvalid = 2101

	// ErrRoomDescriptionInvalid indicates an oversized room description.
	ErrRoomDescriptionInvalid = 2102

	// ErrRoomNotFound indicates the referenced room does not exist.
	ErrRoomNotFound = 2103

	// ErrNotAMember indicates a room-scoped action by a connection or user that has not joined.
	ErrNotAMember = 2105

	// ErrMessageContentInvalid indicates empty or oversized message content.
	ErrMessageContentInvalid = 2201

	// ErrArchiveDisabled indicates that object storage is not configured.
	ErrArchiveDisabled = 2301
)

// 3xxx: identity and authorization
const (
	// ErrUnauthorized indicates a missing, invalid or expired credential,
	// or a realtime action on a connection that has not authenticated.
	ErrUnauthorized = 3001

	// ErrForbidden indicates an authenticated actor that is not the resource's creator.
	ErrForbidden = 3002

	// ErrAlreadyAuthenticated indicates a second auth attempt on an authenticated connection.
	ErrAlreadyAuthenticated = 3003

	// ErrInvalidUsername indicates a username that fails the format rules.
	ErrInvalidUsername = 3101

	// ErrInvalidPassword indicates a password outside the accepted length.
	ErrInvalidPassword = 3102

	// ErrUserAlreadyExists indicates the username is taken.
	ErrUserAlreadyExists = 3103

	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = 3104

	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = 3105
)

// 5xxx: internal
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000

	// ErrStorageFailed indicates the durable store rejected or failed a write.
	ErrStorageFailed = 5001
)
