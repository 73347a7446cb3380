package errs

import "net/http"

// errorMap holds the message and HTTP status of every known code.
var errorMap = map[int]CustomError{
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Invalid JSON format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrUnknownMessageType:   {Code: ErrUnknownMessageType, Message: "Unsupported message type: %s.", Status: http.StatusBadRequest},

	ErrRoomNameInvalid:        {Code: ErrRoomNameInvalid, Message: "Room name must be 1-64 characters.", Status: http.StatusBadRequest},
	ErrRoomDescriptionInvalid: {Code: ErrRoomDescriptionInvalid, Message: "Room description must be at most 512 characters.", Status: http.StatusBadRequest},
	ErrRoomNotFound:           {Code: ErrRoomNotFound, Message: "Room not found.", Status: http.StatusNotFound},
	ErrNotAMember:             {Code: ErrNotAMember, Message: "You are not a member of this room.", Status: http.StatusForbidden},
	ErrMessageContentInvalid:  {Code: ErrMessageContentInvalid, Message: "Message must be between 1 and %d bytes.", Status: http.StatusBadRequest},
	ErrArchiveDisabled:        {Code: ErrArchiveDisabled, Message: "Archiving is not enabled on this server.", Status: http.StatusServiceUnavailable},

	ErrUnauthorized:         {Code: ErrUnauthorized, Message: "Authentication required.", Status: http.StatusUnauthorized},
	ErrForbidden:            {Code: ErrForbidden, Message: "Only the room creator can do that.", Status: http.StatusForbidden},
	ErrAlreadyAuthenticated: {Code: ErrAlreadyAuthenticated, Message: "Connection is already authenticated.", Status: http.StatusConflict},
	ErrInvalidUsername:      {Code: ErrInvalidUsername, Message: "Username must be 3-32 letters, digits or underscores.", Status: http.StatusBadRequest},
	ErrInvalidPassword:      {Code: ErrInvalidPassword, Message: "Password must be 6-72 characters.", Status: http.StatusBadRequest},
	ErrUserAlreadyExists:    {Code: ErrUserAlreadyExists, Message: "Username is already taken.", Status: http.StatusConflict},
	ErrInvalidCredentials:   {Code: ErrInvalidCredentials, Message: "Invalid username or password.", Status: http.StatusUnauthorized},
	ErrUserNotFound:         {Code: ErrUserNotFound, Message: "User not found.", Status: http.StatusNotFound},

	ErrUnknown:       {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStorageFailed: {Code: ErrStorageFailed, Message: "Failed to store data. Please try again.", Status: http.StatusInternalServerError},
}
