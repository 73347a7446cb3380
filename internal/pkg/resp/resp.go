/*
Package resp writes the JSON envelope shared by every HTTP endpoint:
{"success":true,"message":...,"data":{...}} on success and
{"success":false,"code":...,"error":...} on failure.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/logx"
)

// JSONResponse is the envelope written by the control plane.
type JSONResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// RespondJSON writes payload with the given status.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logx.Error(err, "Error encoding JSON response", "http_status", httpStatus)
		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(httpStatus)
	_, _ = w.Write(body)
}

// RespondSuccess answers 200 with data.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondStatus(w, r, http.StatusOK, data)
}

// RespondCreated answers 201 with data.
func RespondCreated(w http.ResponseWriter, r *http.Request, data any) {
	RespondStatus(w, r, http.StatusCreated, data)
}

// RespondStatus answers a success envelope with an explicit status.
func RespondStatus(w http.ResponseWriter, r *http.Request, status int, data any) {
	RespondJSON(w, r, status, JSONResponse{
		Success: true,
		Message: "success",
		Data:    data,
	})
}

// RespondError answers with the CustomError's status and message. Any other
// error is reported as ErrUnknown.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	customErr := errs.From(err)
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, r, customErr.Status, JSONResponse{
		Success: false,
		Code:    customErr.Code,
		Error:   customErr.Message,
	})
}
