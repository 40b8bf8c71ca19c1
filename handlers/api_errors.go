package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gestao-virtual/gvbackend/services"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// WriteServiceError translates service-layer errors into the standardized
// error envelope. Unknown errors become a 500 without leaking the message.
func WriteServiceError(w http.ResponseWriter, err error) {
	var notFound *services.NotFoundError
	if errors.As(err, &notFound) {
		WriteAPIError(w, http.StatusNotFound, "not_found", notFound.Error())
		return
	}
	var badRequest *services.BadRequestError
	if errors.As(err, &badRequest) {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", badRequest.Error())
		return
	}
	WriteAPIError(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
}
