package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/standardbeagle/estimator/internal/dataservice"
)

const maxBodyBytes = 1 << 20

// reply writes data in a success envelope, or err as failure data.
func (s *Server) reply(w http.ResponseWriter, r *http.Request, data interface{}, err error) {
	if err == nil {
		writeData(w, http.StatusOK, data)
		return
	}

	var failure *dataservice.Failure
	if errors.As(err, &failure) {
		writeFailure(w, statusFor(failure.Data), failure.Data)
		return
	}

	status := http.StatusInternalServerError
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	s.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeFailure(w, status, dataservice.ErrorData{Message: err.Error()})
}

func statusFor(data dataservice.ErrorData) int {
	switch {
	case data.Duplicate, data.PrimaryConflict:
		return http.StatusConflict
	case data.NotFound:
		return http.StatusNotFound
	case data.Invalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	resp := dataservice.Response{Success: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			writeFailure(w, http.StatusInternalServerError, dataservice.ErrorData{Message: "encode response: " + err.Error()})
			return
		}
		resp.Data = raw
	}
	writeJSON(w, status, resp)
}

func writeFailure(w http.ResponseWriter, status int, data dataservice.ErrorData) {
	raw, _ := json.Marshal(data)
	writeJSON(w, status, dataservice.Response{Success: false, Data: raw})
}

func writeJSON(w http.ResponseWriter, status int, resp dataservice.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// decode reads a JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeFailure(w, http.StatusBadRequest, dataservice.ErrorData{Invalid: true, Message: "invalid request body: " + err.Error()})
		return false
	}
	return true
}
