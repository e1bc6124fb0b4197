package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"matchday-service/pkg/common"
	"matchday-service/pkg/matchclock"
)

const maxBodyBytes = 1 << 20

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}

// respondError 把错误映射到状态码, 内部错误不暴露细节
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := map[string]interface{}{"success": false}

	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		body["error"] = "validation failed"
		body["fields"] = verr.Fields
	case status == http.StatusInternalServerError:
		s.logger.Error("Request failed: %v", err)
		body["error"] = "internal error"
	default:
		body["error"] = err.Error()
	}

	s.respondJSON(w, status, body)
}

func statusFor(err error) int {
	var invalid *matchclock.InvalidActionError
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &invalid), errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrConflict), errors.Is(err, matchclock.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// decodeBody 解析请求体, 空 body 时 allowEmpty 决定是否报错
func decodeBody(r *http.Request, dst interface{}, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return fmt.Errorf("invalid request body: %v: %w", err, common.ErrInvalidInput)
	}
	return nil
}

// queryInt 读取非负整数参数, 缺省返回 0
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer: %w", name, common.ErrInvalidInput)
	}
	return v, nil
}
