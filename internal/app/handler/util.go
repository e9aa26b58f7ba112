package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"

	"bidmarket/internal/app/apperr"
	"bidmarket/internal/app/model"

	"github.com/go-playground/validator/v10"
)

// readBody into json struct
func readBody(r *http.Request, v interface{}) error {
	body, err := ioutil.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		return fmt.Errorf("body read: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

type jsonError struct {
	Message string `json:"error"`
}

// WriteError formatted in json
func WriteError(w http.ResponseWriter, err error, statusCode int) {
	WriteResponse(w, &jsonError{Message: err.Error()}, statusCode)
}

// WriteResponse formatted in json
func WriteResponse(w http.ResponseWriter, v interface{}, statusCode int) {
	resBody, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(resBody)
}

type ValidationErrorResponse struct {
	Errors ValidationErrors `json:"errors"`
}

type ValidationErrors []ValidationError

type ValidationError struct {
	Msg   string `json:"msg"`
	Param string `json:"param"`
	Value string `json:"value"`
}

// validateData and send errors, returns true if no validation errors
func validateData(w http.ResponseWriter, v interface{}) bool {
	validate := validator.New()
	err := validate.Struct(v)
	if err != nil {
		errs := make(ValidationErrors, 0)
		for _, err := range err.(validator.ValidationErrors) {
			errs = append(errs, ValidationError{
				Msg:   err.Error(),
				Param: err.Field(),
				Value: fmt.Sprintf("%v", err.Value()),
			})
		}
		writeValidationErrors(w, errs)
		return false
	}

	return true
}

// writeValidationErrors formatted in json
func writeValidationErrors(w http.ResponseWriter, errs ValidationErrors) {
	WriteResponse(w, ValidationErrorResponse{errs}, http.StatusBadRequest)
}

type ContextKeyUser struct{}

func ReadContextUser(ctx context.Context) (*model.User, error) {
	v := ctx.Value(ContextKeyUser{})
	if user, ok := v.(*model.User); ok {
		return user, nil
	}

	return nil, apperr.ErrUnauthorized
}

// clientIP prefers the X-Forwarded-For chain head, falling back to RemoteAddr.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host := r.RemoteAddr
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			return host[:i]
		}
	}
	return host
}
