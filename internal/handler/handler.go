// Package handler exposes the lending services over HTTP.
package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/segyhp/lending-engine/pkg/errors"
)

// ActorHeader names the caller recorded in the audit fields.
const ActorHeader = "X-Actor"

const defaultActor = "system"

func actor(r *http.Request) string {
	if a := strings.TrimSpace(r.Header.Get(ActorHeader)); a != "" {
		return a
	}
	return defaultActor
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Validation(errors.ErrCodeInvalidRequest, "Invalid "+name+": "+raw)
	}
	return id, nil
}

// decode reads a JSON body into dst and runs struct validation on it.
func decode(r *http.Request, v *validator.Validate, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Validation(errors.ErrCodeInvalidRequest, "Invalid request body")
	}
	if v == nil {
		return nil
	}
	if err := v.Struct(dst); err != nil {
		return errors.Validation(errors.ErrCodeInvalidRequest, validationMessage(err))
	}
	return nil
}
