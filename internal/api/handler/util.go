package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/austrobank/interswitch/internal/api/middleware"
	"github.com/austrobank/interswitch/internal/api/problem"
	"github.com/austrobank/interswitch/internal/auth"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

// decodeJSON parses the request body into dst and checks struct tags.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errors.New("invalid field: " + strings.ToLower(verrs[0].Field()))
		}
		return errors.New("invalid request body")
	}
	return nil
}

func caller(r *http.Request) (auth.Identity, error) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok || id.Subject == "" {
		return auth.Identity{}, errors.New("missing identity in auth context")
	}
	return id, nil
}
