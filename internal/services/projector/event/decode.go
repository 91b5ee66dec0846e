package event

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/louisbranch/courtapps/internal/platform/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(err)
	}
	return v
}

// Decode unmarshals and validates the envelope payload into P. Any failure is
// a MALFORMED_EVENT error. Fields P does not declare are ignored, so
// producers can add fields without consumers rejecting their events.
func Decode[P any](env Envelope) (P, error) {
	var payload P
	metadata := map[string]string{"event_type": string(env.Type), "event_id": env.ID}
	if err := json.Unmarshal(env.PayloadJSON, &payload); err != nil {
		return payload, apperrors.WrapWithMetadata(apperrors.CodeMalformedEvent, "decode "+string(env.Type)+" payload", metadata, err)
	}
	if err := validate.Struct(payload); err != nil {
		return payload, apperrors.WrapWithMetadata(apperrors.CodeMalformedEvent, "validate "+string(env.Type)+" payload", metadata, err)
	}
	return payload, nil
}
