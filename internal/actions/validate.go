package actions

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"smartexpense/internal/core"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// messages holds per field and tag overrides, keyed "field.tag".
var messages = map[string]string{
	"id.required":            "ID inválido",
	"id.uuid":                "ID inválido",
	"category_id.required":   "Categoría inválida",
	"category_id.uuid":       "Categoría inválida",
	"description.max":        "La descripción no puede exceder 200 caracteres",
	"amount.required":        "El monto debe ser un número",
	"amount.amount":          "El monto debe ser un número",
	"amount.amount_positive": "El monto debe ser mayor a 0",
	"amount.amount_max":      "El monto excede el límite permitido",
	"currency.required":      "Código de moneda inválido (debe ser 3 caracteres, ej: USD)",
	"currency.len":           "Código de moneda inválido (debe ser 3 caracteres, ej: USD)",
	"currency.currency":      "Moneda no soportada",
	"base_currency.required": "Código de moneda inválido",
	"base_currency.len":      "Código de moneda inválido",
	"base_currency.currency": "Moneda no soportada",
	"expense_date.required":  "La fecha es obligatoria",
	"expense_date.isodate":   "Formato de fecha inválido (YYYY-MM-DD)",
	"name.required":          "El nombre es obligatorio",
	"name.max":               "El nombre no puede exceder 50 caracteres",
	"icon.required":          "El ícono es obligatorio",
	"icon.max":               "Ícono demasiado largo",
	"color.required":         "Color hexadecimal inválido (ej: #FF5733)",
	"color.rgbhex":           "Color hexadecimal inválido (ej: #FF5733)",
	"display_name.required":  "El nombre debe tener al menos 2 caracteres",
	"display_name.min":       "El nombre debe tener al menos 2 caracteres",
	"display_name.max":       "El nombre no puede exceder 50 caracteres",
	"name.event_name":        "Evento no permitido",
	"context.event_context":  "Contexto no permitido",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// registration only fails for empty tags or nil funcs
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, err := core.ParseAmount(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("amount_positive", func(fl validator.FieldLevel) bool {
		d, err := core.ParseAmount(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	_ = v.RegisterValidation("amount_max", func(fl validator.FieldLevel) bool {
		d, err := core.ParseAmount(fl.Field().String())
		return err == nil && !d.GreaterThan(core.MaxAmount)
	})
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return core.IsSupportedCurrency(fl.Field().String())
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := core.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("rgbhex", func(fl validator.FieldLevel) bool {
		return hexColor.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("event_name", func(fl validator.FieldLevel) bool {
		return core.IsProductEventName(fl.Field().String())
	})
	_ = v.RegisterValidation("event_context", func(fl validator.FieldLevel) bool {
		return core.IsProductEventContext(fl.Field().String())
	})
	return v
}

// check validates input and returns nil when every field passes.
func (a *Actions) check(input any) FieldErrors {
	err := a.validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"_": {"Datos inválidos"}}
	}

	fields := FieldErrors{}
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], fieldMessage(fe))
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required":
		return "Este campo es obligatorio"
	case "max":
		return "Valor demasiado largo"
	case "min":
		return "Valor demasiado corto"
	case "uuid":
		return "Identificador inválido"
	default:
		return "Valor inválido"
	}
}

// Amount accepts either a JSON number or a JSON string such as "12,50".
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = Amount(n.String())
	return nil
}
