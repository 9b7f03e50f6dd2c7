package handler

import (
    "fmt"
    "reflect"
    "regexp"
    "strings"
    "unicode"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"
)

var roomCodePattern = regexp.MustCompile(`^room_type_[1-9][0-9]*$`)

// Validator adapts go-playground/validator to echo.Validator.  Besides the
// built-in tags it knows "roomcode" (room_type_<n>, n >= 1).
type Validator struct {
    v *validator.Validate
}

func NewValidator() *Validator {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    _ = v.RegisterValidation("roomcode", func(fl validator.FieldLevel) bool {
        return roomCodePattern.MatchString(fl.Field().String())
    })
    return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
    if err := cv.v.Struct(i); err != nil {
        return badRequest(describe(err))
    }
    return nil
}

// bindAndValidate decodes the request body into dst and validates it.
func bindAndValidate(c echo.Context, dst any) error {
    if err := c.Bind(dst); err != nil {
        return badRequest("Invalid request body")
    }
    return c.Validate(dst)
}

func describe(err error) string {
    verrs, isValidation := err.(validator.ValidationErrors)
    if !isValidation || len(verrs) == 0 {
        return "Invalid request"
    }
    fe := verrs[0]
    field := fe.Field()
    switch fe.Tag() {
    case "required":
        return field + " is required"
    case "email":
        return field + " must be a valid email"
    case "roomcode":
        return field + " must match room_type_<number>"
    case "min":
        return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
    case "max":
        return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
    case "gt":
        return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
    case "gte":
        return fmt.Sprintf("%s must be at least %s", field, fe.Param())
    case "lte":
        return fmt.Sprintf("%s must be at most %s", field, fe.Param())
    case "ltefield":
        return fmt.Sprintf("%s cannot exceed %s", field, snake(fe.Param()))
    case "oneof":
        return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
    }
    return field + " is invalid"
}

// snake converts a Go field name (TotalRooms) to its json form (total_rooms).
func snake(s string) string {
    var sb strings.Builder
    for i, r := range s {
        if unicode.IsUpper(r) {
            if i > 0 {
                sb.WriteByte('_')
            }
            r = unicode.ToLower(r)
        }
        sb.WriteRune(r)
    }
    return sb.String()
}
