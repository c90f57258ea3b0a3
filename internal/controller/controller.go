// Package controller holds the page-level flows of the storefront. Each
// controller is built from explicit collaborators and returns plain data for
// whatever surface renders it.
package controller

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/api"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

// ErrForbidden is returned by admin flows when the session is not an admin.
// No network call is made in that case.
var ErrForbidden = errors.New("admin access required")

// ValidationError maps json field names to what is wrong with them.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Money fields validate as numbers.
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		if d, ok := f.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// check validates v and translates failures into a *ValidationError.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return fmt.Errorf("failed to validate input: %w", err)
	}

	out := &ValidationError{Fields: make(map[string]string, len(vErrs))}
	for _, vErr := range vErrs {
		switch vErr.Tag() {
		case "required":
			out.Fields[vErr.Field()] = "value missing"
		case "min", "gte":
			out.Fields[vErr.Field()] = "must be at least " + vErr.Param()
		case "email":
			out.Fields[vErr.Field()] = "must be a valid email address"
		case "url":
			out.Fields[vErr.Field()] = "must be a valid URL"
		case "oneof":
			out.Fields[vErr.Field()] = "must be one of " + vErr.Param()
		default:
			out.Fields[vErr.Field()] = "is invalid"
		}
	}
	return out
}

// envelopeOf decodes a call result; it takes the call's two return values
// directly.
func envelopeOf(resp *api.Response, err error) (api.Envelope, error) {
	if err != nil {
		return api.Envelope{}, err
	}
	return resp.Envelope()
}

// adminOnly returns the session user when it is an admin.
func adminOnly(session *service.SessionStore) (*entity.User, error) {
	u := session.Current()
	if u == nil || !u.IsAdmin {
		return nil, ErrForbidden
	}
	return u, nil
}

func notify(n service.Notifier, notice service.Notice) {
	if n != nil {
		n.Notify(notice)
	}
}

func nonNilProducts(p []entity.Product) []entity.Product {
	if p == nil {
		return []entity.Product{}
	}
	return p
}

func nonNilOrders(o []entity.Order) []entity.Order {
	if o == nil {
		return []entity.Order{}
	}
	return o
}

func nonNilUsers(u []entity.User) []entity.User {
	if u == nil {
		return []entity.User{}
	}
	return u
}
