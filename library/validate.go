package library

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const msgRequired = "is required"

// bookRequest identifies a book by title and author.
type bookRequest struct {
	Title  string `json:"title" validate:"required,max=512"`
	Author string `json:"author" validate:"required,max=512"`
}

// loanRequest identifies a book and the borrower holding it.
type loanRequest struct {
	Title    string `json:"title" validate:"required,max=512"`
	Author   string `json:"author" validate:"required,max=512"`
	Borrower string `json:"borrower" validate:"required,max=512"`
}

// borrowerRequest is the input of ListBorrowed.
type borrowerRequest struct {
	Borrower string `json:"borrower" validate:"required,max=512"`
}

type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New()

	// Report fields by their json name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &requestValidator{v: v}
}

func (rv *requestValidator) validate(req any) error {
	err := rv.v.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	ve := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		ve.Fields[fe.Field()] = friendlyMessage(fe)
	}
	return ve
}

func friendlyMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "max":
		return fmt.Sprintf("must not exceed %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
