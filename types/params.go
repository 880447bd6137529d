package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

type SubmitLinkParams struct {
	URL         string   `json:"url" validate:"required,url"`
	Title       string   `json:"title" validate:"omitempty,max=512"`
	Description string   `json:"description" validate:"omitempty,max=2048"`
	Tags        []string `json:"tags" validate:"omitempty,max=32,dive,max=64"`
}

type SearchParams struct {
	Query     string   `json:"query" validate:"required"`
	Limit     int      `json:"limit" validate:"omitempty,min=1,max=100"`
	Threshold *float64 `json:"threshold" validate:"omitempty,min=0,max=1"`
}

func (params *SubmitLinkParams) Validate() map[string]string {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

func (params *SearchParams) Validate() map[string]string {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}
