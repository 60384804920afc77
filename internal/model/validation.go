package model

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formwizard/pkg/formschema"
)

var (
	errFormIDMissing = errors.New("model builder: form id is required")
	errFormNoSteps   = errors.New("model builder: form has no steps")
)

func validateForm(form formschema.Form) error {
	if form.ID == "" {
		return errFormIDMissing
	}
	if len(form.Steps) == 0 {
		return fmt.Errorf("%w (form %q)", errFormNoSteps, form.ID)
	}
	for _, step := range form.Steps {
		if len(step.Fields) == 0 {
			return fmt.Errorf("model builder: form %q step %q has no fields", form.ID, step.ID)
		}
	}
	return nil
}
