package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type testPayload struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	SenderID    string `json:"sender_id" validate:"required"`
	Limit       int    `json:"limit" validate:"gte=1,lte=100"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := testPayload{
		RecipientID: "user-1",
		SenderID:    "user-2",
		Limit:       10,
	}

	if err := ValidateStruct(payload); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	payload := testPayload{
		RecipientID: "",
		SenderID:    "",
		Limit:       500,
	}

	err := ValidateStruct(payload)
	if err == nil {
		t.Fatal("expected validation error")
	}

	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	if len(vErrs) != 3 {
		t.Fatalf("expected 3 validation errors, got %d", len(vErrs))
	}

	foundRecipient := false
	for _, v := range vErrs {
		if v.Field == "recipient_id" {
			foundRecipient = true
		}
	}

	if !foundRecipient {
		t.Fatal("expected recipient_id field to be present in validation errors")
	}
}

func TestFieldNameFallsBackToFormTag(t *testing.T) {
	type query struct {
		SortBy string `form:"sortBy" validate:"required"`
	}

	err := ValidateStruct(query{})
	if err == nil {
		t.Fatal("expected validation error")
	}

	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(vErrs) != 1 {
		t.Fatalf("expected 1 validation error, got %d", len(vErrs))
	}
	if vErrs[0].Field != "sortBy" {
		t.Fatalf("expected field name from form tag, got %q", vErrs[0].Field)
	}
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("waveline", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "waveline"
	})
	if err != nil {
		t.Fatalf("register validation: %v", err)
	}

	type custom struct {
		Value string `validate:"waveline"`
	}

	if err := ValidateStruct(custom{Value: "waveline"}); err != nil {
		t.Fatalf("expected validation to pass, got %v", err)
	}
	if err := ValidateStruct(custom{Value: "other"}); err == nil {
		t.Fatal("expected validation to fail for non-matching value")
	}
}
