package validation

import (
	"errors"
	"testing"
)

func TestLabel(t *testing.T) {
	tests := map[string]string{
		"reservedSince": "reserved since",
		"reservedTill":  "reserved till",
		"email":         "email",
		"password_hash": "password hash",
	}
	for in, want := range tests {
		if got := Label(in); got != want {
			t.Errorf("Label(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestErrorsMessage(t *testing.T) {
	e := New()
	if e.Err() != nil {
		t.Fatal("empty errors should be nil")
	}

	e.Add("reservedSince", "first.")
	if e.Message() != "first." {
		t.Errorf("one message: got %q", e.Message())
	}

	e.Add("reservedTill", "second.")
	if e.Message() != "first. (and 1 more error)" {
		t.Errorf("two messages: got %q", e.Message())
	}

	e.Add("reservedTill", "third.")
	if e.Message() != "first. (and 2 more errors)" {
		t.Errorf("three messages: got %q", e.Message())
	}

	if got := e.FieldNames(); len(got) != 2 || got[0] != "reservedSince" || got[1] != "reservedTill" {
		t.Errorf("field order: got %v", got)
	}
	if len(e.Fields()["reservedTill"]) != 2 {
		t.Errorf("expected 2 messages for reservedTill, got %v", e.Fields()["reservedTill"])
	}
	if e.Err() == nil {
		t.Error("expected non-nil error")
	}
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestValidatorStruct(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name  string
		in    loginInput
		field string
		want  string
	}{
		{"missing email", loginInput{Password: "password"}, "email", "The email field is required."},
		{"invalid email", loginInput{Email: "email", Password: "password"}, "email", "The email must be a valid email address."},
		{"missing password", loginInput{Email: "a@b.com"}, "password", "The password field is required."},
		{"short password", loginInput{Email: "a@b.com", Password: "short"}, "password", "The password must be at least 8 characters."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			var verrs *Errors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected *Errors, got %v", err)
			}
			msgs := verrs.Fields()[tt.field]
			if len(msgs) != 1 || msgs[0] != tt.want {
				t.Errorf("expected [%q], got %v", tt.want, msgs)
			}
			if verrs.Message() != tt.want {
				t.Errorf("summary: got %q", verrs.Message())
			}
		})
	}

	if err := v.Struct(loginInput{Email: "a@b.com", Password: "password"}); err != nil {
		t.Errorf("valid input: %v", err)
	}
}
