package company

import (
	"errors"
	"fmt"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme", "Acme"},
		{"  Acme Corp  ", "Acme Corp"},
		{"\tBolt LLC\n", "Bolt LLC"},
		{"Globex  Inc", "Globex  Inc"},
	}
	for _, tt := range tests {
		got, err := NormalizeName(tt.in)
		if err != nil {
			t.Fatalf("NormalizeName(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeName_Blank(t *testing.T) {
	for _, in := range []string{"", " ", "\t\n", "  "} {
		_, err := NormalizeName(in)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("NormalizeName(%q): expected validation error, got %v", in, err)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Input != in {
			t.Errorf("NormalizeName(%q): expected *ValidationError with input, got %#v", in, err)
		}
	}
}

func TestNew(t *testing.T) {
	c, err := New(7, " Initech ")
	if err != nil {
		t.Fatal(err)
	}
	if c.ID != 7 || c.Name != "Initech" {
		t.Errorf("unexpected company %+v", c)
	}
	if _, err := New(8, "   "); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("insert: %w", Persistence("insert company", cause))
	if !errors.Is(err, ErrPersistence) {
		t.Error("expected ErrPersistence match")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be unwrapped")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("persistence error must not match ErrValidation")
	}
	if Persistence("noop", nil) != nil {
		t.Error("expected nil for nil cause")
	}
}

func TestRejectedError(t *testing.T) {
	err := &RejectedError{Name: "test", Rule: "block-placeholder", Message: "placeholder"}
	if !errors.Is(err, ErrRejected) {
		t.Error("expected ErrRejected match")
	}
	want := `company name rejected: "test" by rule block-placeholder: placeholder`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestNotificationText(t *testing.T) {
	title, body := NotificationText("Acme")
	if title != "New Company Added" || body != "Company added: Acme" {
		t.Errorf("unexpected text %q / %q", title, body)
	}
}
