package validation

import (
	"errors"
	"strings"
	"testing"
)

type payload struct {
	Kind string `json:"kind" validate:"required,oneof=a b"`
	Text string `json:"text,omitempty" validate:"max=3"`
}

func TestStruct(t *testing.T) {
	v := New()

	if err := v.Struct(payload{Kind: "a", Text: "abc"}); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}

	err := v.Struct(payload{Kind: "c", Text: "abcd"})
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("expected 2 field errors, got %+v", verr.Fields)
	}
	if verr.Fields[0].Field != "kind" || verr.Fields[1].Field != "text" {
		t.Errorf("expected json field names, got %+v", verr.Fields)
	}
	if !strings.Contains(err.Error(), "kind") {
		t.Errorf("error message should mention the field: %v", err)
	}
}
