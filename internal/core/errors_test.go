package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := (&DomainError{
		Category: ErrCatConfiguration,
		Code:     "CODE",
		Message:  "message",
	}).WithCause(cause)

	if err.Unwrap() != cause {
		t.Fatalf("expected cause to be unwrapped")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to match cause")
	}

	match := &DomainError{Category: ErrCatConfiguration, Code: "CODE"}
	if !errors.Is(err, match) {
		t.Fatalf("expected errors.Is to match category and code")
	}
	if !strings.Contains(err.Error(), "root") {
		t.Fatalf("Error() = %q, want cause included", err.Error())
	}
}

func TestErrorFactories(t *testing.T) {
	if ErrValidation("C", "m").Retryable {
		t.Fatalf("validation should not be retryable")
	}
	if ErrConfiguration("C", "m").Retryable {
		t.Fatalf("configuration should not be retryable")
	}
	if !ErrExecution("C", "m").Retryable {
		t.Fatalf("execution should be retryable")
	}
	if !ErrTimeout("m").Retryable {
		t.Fatalf("timeout should be retryable")
	}
	if ErrNotFound("agent", "x").Retryable {
		t.Fatalf("not found should not be retryable")
	}
}

func TestErrConfiguration_MessageCarriesKeyword(t *testing.T) {
	err := ErrConfiguration(CodeNoExecutable, "no executable for agent claude")
	if !strings.HasPrefix(err.Message, "invalid configuration: ") {
		t.Errorf("Message = %q, want invalid configuration prefix", err.Message)
	}
}

func TestErrTemplateNotFound(t *testing.T) {
	err := ErrTemplateNotFound("email")
	if err.Code != CodeTemplateNotFound {
		t.Errorf("Code = %q", err.Code)
	}
	if err.Category != ErrCatConfiguration {
		t.Errorf("Category = %q, want configuration", err.Category)
	}
	if !strings.Contains(err.Message, "Template not found") {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestGetCategory(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"domain", ErrTimeout("late"), ErrCatTimeout},
		{"wrapped domain", fmt.Errorf("ctx: %w", ErrNotFound("agent", "x")), ErrCatNotFound},
		{"categorized", &CategorizedError{Category: ErrCatNetwork}, ErrCatNetwork},
		{"plain", errors.New("boom"), ErrCatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCategory(tt.err); got != tt.want {
				t.Errorf("GetCategory() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&CategorizedError{Recoverable: true}) {
		t.Error("recoverable categorized error should be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}

func TestCategorizedError_Error(t *testing.T) {
	err := &CategorizedError{Title: "Request Timed Out", OriginalMessage: "timed out"}
	if err.Error() != "Request Timed Out: timed out" {
		t.Errorf("Error() = %q", err.Error())
	}
	bare := &CategorizedError{Title: "Unknown Error"}
	if bare.Error() != "Unknown Error" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestVariantList_UpsertReplacesInPlace(t *testing.T) {
	list := VariantList{
		{ID: "a", Content: "first", Index: 0},
		{ID: "placeholder", Index: 1},
	}

	list = list.Upsert(FormattingVariant{ID: "placeholder", Content: "answer", Index: 1})

	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[1].Content != "answer" {
		t.Errorf("list[1].Content = %q, want answer", list[1].Content)
	}

	list = list.Upsert(FormattingVariant{ID: "new", Content: "x"})
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3 after appending a new id", len(list))
	}
	if _, ok := list.Find("new"); !ok {
		t.Error("Find(new) should succeed")
	}
}

func TestFormattingVariant_IsPlaceholder(t *testing.T) {
	if !(FormattingVariant{ID: "p"}).IsPlaceholder() {
		t.Error("empty variant should be a placeholder")
	}
	if (FormattingVariant{ID: "p", Error: &CategorizedError{}}).IsPlaceholder() {
		t.Error("error variant is not a placeholder")
	}
}

func TestCommandSpec_String(t *testing.T) {
	spec := CommandSpec{Executable: "claude", Args: []string{"-p", "--model", "m"}}
	if spec.String() != "claude -p --model m" {
		t.Errorf("String() = %q", spec.String())
	}
	if (CommandSpec{Executable: "x"}).String() != "x" {
		t.Error("no-arg spec should render executable only")
	}
}
