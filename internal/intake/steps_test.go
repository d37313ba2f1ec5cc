package intake

import (
	"strings"
	"testing"
)

func TestDefaultSteps_Valid(t *testing.T) {
	steps := DefaultSteps()
	if err := ValidateSteps(steps); err != nil {
		t.Fatalf("default steps invalid: %v", err)
	}
	if len(steps) != 7 {
		t.Errorf("expected 7 steps, got %d", len(steps))
	}
	for i, s := range steps {
		if s.Key != Fields[i] {
			t.Errorf("step %d: expected key %s, got %s", i, Fields[i], s.Key)
		}
	}
}

func TestDefaultSteps_AgePromptEchoesName(t *testing.T) {
	got := DefaultSteps()[1].Prompt(Answers{FieldName: "ケンジ"})
	if !strings.HasPrefix(got, "ケンジさん") {
		t.Errorf("expected prompt to address the applicant, got %q", got)
	}
}

func TestValidateSteps(t *testing.T) {
	prompt := Text("q")
	tests := []struct {
		name    string
		steps   []Step
		wantErr string
	}{
		{"empty", nil, "empty"},
		{"unknown field", []Step{{Key: "email", Prompt: prompt, Kind: KindFreeText}}, "unknown field"},
		{"duplicate field", []Step{
			{Key: FieldName, Prompt: prompt, Kind: KindFreeText},
			{Key: FieldName, Prompt: prompt, Kind: KindFreeText},
		}, "answered twice"},
		{"missing prompt", []Step{{Key: FieldName, Kind: KindFreeText}}, "missing prompt"},
		{"free text with choices", []Step{
			{Key: FieldName, Prompt: prompt, Kind: KindFreeText, Choices: []Choice{{"a", "a"}}},
		}, "must not offer"},
		{"choice without choices", []Step{{Key: FieldGender, Prompt: prompt, Kind: KindChoice}}, "at least one"},
		{"duplicate choice value", []Step{
			{Key: FieldGender, Prompt: prompt, Kind: KindChoice, Choices: []Choice{{"A", "x"}, {"B", "x"}}},
		}, "duplicate choice"},
		{"unknown kind", []Step{{Key: FieldName, Prompt: prompt, Kind: "slider"}}, "unknown kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSteps(tt.steps)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
