// Package intake implements the scripted applicant conversation: a fixed
// list of question steps walked strictly forward, with one terminal insert.
package intake

import (
	"errors"
	"fmt"
)

// Field identifies one answer slot of the intake record.
type Field string

const (
	FieldName         Field = "name"
	FieldAge          Field = "age"
	FieldGender       Field = "gender"
	FieldHasLicense   Field = "has_license"
	FieldArea         Field = "area"
	FieldMoveInTiming Field = "move_in_timing"
	FieldContact      Field = "contact"
)

// Fields is the closed set of answer fields in record order.
var Fields = []Field{
	FieldName,
	FieldAge,
	FieldGender,
	FieldHasLicense,
	FieldArea,
	FieldMoveInTiming,
	FieldContact,
}

func knownField(f Field) bool {
	for _, k := range Fields {
		if k == f {
			return true
		}
	}
	return false
}

// StepKind is the expected answer shape of a step.
type StepKind string

const (
	KindFreeText StepKind = "free_text"
	KindChoice   StepKind = "choice"
)

// Choice is one selectable answer of a choice step.
type Choice struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Step is one question in the script.
type Step struct {
	Key         Field
	Prompt      func(Answers) string
	Kind        StepKind
	Choices     []Choice
	Placeholder string

	// Format renders the user's answer for the transcript. Nil means verbatim.
	Format func(string) string
}

// Text returns a prompt function for a fixed prompt.
func Text(s string) func(Answers) string {
	return func(Answers) string { return s }
}

func (s Step) display(value string) string {
	if s.Format != nil {
		return s.Format(value)
	}
	return value
}

func (s Step) offers(value string) bool {
	for _, c := range s.Choices {
		if c.Value == value {
			return true
		}
	}
	return false
}

var errNoSteps = errors.New("step list is empty")

// ValidateSteps checks a step list before a controller is built on it.
func ValidateSteps(steps []Step) error {
	if len(steps) == 0 {
		return errNoSteps
	}

	seen := make(map[Field]bool, len(steps))
	for i, s := range steps {
		if !knownField(s.Key) {
			return fmt.Errorf("step %d: unknown field %q", i, s.Key)
		}
		if seen[s.Key] {
			return fmt.Errorf("step %d: field %q answered twice", i, s.Key)
		}
		seen[s.Key] = true

		if s.Prompt == nil {
			return fmt.Errorf("step %d: missing prompt", i)
		}

		switch s.Kind {
		case KindFreeText:
			if len(s.Choices) > 0 {
				return fmt.Errorf("step %d: free text step must not offer choices", i)
			}
		case KindChoice:
			if len(s.Choices) == 0 {
				return fmt.Errorf("step %d: choice step needs at least one choice", i)
			}
			values := make(map[string]bool, len(s.Choices))
			for _, c := range s.Choices {
				if values[c.Value] {
					return fmt.Errorf("step %d: duplicate choice value %q", i, c.Value)
				}
				values[c.Value] = true
			}
		default:
			return fmt.Errorf("step %d: unknown kind %q", i, s.Kind)
		}
	}
	return nil
}

// DefaultSteps returns the delivery-driver recruitment script.
func DefaultSteps() []Step {
	return []Step{
		{
			Key:         FieldName,
			Prompt:      Text("はじめまして！\nまず、お名前かニックネームを教えてください。"),
			Kind:        KindFreeText,
			Placeholder: "例：ケンジ、田中、なんでもOK",
		},
		{
			Key: FieldAge,
			Prompt: func(a Answers) string {
				return fmt.Sprintf("%sさん、よろしくお願いします！\n年齢を教えてください。", a[FieldName])
			},
			Kind:        KindFreeText,
			Placeholder: "例：28",
			Format:      func(v string) string { return v + "歳" },
		},
		{
			Key:    FieldGender,
			Prompt: Text("性別を教えてください。"),
			Kind:   KindChoice,
			Choices: []Choice{
				{Label: "男性", Value: "男性"},
				{Label: "女性", Value: "女性"},
				{Label: "回答しない", Value: "回答しない"},
			},
		},
		{
			Key:    FieldHasLicense,
			Prompt: Text("普通自動車免許はお持ちですか？"),
			Kind:   KindChoice,
			Choices: []Choice{
				{Label: "はい（AT限定も可）", Value: "あり"},
				{Label: "いいえ / 取得予定", Value: "なし・取得予定"},
			},
		},
		{
			Key:    FieldArea,
			Prompt: Text("希望の勤務・居住エリアを教えてください。"),
			Kind:   KindChoice,
			Choices: []Choice{
				{Label: "西船橋エリア", Value: "西船橋"},
				{Label: "船橋・津田沼", Value: "船橋・津田沼"},
				{Label: "東京方面", Value: "東京方面"},
				{Label: "どこでも可", Value: "どこでも可"},
			},
		},
		{
			Key:    FieldMoveInTiming,
			Prompt: Text("いつ頃から入居・お仕事を開始できますか？"),
			Kind:   KindChoice,
			Choices: []Choice{
				{Label: "今すぐ（今週中）", Value: "今すぐ"},
				{Label: "1〜2週間以内", Value: "1〜2週間以内"},
				{Label: "今月中", Value: "今月中"},
				{Label: "来月以降", Value: "来月以降"},
			},
		},
		{
			Key:         FieldContact,
			Prompt:      Text("ありがとうございます！\n最後に、LINE IDか電話番号を教えてください。\n担当者から直接ご連絡します。"),
			Kind:        KindFreeText,
			Placeholder: "LINE ID または 090-XXXX-XXXX",
		},
	}
}
