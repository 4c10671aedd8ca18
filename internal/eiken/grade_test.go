package eiken

import (
	"reflect"
	"testing"
)

func TestParseGrade(t *testing.T) {
	tests := []struct {
		in   string
		want Grade
	}{
		{"5", Grade5},
		{"pre2", GradePre2},
		{"Pre-2", GradePre2},
		{"p1", GradePre1},
		{"grade3", Grade3},
	}
	for _, tt := range tests {
		got, err := ParseGrade(tt.in)
		if err != nil {
			t.Errorf("ParseGrade(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseGrade(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseGrade("6"); err == nil {
		t.Error("expected error for unknown grade")
	}
}

func TestGradeNeighbors(t *testing.T) {
	tests := []struct {
		grade Grade
		steps int
		want  []Grade
	}{
		{Grade3, 1, []Grade{Grade4, GradePre2}},
		{Grade3, 2, []Grade{Grade4, GradePre2, Grade5, Grade2}},
		{Grade5, 2, []Grade{Grade4, Grade3}},
		{Grade1, 1, []Grade{GradePre1}},
	}
	for _, tt := range tests {
		got := tt.grade.Neighbors(tt.steps)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s.Neighbors(%d) = %v, want %v", tt.grade, tt.steps, got, tt.want)
		}
	}
}

func TestGradeTargets(t *testing.T) {
	if Grade5.TargetCEFR() != A1 {
		t.Errorf("grade 5 target = %v, want A1", Grade5.TargetCEFR())
	}
	if Grade2.TargetCEFR() != B1 {
		t.Errorf("grade 2 target = %v, want B1", Grade2.TargetCEFR())
	}
	if GradePre2.TargetBand() != BandB1_1 {
		t.Errorf("pre2 band = %v, want B1.1", GradePre2.TargetBand())
	}
	if Grade1.TargetBand().String() != "C1" {
		t.Errorf("grade 1 band = %v, want C1", Grade1.TargetBand())
	}
}

func TestQuestionTypeCategory(t *testing.T) {
	if TypeOpinionSpeech.Category() != CategorySpeaking {
		t.Errorf("opinion_speech category = %q", TypeOpinionSpeech.Category())
	}
	if TypeEssay.HasChoices() {
		t.Error("essay should not have choices")
	}
	if _, err := ParseQuestionType("crossword"); err == nil {
		t.Error("expected error for unknown question type")
	}
}

func TestQuestionText(t *testing.T) {
	q := &Question{
		Passage:     "Tom has a dog.",
		Stem:        "What does Tom have?",
		Choices:     []string{"A cat", "A dog"},
		AnswerIndex: 1,
	}
	want := "Tom has a dog.\nWhat does Tom have?\nA cat\nA dog"
	if got := q.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
	if q.CorrectChoice() != "A dog" {
		t.Errorf("CorrectChoice() = %q", q.CorrectChoice())
	}
	q.AnswerIndex = 5
	if q.CorrectChoice() != "" {
		t.Error("out of range index should yield empty choice")
	}
}
