package agents

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/futureme-za/futureme/internal/models"
)

func TestEligibilityScore(t *testing.T) {
	tests := []struct {
		name string
		app  models.Application
		want int
	}{
		{
			name: "base score only",
			app:  models.Application{HouseholdIncome: 400000},
			want: 50,
		},
		{
			name: "zero income counts as need",
			app:  models.Application{},
			want: 65,
		},
		{
			name: "citizen with low average",
			app:  models.Application{IsSACitizen: true, AcademicAverage: 50, HouseholdIncome: 400000},
			want: 60,
		},
		{
			name: "mid average adds fifteen",
			app:  models.Application{AcademicAverage: 60, HouseholdIncome: 400000},
			want: 65,
		},
		{
			name: "high average adds twenty",
			app:  models.Application{AcademicAverage: 75, HouseholdIncome: 400000},
			want: 70,
		},
		{
			name: "need based bonus",
			app:  models.Application{HouseholdIncome: 200000},
			want: 65,
		},
		{
			name: "everything caps at one hundred",
			app: models.Application{
				IsSACitizen:     true,
				AcademicAverage: 90,
				HouseholdIncome: 100000,
				FieldOfStudy:    FieldSTEM,
			},
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EligibilityScore(tt.app); got != tt.want {
				t.Errorf("EligibilityScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEligibilityScoreMonotonicInAverage(t *testing.T) {
	prev := 0
	for avg := 0.0; avg <= 100; avg += 5 {
		app := models.Application{IsSACitizen: true, AcademicAverage: avg, HouseholdIncome: 200000}
		score := EligibilityScore(app)
		if score < prev {
			t.Fatalf("score decreased from %d to %d at average %.0f", prev, score, avg)
		}
		if score < 50 || score > 100 {
			t.Fatalf("score %d out of bounds at average %.0f", score, avg)
		}
		prev = score
	}
}

func TestMatchBursaries(t *testing.T) {
	t.Run("STEM with strong academics matches Siemens", func(t *testing.T) {
		matches := MatchBursaries(models.Application{
			FieldOfStudy:    FieldSTEM,
			AcademicAverage: 60,
			HouseholdIncome: 500000,
		})
		if len(matches) != 1 {
			t.Fatalf("expected 1 match, got %d", len(matches))
		}
		if matches[0].Name != "Siemens Bursary" {
			t.Errorf("expected Siemens Bursary, got %s", matches[0].Name)
		}
		if matches[0].MatchScore != 0.92 {
			t.Errorf("expected match score 0.92, got %v", matches[0].MatchScore)
		}
	})

	t.Run("STEM under sixty does not match Siemens", func(t *testing.T) {
		matches := MatchBursaries(models.Application{
			FieldOfStudy:    FieldSTEM,
			AcademicAverage: 59,
			HouseholdIncome: 500000,
		})
		if len(matches) != 0 {
			t.Errorf("expected no matches, got %d", len(matches))
		}
	})

	t.Run("commerce matches regardless of average", func(t *testing.T) {
		matches := MatchBursaries(models.Application{
			FieldOfStudy:    FieldCommerce,
			AcademicAverage: 40,
			HouseholdIncome: 500000,
		})
		if len(matches) != 1 || matches[0].Name != "Momentum Bursary" {
			t.Fatalf("expected Momentum Bursary, got %v", matches)
		}
	})

	t.Run("health sciences needs sixty five", func(t *testing.T) {
		matches := MatchBursaries(models.Application{
			FieldOfStudy:    FieldHealthSciences,
			AcademicAverage: 65,
			HouseholdIncome: 500000,
		})
		if len(matches) != 1 || matches[0].Name != "Metropolitan Health Bursary" {
			t.Fatalf("expected Metropolitan Health Bursary, got %v", matches)
		}
	})

	t.Run("need based fallback when nothing else fires", func(t *testing.T) {
		matches := MatchBursaries(models.Application{
			FieldOfStudy:    FieldHumanities,
			AcademicAverage: 80,
			HouseholdIncome: 200000,
		})
		if len(matches) != 1 || matches[0].Name != "General Financial Aid" {
			t.Fatalf("expected General Financial Aid fallback, got %v", matches)
		}
	})

	t.Run("no fallback when a rule fired", func(t *testing.T) {
		matches := MatchBursaries(models.Application{
			FieldOfStudy:    FieldCommerce,
			HouseholdIncome: 200000,
		})
		if len(matches) != 1 || matches[0].Name != "Momentum Bursary" {
			t.Fatalf("fallback should not apply when a rule matched, got %v", matches)
		}
	})
}

func TestGenerateRef(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ref := GenerateRef(models.Application{FullName: "Thandi Mokoena"}, now)
	pattern := regexp.MustCompile(`^FME-TM-[0-9A-Z]+$`)
	if !pattern.MatchString(ref) {
		t.Errorf("unexpected ref format: %s", ref)
	}

	// No name: initials fall back to the single initial of "USER".
	ref = GenerateRef(models.Application{FullName: "  "}, now)
	if !strings.HasPrefix(ref, "FME-U-") {
		t.Errorf("expected fallback initial, got %s", ref)
	}
}

func TestFormatMatches(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		got := FormatMatches(nil)
		if !strings.Contains(got, "still analyzing") {
			t.Errorf("unexpected empty-list text: %s", got)
		}
	})

	t.Run("numbered list with rounded percentages", func(t *testing.T) {
		got := FormatMatches([]models.BursaryMatch{
			{Name: "Siemens Bursary", MatchScore: 0.92},
			{Name: "General Financial Aid", MatchScore: 0.70},
		})
		if !strings.Contains(got, "1. Siemens Bursary (92% match)") {
			t.Errorf("missing first entry: %s", got)
		}
		if !strings.Contains(got, "2. General Financial Aid (70% match)") {
			t.Errorf("missing second entry: %s", got)
		}
	})
}
