package similarity

import (
	"testing"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		s1       string
		s2       string
		minScore float64
	}{
		{name: "Identical strings", s1: "The Matrix", s2: "The Matrix", minScore: 1.0},
		{name: "Case insensitive", s1: "The Matrix", s2: "the matrix", minScore: 1.0},
		{name: "Dots vs spaces", s1: "The.Matrix", s2: "The Matrix", minScore: 1.0},
		{name: "Accents folded", s1: "Amélie", s2: "Amelie", minScore: 1.0},
		{name: "Ampersand vs and", s1: "Law & Order", s2: "Law and Order", minScore: 1.0},
		{name: "One typo", s1: "Inceptoin", s2: "Inception", minScore: 0.75},
		{name: "Different strings", s1: "The Matrix", s2: "Inception", minScore: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := Similarity(tt.s1, tt.s2)
			if tt.minScore == 1.0 && score != 1.0 {
				t.Errorf("Expected exact match (1.0), got %.2f", score)
			} else if score < tt.minScore {
				t.Errorf("Expected score >= %.2f, got %.2f", tt.minScore, score)
			}
		})
	}
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		expected string
		release  string
		want     bool
	}{
		{"The Matrix", "The.Matrix.1999.1080p.BluRay.x264", true},
		{"Spider-Man", "Spider Man No Way Home 2021 2160p", true},
		{"Amélie", "Amelie.2001.720p.BluRay", true},
		{"Inception", "Interstellar 2014 1080p", false},
		{"The Matrix", "Matrix Reloaded", false},
		{"", "Anything", true},
		{"Inception", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.expected+"/"+tt.release, func(t *testing.T) {
			if got := Relevant(tt.expected, tt.release); got != tt.want {
				t.Errorf("Relevant(%q, %q) = %v, want %v", tt.expected, tt.release, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"The.Matrix", "the matrix"},
		{"The_Matrix", "the matrix"},
		{"The Matrix (1999)", "the matrix 1999"},
		{"Me, MYSELF & I", "me myself and i"},
		{"Pokémon", "pokemon"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := normalize(tt.input); result != tt.expected {
				t.Errorf("normalize(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
