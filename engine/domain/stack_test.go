package domain

import (
	"reflect"
	"testing"
)

func TestSortedCategories(t *testing.T) {
	s := Stack{"frontend": {"React"}, "backend": {"Node.js"}, "database": {"MongoDB"}}
	got := SortedCategories(s)
	want := []string{"backend", "database", "frontend"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTechnologies_FlattensAllCategories(t *testing.T) {
	p := ReferenceProject{Stack: Stack{
		"frontend": {"React", "Redux"},
		"backend":  {"Node.js"},
	}}
	got := p.Technologies()
	want := []string{"Node.js", "React", "Redux"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFlattenConstraints(t *testing.T) {
	got := FlattenConstraints(map[string][]string{
		"frontend": {"Angular", "  "},
		"database": {"MySQL"},
	})
	want := []string{"mysql", "angular"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExcluded(t *testing.T) {
	constraints := []string{"angular", "mysql"}
	tests := []struct {
		tech string
		want bool
	}{
		{"AngularJS", true},
		{"MySQL", true},
		{"React", false},
		{"PostgreSQL", false},
	}
	for _, tt := range tests {
		if got := Excluded(tt.tech, constraints); got != tt.want {
			t.Errorf("Excluded(%q) = %v, want %v", tt.tech, got, tt.want)
		}
	}
}
