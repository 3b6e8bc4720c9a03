package models

import "fmt"

// Category identifies the kind of document an upload slot accepts.
type Category string

const (
	CategorySchedule Category = "schedule"
	CategorySyllabus Category = "syllabus"
	CategoryTemplate Category = "template"
)

// Categories lists all known upload categories.
var Categories = []Category{CategorySchedule, CategorySyllabus, CategoryTemplate}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategorySchedule, CategorySyllabus, CategoryTemplate:
		return true
	}
	return false
}

// ParseCategory converts a string into a Category, rejecting unknown values.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category: %q", s)
	}
	return c, nil
}
