package models

import "fmt"

// Category is one of the five fixed rating dimensions. Keeping this as an
// enumerated tag (instead of free-text strings from the DB) means a typo'd
// category fails loudly instead of silently dropping out of an average.
type Category string

const (
	CategoryCourse     Category = "course_effectiveness"
	CategoryTeaching   Category = "teaching_effectiveness"
	CategoryResources  Category = "resources_admin"
	CategoryAssessment Category = "assessment_learning"
	CategoryOutcomes   Category = "course_outcomes"
)

// AllCategories lists every category in report display order.
var AllCategories = []Category{
	CategoryCourse,
	CategoryTeaching,
	CategoryResources,
	CategoryAssessment,
	CategoryOutcomes,
}

func ParseCategory(s string) (Category, error) {
	for _, c := range AllCategories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}
