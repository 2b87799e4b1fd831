package models

// MasterCategories is the curated set of story categories offered to authors.
var MasterCategories = []string{
	"Personal Narrative",
	"Identity",
	"Gender",
	"LGBTQ+",
	"Migration",
	"Culture",
	"Social Justice",
	"Activism",
	"Poetry",
	"Hindi Literature",
	"Caste",
	"Education",
	"Technology",
	"History",
	"Art",
	"Science",
	"Philosophy",
}
