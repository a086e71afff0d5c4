package fixture

import (
	"strings"
)

type Article struct {
	Slug  string
	Title string
	Blurb string
}

// Articles is the searchable content of the replica site.
var Articles = []Article{
	{
		Slug:  "employee-education-2018",
		Title: "Employee Education in 2018: Strategies to Watch",
		Blurb: "How employers are rethinking tuition assistance and upskilling.",
	},
	{
		Slug:  "back-up-care-roi",
		Title: "The Return on Investment of Back-Up Care",
		Blurb: "Reliable care keeps working parents on the job.",
	},
	{
		Slug:  "early-education-curriculum",
		Title: "Inside Our Early Education Curriculum",
		Blurb: "Learning through play from infancy to kindergarten.",
	},
	{
		Slug:  "education-advising",
		Title: "Why Education Advising Matters for Adult Learners",
		Blurb: "Guidance that turns tuition dollars into completed degrees.",
	},
}

// FooterColumns are the footer sections rendered on every page.
var FooterColumns = []FooterColumn{
	{Title: "Child Care and Early Education", Links: []string{"Find a Center", "Our Approach", "Tuition"}},
	{Title: "Employer Solutions for Families", Links: []string{"Back-Up Care", "Elder Care", "Family Supports"}},
	{Title: "Education and Workforce Development", Links: []string{"EdAssist", "Tuition Assistance", "College Coach"}},
	{Title: "About Bright Horizons Family Solutions", Links: []string{"Careers", "Newsroom", "Investor Relations"}},
}

type FooterColumn struct {
	Title string
	Links []string
}

// Search returns the articles whose title or blurb contains every word of
// query, case-insensitively. Exact title matches sort first.
func Search(query string) []Article {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil
	}

	var exact, partial []Article
	for _, a := range Articles {
		hay := strings.ToLower(a.Title + " " + a.Blurb)
		if !containsAll(hay, words) {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(query), a.Title) {
			exact = append(exact, a)
		} else {
			partial = append(partial, a)
		}
	}
	return append(exact, partial...)
}

func containsAll(hay string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(hay, w) {
			return false
		}
	}
	return true
}
