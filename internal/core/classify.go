package core

import "strings"

// foodKeywords force the "Food" category when they appear in a remark.
var foodKeywords = []string{"breakfast", "lunch", "dinner", "food", "meal", "snacks"}

// ClassifyCategory returns a category override derived from the remark text,
// or "" when no rule matches. The override is applied before any custom
// category typed by the user, which always wins.
func ClassifyCategory(remark string) string {
	lower := strings.ToLower(remark)
	for _, kw := range foodKeywords {
		if strings.Contains(lower, kw) {
			return "Food"
		}
	}
	return ""
}

// ResolveCategory picks the final category for a new entry: the selected
// category, overridden by the keyword rule, overridden by a non-blank custom
// category.
func ResolveCategory(selected, remark, custom string) string {
	final := selected
	if strings.TrimSpace(final) == "" {
		final = DefaultCategory
	}
	if auto := ClassifyCategory(remark); auto != "" {
		final = auto
	}
	if c := strings.TrimSpace(custom); c != "" {
		final = c
	}
	return final
}
