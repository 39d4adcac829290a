package ai

import (
	"strings"

	"github.com/garnizeh/careerpal/pkg/models"
)

// CVText renders the profile fields of u as the plain-text CV used in prompts.
func CVText(u *models.User) string {
	if u == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("Name: " + u.Name + "\n")
	if u.Location != "" {
		b.WriteString("Location: " + u.Location + "\n")
	}
	if u.Summary != "" {
		b.WriteString("\nSummary:\n" + strings.TrimSpace(u.Summary) + "\n")
	}
	if u.Experience != "" {
		b.WriteString("\nExperience:\n" + strings.TrimSpace(u.Experience) + "\n")
	}
	if len(u.Skills) > 0 {
		b.WriteString("\nSkills: " + strings.Join(u.Skills, ", ") + "\n")
	}

	return strings.TrimSpace(b.String())
}
