package ai

// Prompt templates, rendered with ollama.RenderTemplate.

const analyzeJobTemplate = `You are a career advisor comparing a candidate's CV with a job posting.

Job description:
{{.JobDescription}}

Candidate CV:
{{.CV}}

Respond with a single JSON object and nothing else, using exactly these fields:
{
  "company": "hiring company name",
  "role": "job title",
  "matchScore": integer from 0 to 100 estimating how well the candidate fits,
  "requirements": ["key requirements of the job"],
  "matchedSkills": ["requirements the candidate already meets"],
  "gaps": ["requirements the candidate is missing"],
  "summary": "two sentence overview of the fit"
}
If the company or role is not stated, use "Unknown".`

const coverLetterTemplate = `Write a cover letter for the job below on behalf of the candidate.

Job description:
{{.JobDescription}}

Candidate CV:
{{.CV}}

Fit analysis:
Company: {{.Analysis.Company}}
Role: {{.Analysis.Role}}
Match score: {{.Analysis.MatchScore}}/100
Matched skills: {{.Analysis.MatchedSkills}}
Gaps: {{.Analysis.Gaps}}
{{- if .Analysis.Summary}}
Summary: {{.Analysis.Summary}}
{{- end}}

Keep it under 250 words. Lead with the matched skills, address gaps honestly,
and do not invent experience. Return only the letter text.`
