package scoring

import (
	"fmt"
	"strings"
	"text/template"
)

var promptTemplate = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"list": func(items []string) string {
		if len(items) == 0 {
			return "none given"
		}
		return strings.Join(items, ", ")
	},
}).Parse(`You are an expert literary analyst helping one reader decide whether a book suits them.

BOOK
Title: {{.Book.Title}}
Authors: {{list .Book.Authors}}
Description: {{.Book.Description}}{{if .Truncated}}...{{end}}

READING HISTORY (books this reader finished, most recent first, rated 1 to 5)
{{- if .ReadingHistory}}
{{- range .ReadingHistory}}
- "{{.Title}}": {{.UserRating}}/5
{{- end}}
{{- else}}
No rated books yet.
{{- end}}

DECLARED PREFERENCES
Favorite genres: {{list .UserPreferences.FavoriteGenres}}
Favorite authors: {{list .UserPreferences.FavoriteAuthors}}
Favorite books: {{list .UserPreferences.FavoriteBooks}}
Vibes: {{list .UserPreferences.Vibes}}

Work through these steps:
1. Identify the book's genre, themes, tone, and style from its description.
2. Compare the book with the reading history. Books rated 4 or 5 show what the reader loves and books rated 1 or 2 show what they avoid. The history is the strongest evidence and outweighs declared preferences when they disagree.
3. Use the declared preferences to refine the estimate, especially when the history is short.
4. Predict the rating from 1.0 to 5.0 that this reader would give the book.

Answer with exactly one JSON object and nothing else, in this shape:
{"rating": 4.2, "short_reasoning": "one or two sentences", "positive_points": ["..."], "negative_points": ["..."]}
`))

type promptData struct {
	Request
	Truncated bool
}

// RenderPrompt renders the instruction text sent to the predictor.
func RenderPrompt(req Request) (string, error) {
	bounded, truncated := req.bounded()

	var b strings.Builder
	if err := promptTemplate.Execute(&b, promptData{Request: bounded, Truncated: truncated}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}
