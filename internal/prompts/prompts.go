package prompts

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

// Template names
const (
	Analyze        = "analyze.tmpl"
	Synthesize     = "synthesize.tmpl"
	Planner        = "planner.tmpl"
	Themes         = "themes.tmpl"
	Prescore       = "prescore.tmpl"
	RedditAnalysis = "reddit_analysis.tmpl"
	CuratedQueries = "curated_queries.tmpl"
)

//go:embed templates/*.tmpl
var files embed.FS

var templates = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"inc":     func(i int) int { return i + 1 },
	"bullets": bullets,
}).ParseFS(files, "templates/*.tmpl"))

// Render executes the named template
func Render(name string, data interface{}) (string, error) {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

func bullets(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}
