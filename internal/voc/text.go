package voc

import (
	"encoding/json"
	"html"
	"strings"

	"github.com/outstaffer/content-finder/internal/models"
)

const commentLimit = 5

var jsonUnsafe = strings.NewReplacer(
	"\r\n", " ",
	"\n", " ",
	"\t", " ",
	`"`, "'",
	`\`, "",
)

// CleanText normalizes post text for embedding in a prompt and truncates it to maxLength runes
func CleanText(text string, maxLength int) string {
	if text == "" {
		return ""
	}
	text = jsonUnsafe.Replace(html.UnescapeString(text))
	text = strings.Join(strings.Fields(text), " ")

	r := []rune(text)
	if len(r) > maxLength {
		text = string(r[:maxLength])
	}
	return strings.TrimSpace(text)
}

// ExtractComments walks a comment tree and returns up to limit comment bodies.
// Deleted and removed comments are skipped.
func ExtractComments(payload json.RawMessage, limit int) []string {
	var root interface{}
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil
	}

	var bodies []string
	var visit func(node interface{})
	visit = func(node interface{}) {
		if len(bodies) >= limit {
			return
		}
		switch n := node.(type) {
		case map[string]interface{}:
			if body, ok := n["body"].(string); ok {
				trimmed := strings.TrimSpace(body)
				lower := strings.ToLower(trimmed)
				if trimmed != "" && lower != "[deleted]" && lower != "[removed]" {
					bodies = append(bodies, trimmed)
					if len(bodies) >= limit {
						return
					}
				}
			}
			for _, key := range []string{"replies", "data", "children", "comments"} {
				switch child := n[key].(type) {
				case map[string]interface{}, []interface{}:
					visit(child)
				}
			}
		case []interface{}:
			for _, item := range n {
				if len(bodies) >= limit {
					return
				}
				visit(item)
			}
		}
	}
	visit(root)
	return bodies
}

// BuildDiscussion renders a post and its top comments as plain text
func BuildDiscussion(post models.RedditPost, comments []string) string {
	sections := []string{"Title: " + post.Title}
	if body := strings.TrimSpace(post.ContentSnippet); body != "" {
		sections = append(sections, "\nPost Body:\n"+body)
	}
	if len(comments) > 0 {
		sections = append(sections, "\nTop Comments:\n"+strings.Join(comments, "\n---\n"))
	}
	return strings.Join(sections, "\n\n")
}
