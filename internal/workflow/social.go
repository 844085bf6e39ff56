package workflow

import (
	"strings"
	"unicode"

	"github.com/outstaffer/content-finder/internal/models"
)

const maxHashtags = 5

// SocialPost is a draft post derived from a synthesis
type SocialPost struct {
	Angle    string   `json:"angle"`
	Bullets  []string `json:"bullets"`
	Hashtags []string `json:"hashtags"`
}

// Text renders the draft as postable text
func (p SocialPost) Text() string {
	var b strings.Builder
	b.WriteString(p.Angle)
	if len(p.Bullets) > 0 {
		b.WriteString("\n")
		for _, bullet := range p.Bullets {
			b.WriteString("\n• ")
			b.WriteString(bullet)
		}
	}
	if len(p.Hashtags) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(p.Hashtags, " "))
	}
	return strings.TrimSpace(b.String())
}

// DraftSocialPost builds a post from the first sentence of the overview,
// the key insights as bullets and hashtags from the cross-article themes
func DraftSocialPost(a models.MultiArticleAnalysis) SocialPost {
	post := SocialPost{Angle: firstSentence(a.Overview)}

	for _, insight := range a.KeyInsights {
		if s := strings.TrimSpace(insight); s != "" {
			post.Bullets = append(post.Bullets, s)
		}
	}

	seen := make(map[string]bool)
	for _, theme := range a.CrossArticleThemes {
		tag := hashtag(theme)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		post.Hashtags = append(post.Hashtags, tag)
		if len(post.Hashtags) == maxHashtags {
			break
		}
	}
	return post
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + 1
		if next == len(text) || text[next] == ' ' || text[next] == '\n' {
			return text[:next]
		}
	}
	return text
}

func hashtag(theme string) string {
	words := strings.FieldsFunc(theme, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("#")
	for _, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}
