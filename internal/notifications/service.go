package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/outstaffer/content-finder/internal/config"
	"github.com/outstaffer/content-finder/internal/models"
)

const (
	teamsPostLimit = 5
	emailPostLimit = 10
)

// Service sends monthly digests via Teams and email
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendDigest sends a digest via every configured channel
func (s *Service) SendDigest(digest *models.Digest) error {
	var errs []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(digest); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errs = append(errs, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent digest to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(digest); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errs = append(errs, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent digest via email")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *Service) sendToTeams(digest *models.Digest) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(buildTeamsMessage(digest)).
		Post(s.config.TeamsWebhookURL)
	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func buildTeamsMessage(digest *models.Digest) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("VOC Discovery Digest - %s", digest.GeneratedAt.Format("January 2006")),
		Text:    fmt.Sprintf("%d segments processed, %d posts accepted", len(digest.Reports), digest.AcceptedPosts()),
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts: []TeamsFact{
			{Name: "Segments", Value: fmt.Sprintf("%d", len(digest.Reports))},
			{Name: "Accepted Posts", Value: fmt.Sprintf("%d", digest.AcceptedPosts())},
			{Name: "Failed Segments", Value: fmt.Sprintf("%d", len(digest.Failures))},
			{Name: "Duration", Value: digest.Duration},
			{Name: "Generated", Value: digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
		},
		Markdown: true,
	})

	for _, report := range digest.Reports {
		var lines []string
		for i, post := range report.RedditPosts {
			if i == teamsPostLimit {
				break
			}
			lines = append(lines, fmt.Sprintf("**[%s](%s)** - r/%s%s", post.Title, post.URL, post.Subreddit, painSuffix(post)))
		}
		if len(report.CuratedQueries) > 0 {
			lines = append(lines, "Queries: "+strings.Join(report.CuratedQueries, "; "))
		}

		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle:    report.Segment,
			ActivitySubtitle: fmt.Sprintf("%d posts, %d queries", len(report.RedditPosts), len(report.CuratedQueries)),
			ActivityText:     strings.Join(lines, "\n\n"),
			Markdown:         true,
		})
	}

	if len(digest.Failures) > 0 {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Failures",
			ActivityText:  strings.Join(failureLines(digest), "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) sendEmail(digest *models.Digest) error {
	subject := fmt.Sprintf("VOC Discovery Digest - %s (%d posts)", digest.GeneratedAt.Format("January 2006"), digest.AcceptedPosts())

	htmlBody, err := buildEmailHTML(digest)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", buildEmailText(digest))
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

const emailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>VOC Discovery Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #4b2aad; color: white; padding: 20px; border-radius: 5px; }
        .segment { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .post { border-left: 4px solid #4b2aad; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .post-meta { color: #666; font-size: 0.9em; }
        .failure { color: #d13438; }
    </style>
</head>
<body>
    <div class="header">
        <h1>VOC Discovery Digest</h1>
        <p>Generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}} in {{.Duration}}</p>
    </div>

    {{range .Reports}}
    <div class="segment">
        <h2>{{.Segment}}</h2>
        <p><strong>Accepted posts:</strong> {{len .RedditPosts}} | <strong>Curated queries:</strong> {{len .CuratedQueries}}</p>
        {{range $index, $post := .RedditPosts}}
            {{if lt $index 10}}
            <div class="post">
                <a href="{{$post.URL}}" target="_blank">{{$post.Title}}</a>
                <div class="post-meta">r/{{$post.Subreddit}} | Score: {{$post.Score}}{{if $post.AIAnalysis}} | {{$post.AIAnalysis.OutstafferSolutionAngle}}{{end}}</div>
                {{if $post.AIAnalysis}}<p>{{$post.AIAnalysis.IdentifiedPainPoint | truncate 200}}</p>{{end}}
            </div>
            {{end}}
        {{end}}
        {{if .CuratedQueries}}
        <h3>Curated queries</h3>
        <ul>{{range .CuratedQueries}}<li>{{.}}</li>{{end}}</ul>
        {{end}}
    </div>
    {{end}}

    {{if .Failures}}
    <h2>Failed segments</h2>
    {{range $segment, $reason := .Failures}}<p class="failure"><strong>{{$segment}}:</strong> {{$reason}}</p>{{end}}
    {{end}}

    <hr>
    <p><small>This digest was generated automatically by Content Finder.</small></p>
</body>
</html>
`

func buildEmailHTML(digest *models.Digest) (string, error) {
	t, err := template.New("email").Funcs(template.FuncMap{
		"truncate": func(length int, s string) string {
			r := []rune(s)
			if len(r) <= length {
				return s
			}
			return string(r[:length]) + "..."
		},
	}).Parse(emailTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, digest); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildEmailText(digest *models.Digest) string {
	var text strings.Builder

	text.WriteString("VOC Discovery Digest\n")
	text.WriteString(fmt.Sprintf("Generated: %s\n", digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))
	text.WriteString(fmt.Sprintf("Segments: %d | Accepted posts: %d\n", len(digest.Reports), digest.AcceptedPosts()))

	for _, report := range digest.Reports {
		text.WriteString(fmt.Sprintf("\n%s\n%s\n", strings.ToUpper(report.Segment), strings.Repeat("=", len(report.Segment))))

		for i, post := range report.RedditPosts {
			if i == emailPostLimit {
				break
			}
			text.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, post.Title))
			text.WriteString(fmt.Sprintf("   r/%s | Score: %d%s\n", post.Subreddit, post.Score, painSuffix(post)))
			text.WriteString(fmt.Sprintf("   URL: %s\n", post.URL))
		}

		if len(report.CuratedQueries) > 0 {
			text.WriteString("\nCurated queries:\n")
			for _, q := range report.CuratedQueries {
				text.WriteString(fmt.Sprintf("- %s\n", q))
			}
		}
	}

	if len(digest.Failures) > 0 {
		text.WriteString("\nFAILED SEGMENTS\n")
		for _, line := range failureLines(digest) {
			text.WriteString(line + "\n")
		}
	}

	text.WriteString("\n---\nThis digest was generated automatically by Content Finder.\n")
	return text.String()
}

func painSuffix(post models.RedditPost) string {
	if post.AIAnalysis == nil || post.AIAnalysis.IdentifiedPainPoint == "" {
		return ""
	}
	return " | " + post.AIAnalysis.IdentifiedPainPoint
}

func failureLines(digest *models.Digest) []string {
	segments := make([]string, 0, len(digest.Failures))
	for segment := range digest.Failures {
		segments = append(segments, segment)
	}
	sort.Strings(segments)

	lines := make([]string, len(segments))
	for i, segment := range segments {
		lines[i] = fmt.Sprintf("- %s: %s", segment, digest.Failures[segment])
	}
	return lines
}
