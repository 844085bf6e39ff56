package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Spaces become underscores", input: "SMB Leaders", expected: "smb_leaders"},
		{name: "Surrounding whitespace trimmed", input: "  Tech Founders ", expected: "tech_founders"},
		{name: "Already a slug", input: "agency", expected: "agency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slug(tt.input))
		})
	}
}

func TestConfig_validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "Defaults are valid",
			cfg:  Config{MonthlyRunSchedule: "0 0 9 1 * *"},
		},
		{
			name:    "Invalid schedule",
			cfg:     Config{MonthlyRunSchedule: "every month"},
			wantErr: true,
		},
		{
			name:    "Email without SMTP",
			cfg:     Config{MonthlyRunSchedule: "0 0 9 1 * *", NotificationEmail: "team@example.com"},
			wantErr: true,
		},
		{
			name:    "Monthly run without notifications",
			cfg:     Config{MonthlyRunSchedule: "0 0 9 1 * *", MonthlyRunEnabled: true},
			wantErr: true,
		},
		{
			name: "Monthly run with Teams",
			cfg: Config{
				MonthlyRunSchedule: "0 0 9 1 * *",
				MonthlyRunEnabled:  true,
				TeamsWebhookURL:    "https://example.com/hook",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_UsesEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GEMINI_MODEL", "gemini-test")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://app.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "gemini-test", cfg.GeminiModel)
	assert.Equal(t, "gemini-test", cfg.GeminiProModel)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.CORSOrigins)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSegmentLoader_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "segments", "segment_smb_leaders.json"), `{
		"audience": "SMB founders",
		"subreddits": ["smallbusiness"],
		"google_trends": {"primary_keywords": ["employer of record"]},
		"prescore_threshold": 7.5
	}`)

	loader := NewSegmentLoader(dir)

	cfg, err := loader.Load("SMB Leaders")
	require.NoError(t, err)
	assert.Equal(t, "SMB Leaders", cfg.Name)
	assert.Equal(t, []string{"smallbusiness"}, cfg.Subreddits)
	assert.Equal(t, 7.5, cfg.Prescore())
	assert.Equal(t, 6.0, cfg.AIRelevance())
	assert.Equal(t, []string{"employer of record"}, cfg.TrendsQueryKeywords())
	assert.Equal(t, "today 12-m", cfg.GoogleTrends.TimeframeOrDefault())

	filters := cfg.Filters()
	assert.Equal(t, "month", filters.TimeRange)
	assert.Equal(t, "top", filters.Sort)

	_, err = loader.Load("Unknown Segment")
	assert.True(t, errors.Is(err, ErrSegmentNotFound))
}

func TestSegmentConfig_TrendsQueryKeywords(t *testing.T) {
	tests := []struct {
		name     string
		cfg      SegmentConfig
		expected []string
	}{
		{
			name:     "Explicit trends keywords win",
			cfg:      SegmentConfig{TrendsKeywords: []string{"a"}, GoogleTrends: GoogleTrends{PrimaryKeywords: []string{"b"}}, SearchKeywords: []string{"c"}},
			expected: []string{"a"},
		},
		{
			name:     "Falls back to primary keywords",
			cfg:      SegmentConfig{GoogleTrends: GoogleTrends{PrimaryKeywords: []string{"b"}}, SearchKeywords: []string{"c"}},
			expected: []string{"b"},
		},
		{
			name:     "Falls back to search keywords",
			cfg:      SegmentConfig{SearchKeywords: []string{"c"}},
			expected: []string{"c"},
		},
		{
			name: "Nothing configured",
			cfg:  SegmentConfig{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cfg.TrendsQueryKeywords())
		})
	}
}

func TestSegmentConfig_Merge(t *testing.T) {
	base := SegmentConfig{
		Subreddits:   []string{"smallbusiness"},
		GoogleTrends: GoogleTrends{PrimaryKeywords: []string{"eor"}},
	}

	merged := base.Merge(SegmentConfig{Subreddits: []string{"startups"}})

	assert.Equal(t, []string{"startups"}, merged.Subreddits)
	assert.Equal(t, []string{"eor"}, merged.GoogleTrends.PrimaryKeywords)
	assert.Equal(t, []string{"smallbusiness"}, base.Subreddits)
}

func TestSegmentLoader_LoadIntelligence(t *testing.T) {
	dir := t.TempDir()
	content := `{"monthly_run":{"segments":[{"name":"SMB Leaders"}]},"version":2}`
	writeFile(t, filepath.Join(dir, "intelligence_config.json"), content)

	cfg, err := NewSegmentLoader(dir).LoadIntelligence()
	require.NoError(t, err)
	require.Len(t, cfg.MonthlyRun.Segments, 1)

	meta, ok := cfg.Segment("smb leaders")
	assert.True(t, ok)
	assert.Equal(t, "SMB Leaders", meta.Name)

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, content, string(data))
}

func TestSegmentLoader_LoadRejectsPathTraversal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "secret.json"), `{"subreddits": ["leaked"]}`)
	writeFile(t, filepath.Join(root, "config", "segment_x.json"), `{"subreddits": ["leaked"]}`)
	loader := NewSegmentLoader(filepath.Join(root, "config"))

	for _, name := range []string{"../../../../secret", "../segment_x", `..\secret`, "a/b", "  "} {
		t.Run(name, func(t *testing.T) {
			cfg, err := loader.Load(name)
			assert.Nil(t, cfg)
			assert.ErrorIs(t, err, ErrSegmentNotFound)
		})
	}
}
