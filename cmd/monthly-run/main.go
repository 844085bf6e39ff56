package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/outstaffer/content-finder/internal/config"
	"github.com/outstaffer/content-finder/internal/models"
	"github.com/outstaffer/content-finder/internal/monitoring"
	"github.com/outstaffer/content-finder/internal/notifications"
	"github.com/outstaffer/content-finder/internal/providers"
	"github.com/outstaffer/content-finder/internal/storage"
	"github.com/outstaffer/content-finder/internal/voc"
)

// TerminalNotifier prints digests to the terminal and saves them as JSON
type TerminalNotifier struct {
	dir string
}

var _ notifications.NotificationInterface = (*TerminalNotifier)(nil)

func (t *TerminalNotifier) SendDigest(digest *models.Digest) error {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("📊 VOC DISCOVERY DIGEST")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("🕒 Generated: %s\n", digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("⏱️  Duration: %s\n", digest.Duration)
	fmt.Printf("📈 Accepted posts: %d\n", digest.AcceptedPosts())

	for _, report := range digest.Reports {
		fmt.Printf("\n📍 %s: %d accepted, %d rejected, %d trends\n",
			report.Segment, report.Stats.Accepted, report.Stats.Rejected, report.Stats.Trends)
		for i, line := range voc.PainPointLines(report.RedditPosts) {
			if i == 5 {
				break
			}
			fmt.Printf("   %d. %s\n", i+1, strings.TrimPrefix(line, "- "))
		}
		if len(report.CuratedQueries) > 0 {
			fmt.Println("   💡 Queries:")
			for _, q := range report.CuratedQueries {
				fmt.Printf("      • %s\n", q)
			}
		}
		for _, w := range report.Warnings {
			fmt.Printf("   ⚠️  %s\n", w)
		}
	}

	if len(digest.Failures) > 0 {
		fmt.Println("\n🚨 Failures:")
		names := make([]string, 0, len(digest.Failures))
		for name := range digest.Failures {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("   • %s: %s\n", name, digest.Failures[name])
		}
	}

	if err := t.save(digest); err != nil {
		fmt.Printf("\n⚠️  Warning: Could not save digest: %v\n", err)
	}
	fmt.Println("\n" + strings.Repeat("=", 70))
	return nil
}

func (t *TerminalNotifier) save(digest *models.Digest) error {
	if err := os.MkdirAll(t.dir, 0755); err != nil {
		return err
	}
	filename := filepath.Join(t.dir, fmt.Sprintf("voc_digest_%s.json", digest.GeneratedAt.Format("2006-01-02_15-04-05")))
	data, err := json.MarshalIndent(digest, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return err
	}
	fmt.Printf("\n💾 Digest saved to: %s\n", filename)
	return nil
}

func main() {
	outDir := flag.String("out", "output", "directory for stored reports and the digest")
	notify := flag.Bool("notify", false, "send the digest via the configured Teams/email channels")
	timeout := flag.Duration("timeout", 2*time.Hour, "maximum run time")
	flag.Parse()

	fmt.Println("🗓️  Content Finder - Monthly VOC Run")
	fmt.Println("===================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logrus.SetLevel(logrus.WarnLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	store, err := storage.NewLocalStorage(*outDir)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	segments := config.NewSegmentLoader(cfg.ConfigDir)
	vocService := voc.NewService(
		providers.NewReddit(cfg.ScrapeCreatorsAPIKey),
		providers.NewTrends(cfg.SerpAPIKey),
		providers.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel),
		cfg.GeminiProModel,
		segments,
		voc.NewHistory(store),
	)

	var notifier notifications.NotificationInterface = &TerminalNotifier{dir: *outDir}
	if *notify {
		notifier = notifications.NewService(cfg)
	}

	service := monitoring.NewService(segments, vocService, store, notifier)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := service.RunMonthly(ctx); err != nil {
		fmt.Printf("\n❌ Monthly run failed: %v\n", err)
	}

	fmt.Println("\n📈 Run metrics:")
	fmt.Println(service.GetMetrics())
}
