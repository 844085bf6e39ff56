package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/outstaffer/content-finder/internal/client"
	"github.com/outstaffer/content-finder/internal/pipeline"
	"github.com/outstaffer/content-finder/internal/workflow"
)

const usage = `Usage:
  finder search [-limit n] [-process n] [-synthesize] <query>
  finder voc <segment>
  finder session <segment> <mission>

The backend URL is read from FINDER_API_URL (default http://localhost:8080).
`

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}
	logrus.SetLevel(logrus.WarnLevel)
	if os.Getenv("DEBUG") != "" {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetOutput(os.Stderr)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(apiURL())

	var err error
	switch os.Args[1] {
	case "search":
		err = runSearch(ctx, c, os.Args[2:])
	case "voc":
		err = runVOC(ctx, c, os.Args[2:])
	case "session":
		err = runSession(ctx, c, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func apiURL() string {
	if u := os.Getenv("FINDER_API_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return "http://localhost:8080"
}

func runSearch(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	limit := fs.Int("limit", 10, "number of results")
	process := fs.Int("process", 0, "scrape and analyze the first n results")
	synthesize := fs.Bool("synthesize", false, "synthesize the processed results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	query := strings.Join(fs.Args(), " ")

	view := workflow.NewResearchView(c)
	if err := view.Search(ctx, query, *limit); err != nil {
		return err
	}

	results := view.Results()
	fmt.Printf("🔍 Found %d results for %q\n", view.FoundCount(), query)
	for i, r := range results {
		fmt.Printf("%2d. %s\n    %s\n", i+1, firstNonEmpty(r.Title, r.URL), r.URL)
	}

	if *process <= 0 {
		return nil
	}
	for i, r := range results {
		if i >= *process {
			break
		}
		view.SetSelected(r.URL, true)
	}

	button := view.ProcessButton()
	fmt.Printf("\n⚙️  %s\n", button.Label)
	view.ProcessSelected(ctx)
	for _, u := range view.Selected() {
		fmt.Printf("  %-16s %s\n", view.StatusLabel(u), u)
		if r, ok := view.Processed(u); ok {
			switch {
			case r.Analysis != nil:
				fmt.Printf("    %s\n", r.Analysis.Overview)
			case r.AnalysisError != "":
				fmt.Printf("    %s\n", r.AnalysisError)
			case r.Error != "":
				fmt.Printf("    %s\n", r.Error)
			}
		}
	}

	if !*synthesize {
		return nil
	}
	fmt.Printf("\n🧩 %s\n", view.SynthesizeButton().Label)
	synthesis, err := view.Synthesize(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n%s\n\n📣 Draft post:\n%s\n", synthesis.Analysis.Overview, synthesis.Draft.Text())
	return nil
}

func runVOC(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("segment is required")
	}
	segment := strings.Join(args, " ")
	fmt.Printf("🗣️  VOC discovery for %s\n", segment)

	d := workflow.NewVOCDiscovery(c, segment)
	err := d.RunAll(ctx)
	printSteps(d.Snapshot())
	if err != nil {
		return err
	}

	state := d.State()
	fmt.Printf("\n📊 %d fetched, %d promising, %d accepted, %d trends\n",
		len(state.RawPosts), len(state.PromisingPosts), len(state.FilteredPosts), len(state.Trends))
	fmt.Println("\n💡 Curated queries:")
	for _, q := range state.Queries {
		fmt.Printf("  • %s\n", q)
	}
	return nil
}

func runSession(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("segment and mission are required")
	}
	w := workflow.NewSessionWorkflow(c, args[0], strings.Join(args[1:], " "))
	err := w.RunAll(ctx)
	printSteps(w.Snapshot())
	if err != nil {
		return err
	}

	session := w.Session()
	fmt.Printf("\n📁 Session %s (%s)\n", session.SessionID, session.Status)
	for _, theme := range session.Themes {
		fmt.Printf("\n## %s\n%s\n", theme.ThemeTitle, theme.Summary)
		for _, tp := range theme.TalkingPoints {
			fmt.Printf("  • %s\n", tp.Point)
		}
	}
	return nil
}

func printSteps(s pipeline.Snapshot) {
	fmt.Println(strings.Repeat("-", 40))
	for _, step := range s.Steps() {
		icon := "⏸️ "
		switch step.Status {
		case pipeline.StatusCompleted:
			icon = "✅"
		case pipeline.StatusError:
			icon = "❌"
		case pipeline.StatusLoading:
			icon = "⏳"
		}
		fmt.Printf("%s %-18s %8s\n", icon, step.ID, step.Duration.Round(time.Millisecond))
		for _, w := range step.Warnings {
			fmt.Printf("   ⚠️  %s\n", w)
		}
		if step.Error != "" {
			fmt.Printf("   %s\n", step.Error)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
