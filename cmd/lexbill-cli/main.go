// Command lexbill-cli is a terminal client for the billing gateway. It
// drives the same dashboard model the web UI uses: load collections,
// filter and search them, trigger fetch/generate/push actions and edit
// summaries.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"lexbill/internal/dashboard"
)

const usage = `Usage: lexbill-cli [flags] <command>

Commands:
  status       Show Gmail and Clio connection status
  fetch        Fetch recent emails from Gmail
  emails       List stored emails
  summaries    List generated summaries
  generate     Generate billing summaries for unsummarized emails
  push         Push unpushed summaries to Clio as time entries
  edit         Edit one summary's billing fields
  clio-auth    Print the Clio OAuth authorization URL
  clio-test    Test the Clio connection

Flags:
`

func main() {
	godotenv.Load()

	baseURL := flag.String("base", os.Getenv("LEXBILL_API_BASE"), "gateway base URL (default http://localhost:8080/api)")
	filterName := flag.String("filter", "all", "filter mode: emails all|unsummarized|summarized|unpushed, summaries all|unpushed|pushed")
	query := flag.String("search", "", "case-insensitive search query")
	daysBack := flag.Int("days", 7, "fetch window in days")
	maxResults := flag.Int("max", 100, "fetch result cap")
	editID := flag.Uint("id", 0, "summary id to edit")
	editHours := flag.Float64("hours", -1, "new billing hours")
	editDesc := flag.String("desc", "", "new billing description")
	editSummary := flag.String("summary", "", "new summary text")
	timeout := flag.Duration("timeout", 5*time.Minute, "request timeout")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	orch := dashboard.NewOrchestrator(dashboard.NewClient(*baseURL), dashboard.NewStore())

	var err error
	switch flag.Arg(0) {
	case "status":
		err = runStatus(ctx, orch)
	case "fetch":
		err = runFetch(ctx, orch, *daysBack, *maxResults)
	case "emails":
		err = runEmails(ctx, orch, *filterName, *query)
	case "summaries":
		err = runSummaries(ctx, orch, *filterName, *query)
	case "generate":
		err = runGenerate(ctx, orch)
	case "push":
		err = runPush(ctx, orch)
	case "edit":
		err = runEdit(ctx, orch, *editID, *editHours, *editDesc, *editSummary)
	case "clio-auth":
		err = runClioAuth(ctx, orch)
	case "clio-test":
		err = runClioTest(ctx, orch)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runStatus(ctx context.Context, orch *dashboard.Orchestrator) error {
	status := orch.RefreshStatus(ctx)
	fmt.Printf("Gmail: %s\n", connWord(status.Gmail))
	fmt.Printf("Clio:  %s\n", connWord(status.Clio))
	return nil
}

func runFetch(ctx context.Context, orch *dashboard.Orchestrator, daysBack, maxResults int) error {
	result, err := orch.FetchEmails(ctx, daysBack, maxResults)
	if err != nil {
		return err
	}
	fmt.Printf("Fetched %d emails, %d new\n", result.EmailsFetched, result.NewEmails)
	return nil
}

func runEmails(ctx context.Context, orch *dashboard.Orchestrator, filterName, query string) error {
	filter, err := dashboard.ParseEmailFilter(filterName)
	if err != nil {
		return err
	}
	if err := orch.LoadStoredEmails(ctx); err != nil {
		return err
	}
	emails := dashboard.VisibleEmails(orch.Store().Emails(), filter, query)
	if len(emails) == 0 {
		fmt.Println("No emails.")
		return nil
	}
	for _, e := range emails {
		fmt.Printf("%-20s  %-30s  %s\n", e.ID, truncateCell(e.Sender, 30), truncateCell(e.Subject, 60))
	}
	fmt.Printf("%d of %d emails\n", len(emails), len(orch.Store().Emails()))
	return nil
}

func runSummaries(ctx context.Context, orch *dashboard.Orchestrator, filterName, query string) error {
	filter, err := dashboard.ParseSummaryFilter(filterName)
	if err != nil {
		return err
	}
	if err := orch.LoadSummaries(ctx); err != nil {
		return err
	}
	summaries := dashboard.VisibleSummaries(orch.Store().Summaries(), filter, query)
	if len(summaries) == 0 {
		fmt.Println("No summaries.")
		return nil
	}
	for _, s := range summaries {
		pushed := " "
		if s.PushedToClio {
			pushed = "*"
		}
		fmt.Printf("%5d %s %4.2fh  %-50s  %s\n", s.ID, pushed, s.BillingHours,
			truncateCell(s.BillingDescription, 50), truncateCell(s.Subject, 40))
	}
	fmt.Printf("%d of %d summaries (* = pushed)\n", len(summaries), len(orch.Store().Summaries()))
	return nil
}

func runGenerate(ctx context.Context, orch *dashboard.Orchestrator) error {
	result, err := orch.GenerateSummaries(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Generated %d summaries\n", result.SummariesGenerated)
	if result.Message != "" {
		fmt.Println(result.Message)
	}
	return nil
}

func runPush(ctx context.Context, orch *dashboard.Orchestrator) error {
	result, err := orch.PushToClio(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Pushed %d time entries\n", result.PushedCount)
	if result.Message != "" {
		fmt.Println(result.Message)
	}
	return nil
}

func runEdit(ctx context.Context, orch *dashboard.Orchestrator, id uint, hours float64, desc, summary string) error {
	if id == 0 {
		return fmt.Errorf("edit requires -id")
	}
	if err := orch.LoadSummaries(ctx); err != nil {
		return err
	}
	buffer, err := orch.BeginEdit(id)
	if err != nil {
		return err
	}
	if hours >= 0 {
		buffer.BillingHours = hours
	}
	if desc != "" {
		buffer.BillingDescription = desc
	}
	if summary != "" {
		buffer.Summary = summary
	}
	if err := orch.SaveEdit(ctx); err != nil {
		return err
	}
	fmt.Printf("Summary %d updated\n", id)
	return nil
}

func runClioAuth(ctx context.Context, orch *dashboard.Orchestrator) error {
	url, err := orch.ConnectClio(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Open this URL in a browser to authorize Clio:")
	fmt.Println(url)
	return nil
}

func runClioTest(ctx context.Context, orch *dashboard.Orchestrator) error {
	result, err := orch.TestClio(ctx)
	if err != nil {
		return err
	}
	if result.Connected {
		name := result.UserName
		if name == "" {
			name = "unknown user"
		}
		fmt.Printf("Connected to Clio as %s\n", name)
		return nil
	}
	fmt.Printf("Not connected: %s\n", result.Message)
	return nil
}

func connWord(connected bool) string {
	if connected {
		return "connected"
	}
	return "not connected"
}

func truncateCell(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
