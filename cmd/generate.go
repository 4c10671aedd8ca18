package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/generation"
	"github.com/abhisek/eikengen/internal/logging"
	"github.com/abhisek/eikengen/internal/ui/theme"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate validated practice items for one or more students",
	Long: `Generate runs the select → generate → validate loop until --count items
are accepted or the attempt budget (count × attempt multiplier) runs out.

Interrupting with Ctrl-C stops before the next attempt; items accepted so
far are kept and reported.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("student", "", "Student ID")
	generateCmd.Flags().StringSlice("students", nil, "Comma-separated student IDs, generated in parallel")
	generateCmd.Flags().String("grade", "", "Eiken grade: 5, 4, 3, pre2, 2, pre1, 1 (required)")
	generateCmd.Flags().String("type", "", "Question type, e.g. grammar_fill (required)")
	generateCmd.Flags().Int("count", 5, "Number of items to accept per student")
	generateCmd.Flags().String("session", "", "Session ID for diversity tracking (default: new per student)")
	generateCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
	generateCmd.Flags().Bool("json", false, "Print results as JSON")
	_ = generateCmd.MarkFlagRequired("grade")
	_ = generateCmd.MarkFlagRequired("type")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	reqs, err := generateRequests(cmd)
	if err != nil {
		return err
	}

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	addr, _ := cmd.Flags().GetString("metrics-addr")
	if addr == "" {
		addr = e.cfg.Metrics.Addr
	}
	if addr != "" {
		shutdown := serveMetrics(addr, e.log)
		defer shutdown()
	}

	o, closeDiv, err := newOrchestrator(ctx, e)
	if err != nil {
		return err
	}
	defer closeDiv()

	var results []*generation.Result
	if len(reqs) == 1 {
		res, err := o.Generate(ctx, reqs[0])
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			printResults(cmd, results)
			return err
		}
	} else {
		results, err = o.GenerateBatch(ctx, reqs)
		printResults(cmd, results)
		return err
	}
	printResults(cmd, results)
	return nil
}

// generateRequests builds one request per student from the flags.
func generateRequests(cmd *cobra.Command) ([]generation.Request, error) {
	student, _ := cmd.Flags().GetString("student")
	students, _ := cmd.Flags().GetStringSlice("students")
	gradeVal, _ := cmd.Flags().GetString("grade")
	typeVal, _ := cmd.Flags().GetString("type")
	count, _ := cmd.Flags().GetInt("count")
	session, _ := cmd.Flags().GetString("session")

	grade, err := eiken.ParseGrade(gradeVal)
	if err != nil {
		return nil, err
	}
	qt, err := eiken.ParseQuestionType(typeVal)
	if err != nil {
		return nil, err
	}

	if student != "" {
		students = append([]string{student}, students...)
	}
	if len(students) == 0 {
		return nil, errors.New("one of --student or --students is required")
	}
	if session != "" && len(students) > 1 {
		return nil, errors.New("--session applies to a single student")
	}

	reqs := make([]generation.Request, 0, len(students))
	for _, s := range students {
		req := generation.Request{
			StudentID:    strings.TrimSpace(s),
			Grade:        grade,
			QuestionType: qt,
			Count:        count,
			SessionID:    session,
		}
		if err := req.Validate(); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// serveMetrics exposes /metrics in the background and returns a shutdown
// func.
func serveMetrics(addr string, log *logging.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	log.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func printResults(cmd *cobra.Command, results []*generation.Result) {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(results)
		return
	}
	first := true
	for _, res := range results {
		if res == nil {
			continue
		}
		if !first {
			fmt.Println()
		}
		first = false
		printResult(res)
	}
}

func printResult(res *generation.Result) {
	req := res.Request
	fmt.Println(theme.Title.Render(fmt.Sprintf("%s · %s · %s", req.StudentID, req.Grade.Label(), req.QuestionType)))
	fmt.Println(theme.Field("Session", req.SessionID))

	status := theme.Pass.Render(fmt.Sprintf("%d/%d accepted", len(res.Accepted), req.Count))
	if !res.Complete() {
		status = theme.Warn.Render(fmt.Sprintf("%d/%d accepted", len(res.Accepted), req.Count))
	}
	fmt.Printf("%s in %d attempts, %d rejected\n", status, res.Attempts, res.RejectedCount)
	fmt.Println(theme.Rule(72))

	for i, it := range res.Accepted {
		sel := it.Selection
		fmt.Printf("%2d. %s  %s  stage %d (%s)  %s\n",
			i+1, sel.Topic.Code, theme.Label.Render(string(sel.Method)),
			sel.FallbackStage, sel.StageName, verdicts(it))
		fmt.Println(theme.Card.Render(renderQuestion(it.Question)))
	}

	if len(res.Errors) > 0 {
		fmt.Println(theme.Label.Render("Diagnostics:"))
		for _, d := range res.Errors {
			fmt.Println("  - " + d)
		}
	}
}

func verdicts(it generation.Item) string {
	parts := make([]string, 0, len(it.Results))
	for _, r := range it.Results {
		parts = append(parts, theme.Verdict(r.Passed)+" "+r.Stage)
	}
	return strings.Join(parts, "  ")
}

// renderQuestion lays out an item for the terminal. The correct choice is
// marked.
func renderQuestion(q *eiken.Question) string {
	var b strings.Builder
	if q.Passage != "" {
		b.WriteString(theme.Hint.Render(q.Passage))
		b.WriteString("\n\n")
	}
	b.WriteString(theme.Body.Render(q.Stem))
	for i, c := range q.Choices {
		marker := "  "
		if i == q.AnswerIndex {
			marker = theme.Pass.Render("➜ ")
		}
		fmt.Fprintf(&b, "\n%s%c) %s", marker, 'A'+i, c)
	}
	if q.Explanation != "" {
		b.WriteString("\n\n")
		b.WriteString(theme.Label.Render(q.Explanation))
	}
	return b.String()
}
