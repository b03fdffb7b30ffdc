package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zatekoja/stayaudit/internal/adapters/batchio"
	"github.com/zatekoja/stayaudit/internal/adapters/llm"
	"github.com/zatekoja/stayaudit/internal/application/services"
	"github.com/zatekoja/stayaudit/internal/domain/entities"
	"github.com/zatekoja/stayaudit/internal/domain/repositories"
	"github.com/zatekoja/stayaudit/internal/evaluation"
	"github.com/zatekoja/stayaudit/internal/knowledge"
	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
)

type stayFlags struct {
	pathology     string
	days          int
	sector        string
	age           int
	comorbidities []string
	referenceDays int
}

func (f *stayFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.pathology, "pathology", "", "pathology code, e.g. PNEUMONIA")
	cmd.Flags().IntVar(&f.days, "days", 0, "elapsed length of stay in days")
	cmd.Flags().StringVar(&f.sector, "sector", entities.SectorWard, "hospital sector (UTI, ENFERMARIA, ...)")
	cmd.Flags().IntVar(&f.age, "age", 0, "patient age in years")
	cmd.Flags().StringSliceVar(&f.comorbidities, "comorbidity", nil, "comorbidity, repeatable")
	cmd.Flags().IntVar(&f.referenceDays, "reference-days", 5, "reference length of stay for the pathology")
}

func (f *stayFlags) stay() (entities.StayData, error) {
	if strings.TrimSpace(f.pathology) == "" {
		return entities.StayData{}, apperrors.NewValidationError("--pathology is required")
	}
	if f.days < 0 || f.age < 0 {
		return entities.StayData{}, apperrors.NewValidationError("--days and --age must not be negative")
	}
	comorbidities := f.comorbidities
	if comorbidities == nil {
		comorbidities = []string{}
	}
	return entities.StayData{
		Pathology:     strings.ToUpper(strings.TrimSpace(f.pathology)),
		StayDays:      f.days,
		Sector:        strings.ToUpper(strings.TrimSpace(f.sector)),
		Age:           f.age,
		Comorbidities: comorbidities,
		ReferenceDays: f.referenceDays,
	}, nil
}

func analyzeCmd() *cobra.Command {
	var (
		flags            stayFlags
		stayID           string
		referenceContext bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Recommend a discharge priority for one stay",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var stay entities.StayData
			if stayID != "" {
				repo, err := a.stayRepository(ctx)
				if err != nil {
					return err
				}
				found, err := repo.GetByStayID(ctx, stayID)
				if err != nil {
					return err
				}
				stay = *found
			} else if stay, err = flags.stay(); err != nil {
				return err
			}

			a.prompts.IncludeReferenceContext = referenceContext
			a.prepare(ctx)

			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"recomendacao":   a.discharge.AnalyzeDischarge(ctx, stay),
				"avaliacao_base": a.kb.AssessDischargeReadiness(stay),
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&stayID, "stay-id", "", "load the stay from the CRUD database instead of flags")
	cmd.Flags().BoolVar(&referenceContext, "reference-context", false, "include protocol and retrieved documents in the prompt")
	return cmd
}

func readinessCmd() *cobra.Command {
	var flags stayFlags
	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Score discharge readiness with the knowledge base only",
		RunE: func(cmd *cobra.Command, args []string) error {
			stay, err := flags.stay()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), knowledge.NewDefault().AssessDischargeReadiness(stay))
		},
	}
	flags.register(cmd)
	return cmd
}

func batchCmd() *cobra.Command {
	var (
		input      string
		output     string
		fromDB     bool
		pathology  string
		onlyActive bool
		limit      int
		workers    int
		archive    bool
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze many stays and print the summary report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (input == "") == !fromDB {
				return apperrors.NewValidationError("use exactly one of --input or --from-db")
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("limit") {
				limit = a.cfg.Batch.Limit
			}
			if !cmd.Flags().Changed("workers") {
				workers = a.cfg.Batch.Workers
			}

			var (
				stays    []entities.StayData
				rejected int
			)
			if fromDB {
				repo, err := a.stayRepository(ctx)
				if err != nil {
					return err
				}
				stays, err = repo.List(ctx, repositories.StayFilter{Pathology: pathology, OnlyActive: onlyActive, Limit: limit})
				if err != nil {
					return err
				}
			} else {
				ds, err := batchio.ReadStays(input)
				if err != nil {
					return err
				}
				stays, rejected = ds.Stays, len(ds.Rejected)
			}

			a.prepare(ctx)
			run := a.batch.Run(ctx, stays, services.BatchOptions{Limit: limit, Workers: workers})
			report := a.batch.BuildReport(run.Results)
			report.Skipped = run.Skipped + rejected

			if output != "" {
				if err := batchio.WriteResults(output, run.Results); err != nil {
					return err
				}
			}
			if archive {
				store, err := a.reportArchive()
				if err != nil {
					return err
				}
				location, err := store.ArchiveReport(ctx, &report, run.Results)
				if err != nil {
					return err
				}
				log.Info().Str("location", location).Msg("Report archived")
			}

			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "CSV or XLSX dataset of stays")
	cmd.Flags().BoolVar(&fromDB, "from-db", false, "read stays from the CRUD database")
	cmd.Flags().StringVar(&pathology, "pathology", "", "only stays with this pathology (with --from-db)")
	cmd.Flags().BoolVar(&onlyActive, "only-active", true, "only stays still open (with --from-db)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of stays, 0 for all")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent analyses")
	cmd.Flags().StringVar(&output, "output", "", "write per-stay results to this CSV or XLSX file")
	cmd.Flags().BoolVar(&archive, "archive", false, "upload the report and results to object storage")
	return cmd
}

func reindexCmd() *cobra.Command {
	var (
		reset    bool
		interval string
	)
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Index the knowledge base into the similarity index",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			every, err := parseInterval(interval, a.cfg.Index.ReindexInterval)
			if err != nil {
				return err
			}
			if every <= 0 {
				return indexOnce(ctx, a.retriever, reset)
			}

			for {
				if err := indexOnce(ctx, a.retriever, reset); err != nil {
					log.Error().Err(err).Msg("Reindex failed, retrying at the next interval")
				} else {
					reset = false
				}
				log.Info().Dur("next_run_in", every).Msg("Reindex pass finished")

				select {
				case <-ctx.Done():
					log.Info().Msg("Reindexer shutting down")
					return nil
				case <-time.After(every):
				}
			}
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "drop the collection before indexing")
	cmd.Flags().StringVar(&interval, "interval", "", "repeat interval, e.g. 6h (defaults to REINDEX_INTERVAL)")
	return cmd
}

func indexOnce(ctx context.Context, retriever *services.ContextRetriever, reset bool) error {
	var (
		n   int
		err error
	)
	if reset {
		n, err = retriever.ReindexKnowledge(ctx)
	} else {
		n, err = retriever.IndexKnowledge(ctx)
	}
	if err != nil {
		return err
	}

	event := log.Info().Int("indexed", n).Bool("reset", reset)
	if total, err := retriever.DocumentCount(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to count indexed documents")
	} else {
		event = event.Int("total", total)
	}
	event.Msg("Knowledge indexed")
	return nil
}

// parseInterval prefers the flag value over the configured interval
func parseInterval(flagValue string, configured time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(flagValue)
	if value == "" {
		return configured, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, apperrors.NewValidationError(fmt.Sprintf("invalid interval %q: %v", value, err))
	}
	if d <= 0 {
		return 0, apperrors.NewValidationError("interval must be greater than zero")
	}
	return d, nil
}

func addDocumentCmd() *cobra.Command {
	var (
		text    string
		docType string
	)
	cmd := &cobra.Command{
		Use:   "add-document",
		Short: "Add an ad-hoc reference document to the similarity index",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(text) == "" {
				return apperrors.NewValidationError("--text is required")
			}
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			id := a.retriever.AddDocument(ctx, text, map[string]any{"tipo": docType})
			if id == "" {
				return apperrors.NewIndexUnavailableError("document was not added", nil)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "document content")
	cmd.Flags().StringVar(&docType, "type", "diretriz", "document type stored in metadata")
	return cmd
}

func reviewCmd() *cobra.Command {
	var (
		priority string
		reasons  []string
		pending  []string
		decision string
	)
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Print the prompt comparing a recommendation with the auditor's decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(decision) == "" {
				return apperrors.NewValidationError("--decision is required")
			}
			rec := entities.LLMRecommendation{
				Priority: reviewPriority(priority),
				Reasons:  reasons,
				Pending:  pending,
			}
			prompt := services.NewDischargePromptBuilder().BuildValidationPrompt(rec, decision)
			_, err := io.WriteString(cmd.OutOrStdout(), prompt)
			return err
		},
	}
	cmd.Flags().StringVar(&priority, "priority", "", "recommended priority or readiness label")
	cmd.Flags().StringSliceVar(&reasons, "reason", nil, "recommendation reason, repeatable")
	cmd.Flags().StringSliceVar(&pending, "pending", nil, "pending item, repeatable")
	cmd.Flags().StringVar(&decision, "decision", "", "the auditor's decision")
	return cmd
}

// reviewPriority accepts a priority or a readiness label; empty stays empty
func reviewPriority(value string) entities.Priority {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	if p := entities.Priority(value); p.Valid() {
		return p
	}
	return llm.MapRecommendation(value)
}

func evalCmd() *cobra.Command {
	var (
		golden     string
		k          int
		thresholds evaluation.Thresholds
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score knowledge retrieval against golden queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			queries := evaluation.DefaultGoldenQueries(a.kb)
			if golden != "" {
				if queries, err = evaluation.LoadGoldenQueries(golden); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("k") {
				k = a.cfg.Index.TopK
			}

			if _, err := a.retriever.IndexKnowledge(ctx); err != nil {
				return err
			}
			summary, err := evaluation.NewRunner(a.index, services.QueryText, k).Run(ctx, queries)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
			if !thresholds.Passes(summary) {
				return apperrors.NewValidationError(fmt.Sprintf(
					"retrieval below thresholds: recall %.2f (min %.2f), mrr %.2f (min %.2f)",
					summary.AvgRecall, thresholds.MinRecall, summary.AvgMRR, thresholds.MinMRR))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&golden, "golden", "", "golden query JSON file (defaults to one query per catalogued pathology)")
	cmd.Flags().IntVar(&k, "k", 3, "results scored per query (defaults to INDEX_TOP_K)")
	cmd.Flags().Float64Var(&thresholds.MinRecall, "min-recall", 0, "fail when average recall is below this")
	cmd.Flags().Float64Var(&thresholds.MinMRR, "min-mrr", 0, "fail when average MRR is below this")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
