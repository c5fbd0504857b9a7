package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/labeler"
	"github.com/matsen/sysreview/internal/storage"
	"github.com/spf13/cobra"
)

var (
	suggestAll     bool
	suggestPending bool
	suggestApply   bool
	suggestForce   bool
	suggestWorkers int
	suggestRate    float64
)

func init() {
	suggestCmd.Flags().BoolVar(&suggestAll, "all", false, "Suggest labels for every article")
	suggestCmd.Flags().BoolVar(&suggestPending, "pending", false, "Suggest labels for articles still pending screening")
	suggestCmd.Flags().BoolVar(&suggestApply, "apply", false, "Add suggested labels to the articles")
	suggestCmd.Flags().BoolVar(&suggestForce, "force", false, "Ask the model again even when a cached suggestion exists")
	suggestCmd.Flags().IntVar(&suggestWorkers, "workers", 2, "Concurrent requests to Ollama")
	suggestCmd.Flags().Float64Var(&suggestRate, "rate", labeler.DefaultRate, "Maximum requests per second to Ollama")
	suggestCmd.Flags().String("model", "", "Ollama model (default from SR_LABEL_MODEL or "+labeler.DefaultModel+")")
	suggestCmd.Flags().String("ollama-url", "", "Ollama endpoint (default from SR_OLLAMA_URL or "+labeler.DefaultOllamaURL+")")
	labelCmd.AddCommand(suggestCmd)
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [bibtex-id...]",
	Short: "Suggest labels from abstracts with a local Ollama model",
	Long: `Suggest taxonomy labels for articles by asking a local Ollama model to
classify each abstract. Articles without an abstract are skipped.

Suggestions are cached per article, model and abstract; a cached suggestion
is reused unless --force is given. With --apply the suggested labels are
added to the articles' existing labels.

Examples:
  sr label suggest Smith2021
  sr label suggest --pending --apply
  sr label suggest --all --model qwen2.5 --workers 4`,
	PreRun: func(cmd *cobra.Command, args []string) {
		bindFlag(keyLabelModel, cmd.Flags().Lookup("model"))
		bindFlag(keyOllamaURL, cmd.Flags().Lookup("ollama-url"))
	},
	RunE: runSuggest,
}

// SuggestResult is the response for the label suggest command.
type SuggestResult struct {
	Model       string               `json:"model"`
	Suggestions []labeler.Suggestion `json:"suggestions"`
	Cached      int                  `json:"cached"`
	Applied     bool                 `json:"applied"`
}

func runSuggest(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !suggestAll && !suggestPending {
		exitWithError(ExitError, "specify article keys, --pending or --all")
	}
	if suggestRate <= 0 {
		exitWithError(ExitError, "--rate must be positive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	repoRoot := mustFindRepository()
	tax := mustLoadTaxonomy(repoRoot, mustLoadConfig(repoRoot))
	records := mustReadArticles(repoRoot)

	targets, err := selectSuggestTargets(records, args)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	provider := labeler.New(
		labeler.WithBaseURL(settingString(keyOllamaURL)),
		labeler.WithModel(settingString(keyLabelModel)),
		labeler.WithTaxonomy(tax),
		labeler.WithRate(suggestRate),
	)
	mustValidateOllama(ctx, provider)

	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	// Reuse cached suggestions for unchanged abstracts
	suggestions := make([]labeler.Suggestion, len(targets))
	var pending []article.Record
	var pendingIdx []int
	cached := 0
	for i, r := range targets {
		if !suggestForce {
			if meta := cachedSuggestion(db, r, provider.ModelName()); meta != nil {
				suggestions[i] = labeler.Suggestion{CitationKey: r.CitationKey, Labels: meta.Labels}
				cached++
				continue
			}
		}
		pending = append(pending, r)
		pendingIdx = append(pendingIdx, i)
	}

	slog.Info("suggesting labels", "model", provider.ModelName(), "articles", len(pending), "cached", cached)
	start := time.Now()
	fresh, err := labeler.SuggestAll(ctx, provider, pending, suggestWorkers)
	if err != nil {
		exitWithError(ExitError, "suggesting labels: %v", err)
	}
	slog.Debug("suggestions done", "elapsed", time.Since(start).Round(time.Millisecond))

	now := time.Now().Unix()
	for j, s := range fresh {
		suggestions[pendingIdx[j]] = s
		if s.Skipped {
			continue
		}
		meta := storage.SuggestionMetadata{
			CitationKey:  s.CitationKey,
			ModelName:    provider.ModelName(),
			SuggestedAt:  now,
			AbstractHash: labeler.AbstractHash(pending[j].Abstract),
			Labels:       s.Labels,
		}
		if err := db.SaveSuggestionMetadata(meta); err != nil {
			slog.Warn("caching suggestion failed", "bibtex_id", s.CitationKey, "error", err)
		}
	}

	if suggestApply {
		byKey := make(map[string][]string, len(suggestions))
		for _, s := range suggestions {
			if len(s.Labels) > 0 {
				byKey[s.CitationKey] = s.Labels
			}
		}
		for i := range records {
			if labels, ok := byKey[records[i].CitationKey]; ok {
				records[i].SetLabels(labeler.Merge(records[i].Labels, labels))
			}
		}
		// Rebuilding the index keeps the suggestion cache
		mustWriteArticles(repoRoot, records)
	}

	result := SuggestResult{
		Model:       provider.ModelName(),
		Suggestions: suggestions,
		Cached:      cached,
		Applied:     suggestApply,
	}

	if humanOutput {
		printSuggestions(result)
	} else {
		outputJSON(result)
	}
	return nil
}

// selectSuggestTargets picks the records named by keys, or by --all/--pending.
func selectSuggestTargets(records []article.Record, keys []string) ([]article.Record, error) {
	if len(keys) > 0 {
		var targets []article.Record
		for _, k := range keys {
			idx, found := storage.FindByKey(records, k)
			if !found {
				return nil, fmt.Errorf("article not found: %s", k)
			}
			targets = append(targets, records[idx])
		}
		return targets, nil
	}

	if suggestAll {
		return records, nil
	}

	var targets []article.Record
	for _, r := range records {
		if r.Status() == article.StatusPending {
			targets = append(targets, r)
		}
	}
	return targets, nil
}

// cachedSuggestion returns the stored suggestion when it was made by model
// for the record's current abstract.
func cachedSuggestion(db *storage.DB, r article.Record, model string) *storage.SuggestionMetadata {
	meta, err := db.GetSuggestionMetadata(r.CitationKey)
	if err != nil || meta == nil {
		return nil
	}
	if meta.ModelName != model || meta.AbstractHash != labeler.AbstractHash(r.Abstract) {
		return nil
	}
	return meta
}

// mustValidateOllama checks that Ollama is running and has the model.
func mustValidateOllama(ctx context.Context, provider *labeler.Ollama) {
	err := provider.IsAvailable(ctx)
	switch {
	case err == nil:
		return
	case errors.Is(err, labeler.ErrUnavailable):
		exitWithError(ExitConfigError, "Ollama is not running\n\nStart Ollama with 'ollama serve' or install from https://ollama.ai")
	case errors.Is(err, labeler.ErrModelNotFound):
		exitWithError(ExitConfigError, "model %q not found\n\nRun 'ollama pull %s' to download it.", provider.ModelName(), provider.ModelName())
	default:
		exitWithError(ExitError, "checking Ollama: %v", err)
	}
}

func printSuggestions(result SuggestResult) {
	t := newTable("Key", "Suggested labels")
	for _, s := range result.Suggestions {
		labels := strings.Join(s.Labels, ", ")
		if s.Skipped {
			labels = "(no abstract)"
		}
		t.AppendRow([]interface{}{s.CitationKey, labels})
	}
	fmt.Println(t.Render())
	fmt.Printf("Model %s, %d cached", result.Model, result.Cached)
	if result.Applied {
		fmt.Print(", labels applied")
	}
	fmt.Println()
}
