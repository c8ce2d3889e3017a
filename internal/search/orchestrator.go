// Package search coordinates per-language searches against a backend with
// retry and rate-limit handling.
package search

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/rs/zerolog"

	"github.com/ciefp/CiefpOpenSubtitles/internal/apperrors"
	"github.com/ciefp/CiefpOpenSubtitles/internal/backend"
	"github.com/ciefp/CiefpOpenSubtitles/internal/config"
	"github.com/ciefp/CiefpOpenSubtitles/internal/models"
	"github.com/ciefp/CiefpOpenSubtitles/internal/rank"
)

// Results holds the per-language outcome of one orchestrated search. A
// language appears in exactly one of the two maps.
type Results struct {
	Sets     map[string]models.RankedResultSet
	Failures map[string]error
}

// Languages returns the languages that produced a ranked set, in the order
// they were requested.
func (r Results) Languages(requested []string) []string {
	out := make([]string, 0, len(r.Sets))
	for _, lang := range requested {
		if _, ok := r.Sets[lang]; ok {
			out = append(out, lang)
		}
	}
	return out
}

// Orchestrator fans a query out over its requested languages sequentially,
// retrying transient failures per language and ranking each language's
// results independently.
type Orchestrator struct {
	adapter backend.Adapter
	cfg     *config.Config
	logger  zerolog.Logger
	sortKey models.SortKey
	filters models.Filters
}

// New creates an Orchestrator searching through the given adapter.
func New(adapter backend.Adapter, cfg *config.Config, sortKey models.SortKey, filters models.Filters) *Orchestrator {
	return &Orchestrator{
		adapter: adapter,
		cfg:     cfg,
		logger:  config.GetLogger().With().Str("backend", adapter.Name()).Logger(),
		sortKey: sortKey,
		filters: filters,
	}
}

// Search runs the query for every requested language. One language failing
// does not stop the others; only when every language fails is an
// AllLanguagesError returned. Context cancellation stops the fan-out
// between languages and aborts in-flight retries.
func (o *Orchestrator) Search(ctx context.Context, query models.SearchQuery) (Results, error) {
	results := Results{
		Sets:     make(map[string]models.RankedResultSet, len(query.Languages)),
		Failures: make(map[string]error),
	}

	policy := o.retryPolicy()

	for _, lang := range query.Languages {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		raw, err := o.searchLanguage(ctx, policy, query.ForLanguage(lang))
		if err != nil {
			if errors.Is(err, &apperrors.AuthError{}) {
				// Credentials will not become valid for the next
				// language either.
				return results, err
			}
			o.logger.Warn().Err(err).Str("language", lang).Msg("Search failed for language")
			results.Failures[lang] = err
			continue
		}

		set := rank.Rank(raw, lang, o.sortKey, o.filters)
		o.logger.Info().
			Str("language", lang).
			Int("results", len(set.Results)).
			Msg("Search completed")
		results.Sets[lang] = set
	}

	if len(results.Sets) == 0 && len(results.Failures) > 0 {
		return results, &apperrors.AllLanguagesError{Reasons: results.Failures}
	}
	return results, nil
}

func (o *Orchestrator) searchLanguage(ctx context.Context, policy retrypolicy.RetryPolicy[[]models.SubtitleResult], query models.SearchQuery) ([]models.SubtitleResult, error) {
	lang := query.Languages[0]
	raw, err := failsafe.With[[]models.SubtitleResult](policy).
		WithContext(ctx).
		Get(func() ([]models.SubtitleResult, error) {
			return o.adapter.Search(ctx, query)
		})
	if err != nil {
		var rateErr *apperrors.RateLimitError
		if errors.As(err, &rateErr) || errors.Is(err, &apperrors.SearchError{}) || errors.Is(err, &apperrors.AuthError{}) {
			return nil, err
		}
		return nil, apperrors.NewSearchError(lang, err)
	}
	return raw, nil
}

// retryPolicy retries transient search failures with exponential backoff.
// Rate-limit responses wait for the provider's Retry-After when it gave
// one, otherwise the configured cooldown. Authentication failures abort
// immediately.
func (o *Orchestrator) retryPolicy() retrypolicy.RetryPolicy[[]models.SubtitleResult] {
	baseDelay := o.cfg.RetryDelayDuration()
	cooldown := o.cfg.RateLimitCooldownDuration()

	return retrypolicy.NewBuilder[[]models.SubtitleResult]().
		HandleIf(func(_ []models.SubtitleResult, err error) bool {
			if err == nil {
				return false
			}
			var rateErr *apperrors.RateLimitError
			return errors.As(err, &rateErr) || errors.Is(err, &apperrors.SearchError{})
		}).
		AbortOnErrors(&apperrors.AuthError{}).
		WithMaxRetries(o.cfg.Search.MaxRetries).
		WithDelayFunc(func(exec failsafe.ExecutionAttempt[[]models.SubtitleResult]) time.Duration {
			var rateErr *apperrors.RateLimitError
			if errors.As(exec.LastError(), &rateErr) {
				if rateErr.RetryAfter > 0 {
					return rateErr.RetryAfter
				}
				return cooldown
			}
			return baseDelay << (exec.Attempts() - 1)
		}).
		OnRetry(func(event failsafe.ExecutionEvent[[]models.SubtitleResult]) {
			o.logger.Debug().
				Err(event.LastError()).
				Int("attempt", event.Attempts()).
				Msg("Retrying search")
		}).
		Build()
}
