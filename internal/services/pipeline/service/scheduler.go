package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"sibyl/internal/core/intent"
	"sibyl/internal/core/sqlgen"
	perr "sibyl/internal/platform/errors"
	"sibyl/internal/platform/logger"
	dom "sibyl/internal/services/pipeline/domain"
)

// lowRuleConfidence is the rule_first threshold below which the LLM
// branch runs anyway
const lowRuleConfidence = 0.5

// scheduler routes generation through one of the five strategies and
// emits a single artifact or a generation failure. Request deadline
// errors pass through untouched so they keep their timeout kind
type scheduler struct {
	rules *sqlgen.Generator
	llm   *llmGenerator
	retry *retryer
	log   *logger.Logger
}

func newScheduler(rules *sqlgen.Generator, llm *llmGenerator, retry *retryer) *scheduler {
	return &scheduler{
		rules: rules,
		llm:   llm,
		retry: retry,
		log:   logger.Named("scheduler"),
	}
}

// Generate runs the strategy. The winning artifact keeps the Source of
// the branch that produced it
func (s *scheduler) Generate(ctx context.Context, strat dom.Strategy, query string, in intent.Intent, onToken func(string)) (sqlgen.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return sqlgen.Artifact{}, mapCtxErr(ctx, "sql generation")
	}

	switch strat {
	case dom.StrategyRuleOnly:
		art, err := s.rules.Generate(in)
		if err != nil {
			return sqlgen.Artifact{}, perr.GenerationFailedf("rule: %v", err)
		}
		return art, nil

	case dom.StrategyLLMOnly:
		art, err := s.llmAttempt(ctx, query, in, onToken)
		if err != nil {
			if deadlineHit(err) {
				return sqlgen.Artifact{}, err
			}
			return sqlgen.Artifact{}, perr.GenerationFailedf("llm: %v", err)
		}
		return art, nil

	case dom.StrategyRuleFirst:
		return s.ruleFirst(ctx, query, in, onToken)

	case dom.StrategyLLMFirst:
		return s.llmFirst(ctx, query, in, onToken)

	case dom.StrategyHybrid:
		return s.hybrid(ctx, query, in, onToken)

	default:
		return sqlgen.Artifact{}, perr.Validationf("unsupported strategy %q", strat)
	}
}

// ruleFirst keeps a confident rule artifact, falls through to the LLM
// otherwise, and still serves a low-confidence rule result when the LLM
// branch fails too
func (s *scheduler) ruleFirst(ctx context.Context, query string, in intent.Intent, onToken func(string)) (sqlgen.Artifact, error) {
	ruleArt, ruleErr := s.rules.Generate(in)
	if ruleErr == nil && ruleArt.Confidence >= lowRuleConfidence {
		return ruleArt, nil
	}

	llmArt, llmErr := s.llmAttempt(ctx, query, in, onToken)
	if llmErr == nil {
		return llmArt, nil
	}
	if deadlineHit(llmErr) {
		return sqlgen.Artifact{}, llmErr
	}
	if ruleErr == nil {
		s.log.Debug().
			Float64("confidence", ruleArt.Confidence).
			Msg("llm fallback failed, serving low-confidence rule artifact")
		return ruleArt, nil
	}
	return sqlgen.Artifact{}, perr.GenerationFailedf("rule: %v; llm: %v", ruleErr, llmErr)
}

// llmFirst tries the LLM with retries, falling back to rules unless the
// request deadline already ended
func (s *scheduler) llmFirst(ctx context.Context, query string, in intent.Intent, onToken func(string)) (sqlgen.Artifact, error) {
	llmArt, llmErr := s.llmAttempt(ctx, query, in, onToken)
	if llmErr == nil {
		return llmArt, nil
	}
	if deadlineHit(llmErr) {
		return sqlgen.Artifact{}, llmErr
	}

	ruleArt, ruleErr := s.rules.Generate(in)
	if ruleErr == nil {
		return ruleArt, nil
	}
	return sqlgen.Artifact{}, perr.GenerationFailedf("llm: %v; rule: %v", llmErr, ruleErr)
}

// hybrid races both branches under the same deadline and keeps the
// higher confidence artifact; ties favor the rule result. A failed
// branch never aborts the other
func (s *scheduler) hybrid(ctx context.Context, query string, in intent.Intent, onToken func(string)) (sqlgen.Artifact, error) {
	var (
		ruleArt, llmArt sqlgen.Artifact
		ruleErr, llmErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		ruleArt, ruleErr = s.rules.Generate(in)
		return nil
	})
	g.Go(func() error {
		llmArt, llmErr = s.llmAttempt(ctx, query, in, onToken)
		return nil
	})
	_ = g.Wait()

	switch {
	case ruleErr == nil && llmErr == nil:
		if llmArt.Confidence > ruleArt.Confidence {
			return llmArt, nil
		}
		return ruleArt, nil
	case ruleErr == nil:
		return ruleArt, nil
	case llmErr == nil:
		return llmArt, nil
	}

	if deadlineHit(llmErr) {
		return sqlgen.Artifact{}, llmErr
	}
	return sqlgen.Artifact{}, perr.GenerationFailedf("rule: %v; llm: %v", ruleErr, llmErr)
}

// llmAttempt wraps the LLM generator in the retry executor
func (s *scheduler) llmAttempt(ctx context.Context, query string, in intent.Intent, onToken func(string)) (sqlgen.Artifact, error) {
	if s.llm == nil {
		return sqlgen.Artifact{}, perr.LLMUnavailablef("llm generator not configured")
	}
	return s.retry.Do(ctx, "llm generation", func(ctx context.Context) (sqlgen.Artifact, error) {
		return s.llm.Generate(ctx, query, in, onToken)
	})
}

// deadlineHit reports request-deadline expiry or client cancellation,
// which must surface as-is instead of becoming generation_failed
func deadlineHit(err error) bool {
	return perr.IsCode(err, perr.ErrorCodeTimeout) || perr.IsCode(err, perr.ErrorCodeCanceled)
}
