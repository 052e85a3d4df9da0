package cmd

import (
	"github.com/felixgeelhaar/planguard/internal/log"
	"github.com/felixgeelhaar/planguard/internal/metrics"
	"github.com/felixgeelhaar/planguard/internal/plan"
	"github.com/felixgeelhaar/planguard/internal/policy"
	"github.com/felixgeelhaar/planguard/internal/safety"
	"github.com/felixgeelhaar/planguard/internal/ux"
)

// preparedPlan is a loaded plan after sanitizing.
type preparedPlan struct {
	Plan         *plan.Plan
	Warnings     []string
	PayloadBytes int
}

// planPath returns path, or plan.json under root when path is empty.
func planPath(root, path string) string {
	if path != "" {
		return path
	}
	return ux.NewPathDefaults(root).PlanFile()
}

// loadPlan reads the plan at path and drops conflicting steps.
func loadPlan(path string, m *metrics.Metrics, logger *log.Logger) (*preparedPlan, error) {
	raw, err := plan.LoadPlan(path)
	if err != nil {
		m.RecordError("load", err)
		return nil, err
	}

	sanitized, warnings := plan.Sanitize(raw)
	m.RecordSanitized(len(warnings))
	for _, w := range warnings {
		logger.Warn("sanitizer dropped step", "detail", w)
	}
	logger.Debug("plan loaded", "path", path, "steps", len(sanitized.Steps), "dropped", len(warnings))

	return &preparedPlan{
		Plan:         sanitized,
		Warnings:     warnings,
		PayloadBytes: safety.PayloadBytes(sanitized),
	}, nil
}

// preparePlan is loadPlan followed by policy validation. On a validation
// failure the sanitized plan is still returned.
func preparePlan(path string, cfg *policy.Config, m *metrics.Metrics, logger *log.Logger) (*preparedPlan, error) {
	pp, err := loadPlan(path, m, logger)
	if err != nil {
		return nil, err
	}

	err = safety.Validate(pp.Plan, cfg)
	m.RecordValidation(err)
	if err != nil {
		logger.WithError(err).Warn("plan rejected")
		return pp, err
	}
	return pp, nil
}
