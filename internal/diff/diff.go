// Package diff classifies a freshly scraped batch against the previous
// snapshot and builds the snapshot for the next run.
package diff

import (
	"fmt"

	"CatalogWatcher/internal/identity"
	"CatalogWatcher/internal/logger"
	"CatalogWatcher/internal/models"
)

// Policy decides what happens to snapshot entries missing from the batch.
type Policy int

const (
	// PolicyRetain carries entries absent from the batch forward unchanged.
	PolicyRetain Policy = iota
	// PolicyRebuild keeps only what the batch observed.
	PolicyRebuild
)

// ParsePolicy maps the config names "retain" and "rebuild" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "retain", "":
		return PolicyRetain, nil
	case "rebuild":
		return PolicyRebuild, nil
	}
	return 0, fmt.Errorf("unknown snapshot policy %q", s)
}

func (p Policy) String() string {
	if p == PolicyRebuild {
		return "rebuild"
	}
	return "retain"
}

// Classify compares batch with previous.
//
// A record whose identity is absent from previous is new; one that was
// SOLD_OUT and is now IN_STOCK is restocked. Every other transition is
// silent. Each record is judged against previous only, never against
// earlier records of the same batch, so a key repeated in the batch is
// reported as new once per occurrence while the last occurrence wins in
// the returned snapshot. previous is not modified.
func Classify(batch []models.Product, previous models.Snapshot, policy Policy) models.ClassificationResult {
	var updated models.Snapshot
	if policy == PolicyRetain {
		updated = previous.Clone()
	} else {
		updated = make(models.Snapshot, len(batch))
	}

	var result models.ClassificationResult
	for _, p := range batch {
		id := identity.Hash(p.URL)
		prior, seen := previous[id]
		switch {
		case !seen:
			result.New = append(result.New, p)
		case prior.Availability == models.SoldOut && p.Availability == models.InStock:
			result.Restocked = append(result.Restocked, p)
		}
		updated[id] = models.EntryFrom(p)
	}
	result.Snapshot = updated
	return result
}

// Summary counts how each record of a batch was classified.
type Summary struct {
	Batch     int
	New       int
	Restocked int
	// SoldOut counts IN_STOCK -> SOLD_OUT transitions, which never alert.
	SoldOut   int
	Unchanged int
	Carried   int
	Snapshot  int
}

// Engine binds a policy and a logger around Classify.
type Engine struct {
	policy Policy
	log    logger.Logger
}

// NewEngine returns an Engine applying policy.
func NewEngine(policy Policy, log logger.Logger) *Engine {
	return &Engine{policy: policy, log: log}
}

// Policy returns the policy the engine applies.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Run classifies batch against previous and logs the resulting summary.
func (e *Engine) Run(batch []models.Product, previous models.Snapshot) (models.ClassificationResult, Summary) {
	result := Classify(batch, previous, e.policy)
	summary := summarize(batch, previous, result)

	e.log.Info("Classified batch",
		logger.String("policy", e.policy.String()),
		logger.Int("batch", summary.Batch),
		logger.Int("new", summary.New),
		logger.Int("restocked", summary.Restocked),
		logger.Int("sold_out", summary.SoldOut),
		logger.Int("unchanged", summary.Unchanged),
		logger.Int("carried", summary.Carried),
		logger.Int("snapshot", summary.Snapshot),
	)
	return result, summary
}

func summarize(batch []models.Product, previous models.Snapshot, result models.ClassificationResult) Summary {
	s := Summary{
		Batch:     len(batch),
		New:       len(result.New),
		Restocked: len(result.Restocked),
		Snapshot:  len(result.Snapshot),
	}

	observed := make(map[identity.ID]struct{}, len(batch))
	for _, p := range batch {
		id := identity.Hash(p.URL)
		observed[id] = struct{}{}
		prior, seen := previous[id]
		if !seen {
			continue
		}
		switch {
		case prior.Availability == models.InStock && p.Availability == models.SoldOut:
			s.SoldOut++
		case prior.Availability == p.Availability:
			s.Unchanged++
		}
	}
	for id := range result.Snapshot {
		if _, ok := observed[id]; !ok {
			s.Carried++
		}
	}
	return s
}
