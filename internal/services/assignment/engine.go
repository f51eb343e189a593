// Package assignment distributes unassigned pending records to
// reviewers: override rules first, then fair round robin per branch,
// all under the single global assignment lock.
package assignment

import (
	"context"

	"github.com/sirupsen/logrus"

	"collections-review-backend/internal/models"
	"collections-review-backend/internal/repository"
	"collections-review-backend/internal/roster"
)

// PassResult is the tri-state outcome of a TryRun. A busy lock is a
// skip, not a failure.
type PassResult int

const (
	PassSkippedBusy PassResult = iota
	PassRan
	PassPartial
)

func (r PassResult) String() string {
	switch r {
	case PassRan:
		return "ran"
	case PassPartial:
		return "partial"
	default:
		return "skipped-busy"
	}
}

type Engine struct {
	store     repository.RecordStore
	overrides repository.OverrideRegistry
	vendors   repository.VendorDirectory
	cursors   repository.CursorStore
	roster    roster.Source
	locker    repository.Locker
	log       *logrus.Logger
}

func NewEngine(
	store repository.RecordStore,
	overrides repository.OverrideRegistry,
	vendors repository.VendorDirectory,
	cursors repository.CursorStore,
	rosterSrc roster.Source,
	locker repository.Locker,
	log *logrus.Logger,
) *Engine {
	return &Engine{
		store:     store,
		overrides: overrides,
		vendors:   vendors,
		cursors:   cursors,
		roster:    rosterSrc,
		locker:    locker,
		log:       log,
	}
}

type pendingRecord struct {
	partition  string
	pos        int
	vendorCode string
	branch     string
}

// TryRun executes one assignment pass if the global lock can be
// obtained within the bounded wait. Internal failures are logged and
// reported through the tri-state result, never propagated: this is
// best-effort background maintenance.
func (e *Engine) TryRun(ctx context.Context) PassResult {
	release, ok, err := e.locker.Obtain(ctx)
	if err != nil {
		e.log.WithError(err).Error("assignment lock unavailable")
		return PassSkippedBusy
	}
	if !ok {
		e.log.Debug("assignment pass already running, skipping")
		return PassSkippedBusy
	}
	defer release()

	// Roster and overrides come from sources outside our control. If
	// either cannot be reached the pass aborts before assigning
	// anything: a branch's quota is never partially distributed
	// against a stale rule set.
	reviewers, err := e.roster.Reviewers(ctx)
	if err != nil {
		e.log.WithError(err).Error("roster unavailable, aborting assignment pass")
		return PassPartial
	}
	overrideMap, err := e.overrides.Map(ctx)
	if err != nil {
		e.log.WithError(err).Error("override table unavailable, aborting assignment pass")
		return PassPartial
	}

	pending, scanClean := e.scan(ctx)
	if len(pending) == 0 {
		if scanClean {
			return PassRan
		}
		return PassPartial
	}

	// Stage A: vendor overrides bypass round robin entirely.
	assignments := make(map[string]map[int]string)
	assign := func(rec pendingRecord, reviewer string) {
		if assignments[rec.partition] == nil {
			assignments[rec.partition] = make(map[int]string)
		}
		assignments[rec.partition][rec.pos] = reviewer
	}

	var remaining []pendingRecord
	for _, rec := range pending {
		if reviewer, ok := overrideMap[rec.vendorCode]; ok && reviewer != "" {
			assign(rec, reviewer)
			continue
		}
		remaining = append(remaining, rec)
	}

	// Stage B: fair round robin per branch, continued across passes
	// via the persisted cursor. Ties break on roster order.
	partial := !scanClean
	byBranch := make(map[string][]pendingRecord)
	var branchOrder []string
	for _, rec := range remaining {
		if _, seen := byBranch[rec.branch]; !seen {
			branchOrder = append(branchOrder, rec.branch)
		}
		byBranch[rec.branch] = append(byBranch[rec.branch], rec)
	}

	for _, branch := range branchOrder {
		eligible := eligibleReviewers(reviewers, branch)
		if len(eligible) == 0 {
			// Left pending for a later pass once the roster covers
			// this branch. Not an error.
			e.log.WithFields(logrus.Fields{
				"branch":  branch,
				"records": len(byBranch[branch]),
			}).Info("no eligible reviewer for branch, leaving records unassigned")
			continue
		}
		cursor, err := e.cursors.Get(ctx, branch)
		if err != nil {
			e.log.WithError(err).WithField("branch", branch).Warn("cursor read failed, starting from scratch")
			cursor = -1
		}
		for _, rec := range byBranch[branch] {
			cursor = (cursor + 1) % len(eligible)
			assign(rec, eligible[cursor].ID)
		}
		if err := e.cursors.Set(ctx, branch, cursor); err != nil {
			e.log.WithError(err).WithField("branch", branch).Warn("cursor persist failed")
			partial = true
		}
	}

	// Write-back, batched per partition.
	total := 0
	for part, batch := range assignments {
		if err := e.store.ApplyAssignments(ctx, part, batch); err != nil {
			e.log.WithError(err).WithField("partition", part).Error("assignment write-back failed")
			partial = true
			continue
		}
		total += len(batch)
	}

	e.log.WithFields(logrus.Fields{
		"pending":  len(pending),
		"assigned": total,
	}).Info("assignment pass finished")
	if partial {
		return PassPartial
	}
	return PassRan
}

// scan walks every partition in stable order and collects records that
// have no reviewer yet. A record already assigned is never re-scanned.
func (e *Engine) scan(ctx context.Context) ([]pendingRecord, bool) {
	clean := true
	parts, err := e.store.Partitions(ctx)
	if err != nil {
		e.log.WithError(err).Error("partition listing failed")
		return nil, false
	}
	var pending []pendingRecord
	for _, part := range parts {
		recs, err := e.store.Records(ctx, part)
		if err != nil {
			e.log.WithError(err).WithField("partition", part).Error("partition scan failed")
			clean = false
			continue
		}
		for _, rec := range recs {
			if rec.AssignedReviewer != "" {
				continue
			}
			if rec.ReviewStatus != "" && rec.ReviewStatus != models.StatusPending {
				continue
			}
			code := rec.VendorCode
			if code == "" && rec.VendorName != "" {
				resolved, found, err := e.vendors.CodeByName(ctx, rec.VendorName)
				if err != nil {
					e.log.WithError(err).WithField("vendor", rec.VendorName).Warn("vendor code lookup failed")
				} else if found {
					code = resolved
				}
			}
			pending = append(pending, pendingRecord{
				partition:  part,
				pos:        rec.Pos,
				vendorCode: code,
				branch:     rec.Branch,
			})
		}
	}
	return pending, clean
}

func eligibleReviewers(reviewers []models.Reviewer, branch string) []models.Reviewer {
	var eligible []models.Reviewer
	for _, r := range reviewers {
		if r.ServesBranch(branch) {
			eligible = append(eligible, r)
		}
	}
	return eligible
}
