// Package submit sends prepared work logs to a downstream system, one at a
// time, and collects per-item outcomes.
//
// A Coordinator lives for exactly one run. It owns the run's tag and issue-id
// caches, which are filled by explicit upfront calls (LoadTags,
// PrefetchIssueIDs) before payloads are built.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/time/rate"

	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
	"github.com/Tiliavir/toggl-worklog-sync/internal/syncerr"
)

// Creator performs one downstream create and returns the new record's id.
type Creator interface {
	Create(ctx context.Context, p model.WorkLogPayload) (string, error)
}

// IssueResolver maps issue keys to downstream issue ids. It may return a
// partial mapping together with an error.
type IssueResolver interface {
	ResolveIDs(ctx context.Context, keys []string) (map[string]string, error)
}

// TagLister lists the tags known to the tagged-entry system.
type TagLister interface {
	ListTags(ctx context.Context) ([]model.Tag, error)
}

// Coordinator submits payloads sequentially for one run.
type Coordinator struct {
	creator Creator
	issues  IssueResolver
	tags    TagLister
	limiter *rate.Limiter
	logger  *slog.Logger

	// AfterSubmit, if set, runs after each accepted payload, before the next
	// payload is sent. Its error is logged and does not change the outcome.
	AfterSubmit func(ctx context.Context, s model.Submission) error

	issueIDs   map[string]string
	tagIDs     map[string]string
	tagsLoaded bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithIssueResolver sets the resolver used by PrefetchIssueIDs.
func WithIssueResolver(r IssueResolver) Option {
	return func(c *Coordinator) { c.issues = r }
}

// WithTagLister sets the tag source used by LoadTags.
func WithTagLister(t TagLister) Option {
	return func(c *Coordinator) { c.tags = t }
}

// WithRateLimit paces creates to at most perSecond requests per second.
// Zero or negative disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(c *Coordinator) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// DefaultRequestsPerSecond is the pacing used when none is configured.
const DefaultRequestsPerSecond = 5

// New returns a coordinator that creates records through creator.
func New(creator Creator, opts ...Option) *Coordinator {
	c := &Coordinator{
		creator:  creator,
		limiter:  rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
		logger:   slog.Default(),
		issueIDs: map[string]string{},
		tagIDs:   map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadTags fills the tag name → id cache. Only the first call per
// coordinator contacts the tag source.
func (c *Coordinator) LoadTags(ctx context.Context) error {
	if c.tagsLoaded || c.tags == nil {
		return nil
	}
	tags, err := c.tags.ListTags(ctx)
	if err != nil {
		c.logger.Warn("loading tags failed; entries will be sent without tag ids", "error", err)
		return fmt.Errorf("%w: loading tags: %v", syncerr.ErrPartialResolution, err)
	}
	for _, t := range tags {
		c.tagIDs[t.Name] = t.ID
	}
	c.tagsLoaded = true
	c.logger.Debug("loaded tags", "count", len(tags))
	return nil
}

// PrefetchIssueIDs resolves every distinct key not yet cached in one bulk
// call. Whatever the resolver returns is cached even when it also reports an
// error; the error is logged and returned wrapped in ErrPartialResolution.
func (c *Coordinator) PrefetchIssueIDs(ctx context.Context, keys []string) error {
	if c.issues == nil {
		return nil
	}
	missing := c.uncachedKeys(keys)
	if len(missing) == 0 {
		return nil
	}

	resolved, err := c.issues.ResolveIDs(ctx, missing)
	for k, id := range resolved {
		c.issueIDs[k] = id
	}
	if err != nil {
		c.logger.Warn("issue id prefetch incomplete", "requested", len(missing), "resolved", len(resolved), "error", err)
		return fmt.Errorf("%w: resolved %d of %d issue ids: %v", syncerr.ErrPartialResolution, len(resolved), len(missing), err)
	}
	if unresolved := c.uncachedKeys(missing); len(unresolved) > 0 {
		c.logger.Warn("issues not found downstream", "keys", strings.Join(unresolved, ","))
	}
	return nil
}

func (c *Coordinator) uncachedKeys(keys []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := c.issueIDs[k]; ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IssueID returns the cached downstream id for key, or nil.
func (c *Coordinator) IssueID(key string) *string {
	id, ok := c.issueIDs[key]
	if !ok {
		return nil
	}
	return &id
}

// IssueLogPayload builds an issue work-log payload from a group: started at
// the first entry, total duration, and a comment made of the distinct entry
// descriptions in start order.
func (c *Coordinator) IssueLogPayload(g model.Group) model.WorkLogPayload {
	var lines []string
	seen := map[string]struct{}{}
	for _, e := range g.Entries {
		d := strings.TrimSpace(e.Description)
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		lines = append(lines, d)
	}

	entries := make([]model.NormalizedEntry, len(g.Entries))
	copy(entries, g.Entries)

	return model.WorkLogPayload{
		Target:          model.TargetJira,
		IssueKey:        g.IssueKey,
		IssueID:         c.IssueID(g.IssueKey),
		Started:         g.Start(),
		DurationSeconds: g.TotalSeconds,
		Comment:         strings.Join(lines, "\n"),
		Entries:         entries,
	}
}

// TaggedPayload builds a tagged time-entry payload from one entry. Tags that
// are unknown downstream are dropped; an unresolved issue leaves IssueID nil.
func (c *Coordinator) TaggedPayload(e model.NormalizedEntry) model.WorkLogPayload {
	var tagIDs []string
	for _, name := range e.Tags {
		id, ok := c.tagIDs[name]
		if !ok {
			c.logger.Debug("tag unknown downstream", "tag", name, "entry", e.ID)
			continue
		}
		tagIDs = append(tagIDs, id)
	}

	return model.WorkLogPayload{
		Target:          model.TargetTimesheet,
		IssueKey:        e.Issue(),
		IssueID:         c.IssueID(e.Issue()),
		Started:         e.StartedAt,
		DurationSeconds: e.DurationSeconds,
		Comment:         e.Description,
		TagIDs:          tagIDs,
		Entries:         []model.NormalizedEntry{e},
	}
}

// SubmitAll sends payloads one at a time in list order. A failure is recorded
// and the next payload is still attempted; nothing is retried. Every payload
// ends up in exactly one of the result's sequences.
func (c *Coordinator) SubmitAll(ctx context.Context, payloads []model.WorkLogPayload) model.BatchResult {
	var result model.BatchResult
	for i, p := range payloads {
		log := c.logger.With("item", i+1, "of", len(payloads), "issue", p.IssueKey)

		id, err := c.submit(ctx, p)
		if err != nil {
			log.Error("submission failed", "error", err)
			result.Failed = append(result.Failed, model.Failure{Payload: p, Message: failureMessage(err), Err: err})
			continue
		}

		s := model.Submission{Payload: p, DownstreamID: id}
		result.Successful = append(result.Successful, s)
		log.Info("submitted", "id", id, "seconds", p.DurationSeconds)

		if c.AfterSubmit != nil {
			if err := c.AfterSubmit(ctx, s); err != nil {
				log.Error("post-submit hook failed", "id", id, "error", err)
			}
		}
	}
	return result
}

func (c *Coordinator) submit(ctx context.Context, p model.WorkLogPayload) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: waiting to submit: %v", syncerr.ErrTransport, err)
	}
	id, err := c.creator.Create(ctx, p)
	if err != nil {
		if !errors.Is(err, syncerr.ErrTransport) {
			err = fmt.Errorf("%w: %w", syncerr.ErrTransport, err)
		}
		return "", err
	}
	return id, nil
}

// failureMessage strips the transport marker so the message reads like the
// underlying error.
func failureMessage(err error) string {
	return strings.TrimPrefix(err.Error(), syncerr.ErrTransport.Error()+": ")
}
