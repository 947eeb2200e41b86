// Package notify tells dataset publishers about validation errors through
// data.gouv.fr discussions, reusing the service's open thread when one exists.
package notify

import (
	"context"
	"iter"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/schema-audit/internal/model"
	"github.com/sells-group/schema-audit/internal/resilience"
)

// Store is the discussion backend.
type Store interface {
	// ListThreads returns the open threads on subjectID, most recent first.
	// An empty cursor requests the first page.
	ListThreads(ctx context.Context, subjectID, cursor string) (*model.ThreadPage, error)
	CreateThread(ctx context.Context, subjectID, title, comment string) (*model.Thread, error)
	AppendComment(ctx context.Context, threadID, comment string) error
	// Me returns the identity threads are authored under.
	Me(ctx context.Context) (string, error)
}

// ErrCursorCycle is returned when the store hands back a cursor it already
// returned for the same listing.
var ErrCursorCycle = eris.New("notify: thread listing cursor repeated")

// ErrNoPage is returned when the store answers a listing with no page.
var ErrNoPage = eris.New("notify: thread listing returned no page")

// Option configures a Deduplicator.
type Option func(*Deduplicator)

// WithTitle sets the subject line threads are matched and created with.
func WithTitle(title string) Option {
	return func(d *Deduplicator) { d.title = title }
}

// WithIdentity fixes the service identity instead of asking the store.
func WithIdentity(id string) Option {
	return func(d *Deduplicator) { d.identity = id }
}

// WithBreaker routes every store call through b.
func WithBreaker(b *resilience.Breaker) Option {
	return func(d *Deduplicator) { d.breaker = b }
}

// Deduplicator decides between opening a thread and commenting on the
// service's existing one, then does exactly that.
type Deduplicator struct {
	store    Store
	title    string
	breaker  *resilience.Breaker
	log      *zap.Logger
	mu       sync.Mutex
	identity string
}

// New returns a Deduplicator over store.
func New(store Store, opts ...Option) *Deduplicator {
	d := &Deduplicator{
		store: store,
		title: "Erreurs de conformité au schéma",
		log:   zap.L().With(zap.String("component", "notify")),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Title returns the subject line in use.
func (d *Deduplicator) Title() string { return d.title }

func call[T any](ctx context.Context, d *Deduplicator, fn func(context.Context) (T, error)) (T, error) {
	if d.breaker == nil {
		return fn(ctx)
	}
	return resilience.Call(ctx, d.breaker, fn)
}

// Identity returns the service identity, asking the store on first use.
func (d *Deduplicator) Identity(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.identity != "" {
		return d.identity, nil
	}
	id, err := call(ctx, d, d.store.Me)
	if err != nil {
		return "", eris.Wrap(err, "notify: resolve service identity")
	}
	d.identity = id
	return id, nil
}

// ThreadPages lazily walks the thread listing for subjectID. Iteration ends
// after the last page, on the first error, or when the caller stops.
func (d *Deduplicator) ThreadPages(ctx context.Context, subjectID string) iter.Seq2[*model.ThreadPage, error] {
	return func(yield func(*model.ThreadPage, error) bool) {
		seen := map[string]struct{}{}
		cursor := ""
		for {
			page, err := call(ctx, d, func(ctx context.Context) (*model.ThreadPage, error) {
				return d.store.ListThreads(ctx, subjectID, cursor)
			})
			if err != nil {
				yield(nil, eris.Wrapf(err, "notify: list threads for %s", subjectID))
				return
			}
			if page == nil {
				yield(nil, eris.Wrapf(ErrNoPage, "subject %s cursor %q", subjectID, cursor))
				return
			}
			if !yield(page, nil) || page.NextCursor == "" {
				return
			}
			if _, dup := seen[page.NextCursor]; dup {
				yield(nil, eris.Wrapf(ErrCursorCycle, "subject %s", subjectID))
				return
			}
			seen[page.NextCursor] = struct{}{}
			cursor = page.NextCursor
		}
	}
}

// Find returns AppendTo for the most recent open thread on subjectID with the
// configured title authored by the service, or CreateNew when none exists.
func (d *Deduplicator) Find(ctx context.Context, subjectID string) (model.Decision, error) {
	me, err := d.Identity(ctx)
	if err != nil {
		return model.Decision{}, err
	}

	for page, err := range d.ThreadPages(ctx, subjectID) {
		if err != nil {
			return model.Decision{}, err
		}
		for _, t := range page.Threads {
			if t.Open && t.Title == d.title && t.AuthorID == me {
				return model.AppendTo(t.ID), nil
			}
		}
	}
	return model.CreateNew(), nil
}

// Notify posts comment on subjectID, either as a new thread or on the
// service's existing one. The returned decision carries the thread used.
func (d *Deduplicator) Notify(ctx context.Context, subjectID, comment string) (model.Decision, error) {
	dec, err := d.Find(ctx, subjectID)
	if err != nil {
		return model.Decision{}, err
	}

	log := d.log.With(zap.String("dataset_id", subjectID))
	switch dec.Kind {
	case model.DecisionAppendTo:
		_, err := call(ctx, d, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, d.store.AppendComment(ctx, dec.ThreadID, comment)
		})
		if err != nil {
			return dec, eris.Wrapf(err, "notify: comment on thread %s", dec.ThreadID)
		}
		log.Info("commented on existing thread", zap.String("thread_id", dec.ThreadID))
	default:
		t, err := call(ctx, d, func(ctx context.Context) (*model.Thread, error) {
			return d.store.CreateThread(ctx, subjectID, d.title, comment)
		})
		if err != nil {
			return dec, eris.Wrap(err, "notify: create thread")
		}
		if t == nil {
			return dec, eris.Errorf("notify: create thread on %s returned no thread", subjectID)
		}
		dec.ThreadID = t.ID
		log.Info("opened thread", zap.String("thread_id", t.ID))
	}
	return dec, nil
}
