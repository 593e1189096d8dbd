// Package sync keeps the local event, regform and participant tables
// converged with the remote check-in service. It only ever pulls.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/events"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/reconcile"
	"github.com/marcus/checkin/internal/syncclient"
)

// DefaultConcurrency bounds the event fetch fan-out.
const DefaultConcurrency = 8

// Store is the local store surface the orchestrator needs.
type Store interface {
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	GetRegform(ctx context.Context, id int64) (*models.Regform, error)
	GetParticipant(ctx context.Context, id int64) (*models.Participant, error)
	ListEvents(ctx context.Context, includeDeleted bool) ([]models.Event, error)
	ListRegforms(ctx context.Context, eventID int64, includeDeleted bool) ([]models.Regform, error)
	Update(ctx context.Context, table events.EntityType, id int64, fields models.Fields) error
	Transaction(ctx context.Context, tables []events.EntityType, fn func(*db.Tx) error) error
}

// Fetcher retrieves remote state. Implementations never return errors
// directly; failures are described by the response outcome.
type Fetcher interface {
	GetEvent(ctx context.Context, p syncclient.Params) syncclient.Response[syncclient.EventData]
	GetRegforms(ctx context.Context, p syncclient.Params) syncclient.Response[[]syncclient.RegformData]
	GetRegform(ctx context.Context, p syncclient.Params) syncclient.Response[syncclient.RegformData]
	GetParticipants(ctx context.Context, p syncclient.Params) syncclient.Response[[]syncclient.ParticipantData]
	GetParticipant(ctx context.Context, p syncclient.Params) syncclient.Response[syncclient.ParticipantData]
}

// Syncer runs sync operations against one store.
type Syncer struct {
	store       Store
	fetch       Fetcher
	alert       AlertFunc
	concurrency int
	inflight    *inflight
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithConcurrency sets how many event fetches may run at once.
func WithConcurrency(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New creates a Syncer. alert may be nil, in which case surfaced
// failures are only logged.
func New(store Store, fetch Fetcher, alert AlertFunc, opts ...Option) *Syncer {
	s := &Syncer{
		store:       store,
		fetch:       fetch,
		concurrency: DefaultConcurrency,
		inflight:    newInflight(),
	}
	s.alert = func(a Alert) {
		slog.Warn("sync: surfaced failure", "title", a.Title, "content", a.Content)
		if alert != nil {
			alert(a)
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// In-flight registry keys. Each names the operation and whose local ID
// follows, since list and single syncs of the same kind must not collide.
const (
	opEvent        = "event"
	opRegforms     = "regforms-of-event"
	opRegform      = "regform"
	opParticipants = "participants-of-regform"
	opParticipant  = "participant"
)

func eventParams(e models.Event) syncclient.Params {
	return syncclient.Params{ServerID: e.ServerID, EventID: e.IndicoID}
}

func regformParams(e models.Event, r models.Regform) syncclient.Params {
	p := eventParams(e)
	p.RegformID = r.IndicoID
	return p
}

// storeErr wraps a local store failure. A failure caused by the caller's
// cancellation is an abort and is swallowed.
func storeErr(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		slog.Debug("sync: aborted during write", "op", op)
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

func withUndeleted(f models.Fields) models.Fields {
	f[db.ColumnDeleted] = false
	return f
}

var softDeleted = models.Fields{db.ColumnDeleted: true}

// SyncEvents fetches every event concurrently, waits for all of them and
// then applies the results one by one. A failed fetch only affects its
// own event. An event listed twice is synced once.
func (s *Syncer) SyncEvents(ctx context.Context, evs []models.Event) error {
	evs = uniqueEvents(evs)
	type result struct {
		ctx  context.Context
		resp syncclient.Response[syncclient.EventData]
	}
	results := make([]result, len(evs))
	dones := make([]func(), len(evs))
	defer func() {
		for _, done := range dones {
			if done != nil {
				done()
			}
		}
	}()

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, ev := range evs {
		rctx, done := s.inflight.begin(ctx, opEvent, ev.ID)
		dones[i] = done
		g.Go(func() error {
			results[i] = result{ctx: rctx, resp: s.fetch.GetEvent(rctx, eventParams(ev))}
			return nil
		})
	}
	g.Wait()

	for i, ev := range evs {
		r := results[i]
		d := Classify(r.resp.Outcome)
		if r.ctx.Err() != nil {
			d = Ignore
		}
		slog.Debug("sync: event", "event", ev.ID, "disposition", d)

		var err error
		switch d {
		case Apply:
			err = s.store.Update(r.ctx, events.EntityEvents, ev.ID, withUndeleted(reconcile.EventFields(r.resp.Data)))
		case SoftDelete:
			err = s.store.Update(r.ctx, events.EntityEvents, ev.ID, softDeleted)
		case Surface:
			HandleError(r.resp.Outcome, msgEvents, s.alert)
		}
		if err := storeErr(r.ctx, "sync events", err); err != nil {
			return err
		}
	}
	return nil
}

// SyncEvent refreshes a single event.
func (s *Syncer) SyncEvent(ctx context.Context, ev models.Event) error {
	return s.SyncEvents(ctx, []models.Event{ev})
}

// SyncRegforms reconciles the regforms of an event in one transaction.
// Forms only known upstream are not added locally.
func (s *Syncer) SyncRegforms(ctx context.Context, ev models.Event) error {
	ctx, done := s.inflight.begin(ctx, opRegforms, ev.ID)
	defer done()

	resp := s.fetch.GetRegforms(ctx, eventParams(ev))
	if !resp.OK {
		HandleError(resp.Outcome, msgRegforms, s.alert)
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}

	err := s.store.Transaction(ctx, []events.EntityType{events.EntityRegforms}, func(tx *db.Tx) error {
		local, err := tx.RegformsByEvent(ev.ID)
		if err != nil {
			return err
		}
		in := reconcile.Reconcile(local, resp.Data, reconcile.RegformRule(ev.ID))
		slog.Debug("sync: regforms", "event", ev.ID, "deleted", len(in.SoftDeletes),
			"inserted", len(in.Inserts), "updated", len(in.Updates))

		if err := tx.BulkUpdate(events.EntityRegforms, in.SoftDeletes); err != nil {
			return err
		}
		if len(in.Inserts) > 0 {
			if _, err := tx.AddRegforms(in.Inserts); err != nil {
				return err
			}
		}
		return tx.BulkUpdate(events.EntityRegforms, in.Updates)
	})
	return storeErr(ctx, "sync regforms", err)
}

// SyncRegform refreshes a single regform.
func (s *Syncer) SyncRegform(ctx context.Context, ev models.Event, rf models.Regform) error {
	ctx, done := s.inflight.begin(ctx, opRegform, rf.ID)
	defer done()

	resp := s.fetch.GetRegform(ctx, regformParams(ev, rf))
	d := Classify(resp.Outcome)
	if ctx.Err() != nil {
		d = Ignore
	}

	var err error
	switch d {
	case Apply:
		err = s.store.Update(ctx, events.EntityRegforms, rf.ID, withUndeleted(reconcile.RegformFields(resp.Data)))
	case SoftDelete:
		err = s.store.Update(ctx, events.EntityRegforms, rf.ID, softDeleted)
	case Ignore:
		slog.Debug("sync: regform skipped", "regform", rf.ID)
	case Surface:
		HandleError(resp.Outcome, msgRegform, s.alert)
	}
	return storeErr(ctx, "sync regform", err)
}

// SyncParticipants reconciles the participants of a regform in one
// transaction: vanished participants are soft-deleted, new ones added and
// the rest refreshed. Local notes are never touched.
func (s *Syncer) SyncParticipants(ctx context.Context, ev models.Event, rf models.Regform) error {
	ctx, done := s.inflight.begin(ctx, opParticipants, rf.ID)
	defer done()

	resp := s.fetch.GetParticipants(ctx, regformParams(ev, rf))
	if !resp.OK {
		HandleError(resp.Outcome, msgParticipants, s.alert)
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}

	err := s.store.Transaction(ctx, []events.EntityType{events.EntityParticipants}, func(tx *db.Tx) error {
		local, err := tx.ParticipantsByRegform(rf.ID)
		if err != nil {
			return err
		}
		in := reconcile.Reconcile(local, resp.Data, reconcile.ParticipantRule(rf.ID))
		slog.Debug("sync: participants", "regform", rf.ID, "deleted", len(in.SoftDeletes),
			"inserted", len(in.Inserts), "updated", len(in.Updates))

		if err := tx.BulkUpdate(events.EntityParticipants, in.SoftDeletes); err != nil {
			return err
		}
		if len(in.Inserts) > 0 {
			if _, err := tx.AddParticipants(in.Inserts); err != nil {
				return err
			}
		}
		return tx.BulkUpdate(events.EntityParticipants, in.Updates)
	})
	return storeErr(ctx, "sync participants", err)
}

// SyncParticipant refreshes a single participant, keeping its notes.
func (s *Syncer) SyncParticipant(ctx context.Context, ev models.Event, rf models.Regform, p models.Participant) error {
	ctx, done := s.inflight.begin(ctx, opParticipant, p.ID)
	defer done()

	params := regformParams(ev, rf)
	params.ParticipantID = p.IndicoID
	resp := s.fetch.GetParticipant(ctx, params)
	d := Classify(resp.Outcome)
	if ctx.Err() != nil {
		d = Ignore
	}

	var err error
	switch d {
	case Apply:
		err = s.store.Update(ctx, events.EntityParticipants, p.ID, withUndeleted(reconcile.ParticipantFields(resp.Data)))
	case SoftDelete:
		err = s.store.Update(ctx, events.EntityParticipants, p.ID, softDeleted)
	case Ignore:
		slog.Debug("sync: participant skipped", "participant", p.ID)
	case Surface:
		HandleError(resp.Outcome, msgParticipant, s.alert)
	}
	return storeErr(ctx, "sync participant", err)
}

// SyncParticipantPage refreshes what a participant detail view shows:
// the event, then the regform, then the participant. Missing local
// records end the sequence quietly.
func (s *Syncer) SyncParticipantPage(ctx context.Context, eventID, regformID, participantID int64) error {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return ignoreNotFound(err)
	}
	rf, err := s.store.GetRegform(ctx, regformID)
	if err != nil {
		return ignoreNotFound(err)
	}
	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return ignoreNotFound(err)
	}

	if err := s.SyncEvent(ctx, *ev); err != nil {
		return err
	}
	if err := s.SyncRegform(ctx, *ev, *rf); err != nil {
		return err
	}
	return s.SyncParticipant(ctx, *ev, *rf, *p)
}

// SyncAll walks every live event, then its regforms, then their
// participants. Each step commits on its own.
func (s *Syncer) SyncAll(ctx context.Context) error {
	evs, err := s.store.ListEvents(ctx, false)
	if err != nil {
		return storeErr(ctx, "list events", err)
	}
	if err := s.SyncEvents(ctx, evs); err != nil {
		return err
	}

	// Re-read: some events may have just been soft-deleted.
	evs, err = s.store.ListEvents(ctx, false)
	if err != nil {
		return storeErr(ctx, "list events", err)
	}
	for _, ev := range evs {
		if ctx.Err() != nil {
			return nil
		}
		if err := s.SyncRegforms(ctx, ev); err != nil {
			return err
		}
		rfs, err := s.store.ListRegforms(ctx, ev.ID, false)
		if err != nil {
			return storeErr(ctx, "list regforms", err)
		}
		for _, rf := range rfs {
			if err := s.SyncParticipants(ctx, ev, rf); err != nil {
				return err
			}
		}
	}
	slog.Info("sync: complete", "events", len(evs))
	return nil
}

// uniqueEvents drops repeated local IDs, keeping the first. Two runs for
// one event in the same pass would cancel each other in the registry.
func uniqueEvents(evs []models.Event) []models.Event {
	seen := make(map[int64]struct{}, len(evs))
	out := evs[:0:0]
	for _, ev := range evs {
		if _, ok := seen[ev.ID]; ok {
			continue
		}
		seen[ev.ID] = struct{}{}
		out = append(out, ev)
	}
	return out
}

func ignoreNotFound(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	return err
}
