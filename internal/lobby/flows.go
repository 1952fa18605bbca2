package lobby

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/hidden-role-client/internal/crypto"
	"github.com/DoyleJ11/hidden-role-client/internal/engine"
	"github.com/DoyleJ11/hidden-role-client/internal/i18n"
	"github.com/DoyleJ11/hidden-role-client/internal/notify"
	"github.com/DoyleJ11/hidden-role-client/internal/session"
	"github.com/DoyleJ11/hidden-role-client/internal/store"
)

// Refresh

func (l *Lobby) startRefresh() bool {
	if !l.connected {
		return false
	}
	l.refreshSeq++
	l.refreshing++
	seq, gw, limit, log := l.refreshSeq, l.gateway(), l.cfg.RefreshLimit, l.log
	l.spawn(func(ctx context.Context) Msg {
		records, err := loadRecords(ctx, gw, limit, log)
		return refreshDone{seq: seq, records: records, err: err}
	})
	return true
}

// loadRecords reads every record, newest first. Records that fail to load
// are left out; only a failed listing fails the load.
func loadRecords(ctx context.Context, gw *store.Gateway, limit int, log *zap.Logger) ([]session.Record, error) {
	ids, err := gw.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	slots := make([]*session.Record, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			r, err := gw.Record(gctx, id)
			if err != nil {
				log.Debug("skipping record", zap.String("id", id), zap.Error(err))
				return nil
			}
			slots[i] = &r
			return nil
		})
	}
	_ = g.Wait()

	records := make([]session.Record, 0, len(ids))
	for _, r := range slots {
		if r != nil {
			records = append(records, *r)
		}
	}
	session.SortNewestFirst(records)
	return records, nil
}

func (l *Lobby) onRefreshDone(msg refreshDone) bool {
	l.refreshing--
	if msg.seq < l.appliedSeq {
		l.log.Debug("discarding stale refresh", zap.Uint64("seq", msg.seq))
		return true
	}
	if msg.err != nil {
		l.log.Warn("refresh failed", zap.Error(msg.err))
		l.notes.Show(notify.KindError, l.cfg.Text.Text(i18n.MsgStoreUnavailable))
		return true
	}
	l.appliedSeq = msg.seq
	l.records = l.reveals.Pin(msg.records)
	return true
}

// Creation

func (l *Lobby) startCreate(form session.Form) bool {
	if form == (session.Form{}) {
		form = l.form
	} else {
		l.form = form
	}
	if !l.connected {
		l.notes.Show(notify.KindError, l.cfg.Text.Text(i18n.MsgNotConnected))
		return true
	}
	if l.creating {
		l.log.Debug("create ignored: already in flight")
		return false
	}
	if err := form.Validate(); err != nil {
		l.notes.Show(notify.KindError, l.cfg.Text.Text(i18n.MsgInvalidForm, err.Error()))
		return true
	}
	next, err := engine.Apply(l.create, engine.EvtStarted)
	if err != nil {
		l.log.Warn("create not started", zap.Error(err))
		return false
	}

	l.create = next
	l.creating = true
	l.pending(i18n.MsgEncrypting)

	gw, id := l.gateway(), l.cfg.NewID()
	l.log.Debug("create started", zap.String("id", id), zap.String("phase", string(next.Phase)))
	l.spawn(func(ctx context.Context) Msg {
		return l.runCreate(ctx, gw, id, form)
	})
	return true
}

// runCreate runs off the loop. It reads only immutable config and reports
// through post.
func (l *Lobby) runCreate(ctx context.Context, gw *store.Gateway, id string, form session.Form) (res createDone) {
	res.id = id
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("create %s: panic: %v", id, r)
		}
	}()

	value, err := l.cfg.Roles.Next()
	if err != nil {
		res.err = err
		return res
	}
	sealed, err := l.cfg.Crypto.Encrypt(ctx, crypto.Context{Contract: gw.Contract(), Account: gw.Account()}, value)
	if err != nil {
		res.err = err
		return res
	}
	l.post(progress{flow: engine.FlowCreate, id: id, evt: engine.EvtEncrypted})

	tx, err := gw.CreateRecord(ctx, store.NewRecord{
		ID:          id,
		DisplayName: strings.TrimSpace(form.DisplayName),
		Description: DefaultDescription,
		Capacity:    form.Capacity,
		Sealed:      sealed,
	})
	if err != nil {
		res.err = err
		return res
	}
	l.post(progress{flow: engine.FlowCreate, id: id, evt: engine.EvtAccepted})

	if _, err := tx.Wait(ctx); err != nil {
		res.err = err
	}
	return res
}

func (l *Lobby) onCreateDone(msg createDone) bool {
	l.creating = false
	log := l.log.With(zap.String("id", msg.id))

	if msg.err != nil {
		if next, err := engine.Apply(l.create, engine.EvtFailed); err == nil {
			l.create = next
		}
		log.Warn("create failed", zap.String("class", string(Classify(msg.err))), zap.Error(msg.err))
		l.fail(msg.err, i18n.MsgCreateFailed)
		return true
	}

	next, err := engine.Apply(l.create, engine.EvtConfirmed)
	if err != nil {
		log.Warn("create confirmation out of order", zap.Error(err))
	}
	l.create = next
	log.Info("session created")

	l.success(i18n.MsgCreated)
	l.formOpen = false
	l.form = session.NewForm()
	l.startRefresh()
	return true
}

// Verification

func (l *Lobby) startVerify(id string) bool {
	if id == "" {
		id = l.selectedID
	}
	if id == "" {
		return false
	}
	if !l.connected {
		l.notes.Show(notify.KindError, l.cfg.Text.Text(i18n.MsgNotConnected))
		return true
	}
	if l.verifying[id] {
		l.log.Debug("verify ignored: already in flight", zap.String("id", id))
		return false
	}

	st, ok := l.verify[id]
	if !ok {
		st = engine.NewState(engine.FlowVerify)
	}
	next, err := engine.Apply(st, engine.EvtStarted)
	if err != nil {
		l.log.Warn("verify not started", zap.String("id", id), zap.Error(err))
		return false
	}
	l.verify[id] = next
	l.verifying[id] = true
	l.pending(i18n.MsgChecking)

	gw, epoch := l.gateway(), l.selEpoch
	l.spawn(func(ctx context.Context) Msg {
		return l.runVerify(ctx, gw, id, epoch)
	})
	return true
}

func (l *Lobby) runVerify(ctx context.Context, gw *store.Gateway, id string, epoch uint64) (res verifyDone) {
	res = verifyDone{id: id, epoch: epoch}
	defer func() {
		if r := recover(); r != nil {
			res.outcome = outcomeFailed
			res.err = fmt.Errorf("verify %s: panic: %v", id, r)
		}
	}()

	rec, err := gw.Record(ctx, id)
	if err != nil {
		res.err = err
		return res
	}
	if v, ok := rec.Revealed(); ok {
		res.outcome = outcomeAlreadyVerified
		res.value, res.known = v, true
		res.record = &rec
		return res
	}
	l.post(progress{flow: engine.FlowVerify, id: id, evt: engine.EvtFoundUnverified})

	handle, err := gw.SecretHandle(ctx, id)
	if err != nil {
		res.err = err
		return res
	}
	l.post(progress{flow: engine.FlowVerify, id: id, evt: engine.EvtHandleResolved})

	// The record's secret was sealed for its creator.
	cc := crypto.Context{Contract: gw.Contract(), Account: rec.Creator}
	var cleared []byte
	dec, err := l.cfg.Crypto.DecryptAndProve(ctx, []crypto.Handle{handle}, cc, func(ctx context.Context, c, proof []byte) error {
		cleared = c
		l.post(progress{flow: engine.FlowVerify, id: id, evt: engine.EvtDecrypted})
		tx, err := gw.SubmitVerification(ctx, id, c, proof)
		if err != nil {
			return err
		}
		_, err = tx.Wait(ctx)
		return err
	})

	switch {
	case err == nil:
		res.outcome = outcomeConfirmed
		res.value, res.known = dec.Values[handle]
	case Classify(err) == ClassAlreadyVerified && cleared != nil:
		res.outcome = outcomeRaceLost
		if values, derr := crypto.DecodeCleared(cleared); derr == nil && len(values) > 0 {
			res.value, res.known = values[0], true
		}
	default:
		res.err = err
		return res
	}

	if fresh, err := gw.Record(ctx, id); err == nil {
		res.record = &fresh
	}
	return res
}

func (l *Lobby) onVerifyDone(msg verifyDone) bool {
	delete(l.verifying, msg.id)
	log := l.log.With(zap.String("id", msg.id))

	evt := engine.EvtFailed
	switch {
	case msg.err != nil:
	case msg.outcome == outcomeAlreadyVerified:
		evt = engine.EvtFoundVerified
	case msg.outcome == outcomeConfirmed:
		evt = engine.EvtConfirmed
	case msg.outcome == outcomeRaceLost:
		evt = engine.EvtRaceLost
	}
	next, err := engine.Apply(l.verify[msg.id], evt)
	if err != nil {
		log.Warn("verify result out of order", zap.String("event", string(evt)), zap.Error(err))
	} else {
		l.verify[msg.id] = next
	}

	if msg.err != nil {
		log.Warn("verify failed", zap.String("class", string(Classify(msg.err))), zap.Error(msg.err))
		l.fail(msg.err, i18n.MsgVerifyFailed)
		return true
	}

	if msg.record != nil {
		l.records = l.reveals.Pin(session.Upsert(l.records, *msg.record))
	}
	if msg.known && msg.id == l.selectedID && msg.epoch == l.selEpoch {
		v := msg.value
		l.localValue = &v
	}

	switch msg.outcome {
	case outcomeAlreadyVerified:
		log.Info("already verified", zap.Uint64("value", msg.value))
		l.success(i18n.MsgAlreadyVerified)
	case outcomeConfirmed:
		log.Info("verified", zap.Uint64("value", msg.value))
		l.success(i18n.MsgVerified)
		l.startRefresh()
	case outcomeRaceLost:
		log.Info("verified by another party")
		l.success(i18n.MsgAlreadyVerified)
		l.startRefresh()
	}
	return true
}

func (l *Lobby) onProgress(msg progress) bool {
	log := l.log.With(zap.String("flow", string(msg.flow)), zap.String("id", msg.id))

	switch msg.flow {
	case engine.FlowCreate:
		next, err := engine.Apply(l.create, msg.evt)
		if err != nil {
			log.Warn("dropping event", zap.String("event", string(msg.evt)), zap.Error(err))
			return false
		}
		l.create = next
		log.Debug("phase", zap.String("phase", string(next.Phase)))
		switch next.Phase {
		case engine.PhaseSubmitting:
			l.pending(i18n.MsgSubmitting)
		case engine.PhaseConfirming:
			l.pending(i18n.MsgConfirming)
		}

	case engine.FlowVerify:
		next, err := engine.Apply(l.verify[msg.id], msg.evt)
		if err != nil {
			log.Warn("dropping event", zap.String("event", string(msg.evt)), zap.Error(err))
			return false
		}
		l.verify[msg.id] = next
		log.Debug("phase", zap.String("phase", string(next.Phase)))
		switch next.Phase {
		case engine.PhaseDecrypting:
			l.pending(i18n.MsgDecrypting)
		case engine.PhaseSubmittingProof:
			l.pending(i18n.MsgVerifying)
		}
	}
	return true
}
