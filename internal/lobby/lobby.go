// Package lobby runs the session client for one account: it owns the record
// list, the selection, the creation form and the status banner, and drives
// the creation and verification flows against the store and crypto engine.
//
// All state lives in one goroutine. Store and crypto calls run in task
// goroutines that post their results back to the inbox.
package lobby

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/hidden-role-client/internal/crypto"
	"github.com/DoyleJ11/hidden-role-client/internal/engine"
	"github.com/DoyleJ11/hidden-role-client/internal/i18n"
	"github.com/DoyleJ11/hidden-role-client/internal/notify"
	"github.com/DoyleJ11/hidden-role-client/internal/session"
	"github.com/DoyleJ11/hidden-role-client/internal/store"
	"github.com/DoyleJ11/hidden-role-client/internal/wallet"
)

const (
	DefaultFlowTimeout  = 2 * time.Minute
	DefaultRefreshLimit = 8
	DefaultDescription  = "Werewolf game"
)

type Config struct {
	Account string // display name of the account this lobby serves
	Backend store.Backend
	Signer  wallet.Signer // nil: the account cannot connect
	Crypto  crypto.Engine
	Roles   session.RoleSource
	Delays  notify.Delays
	Text    *i18n.Localizer
	Log     *zap.Logger

	FlowTimeout  time.Duration
	RefreshLimit int
	NewID        func() string
}

func (c *Config) defaults() {
	if c.Roles == nil {
		c.Roles = session.RandomRoles
	}
	if c.Delays == (notify.Delays{}) {
		c.Delays = notify.DefaultDelays
	}
	if c.Text == nil {
		c.Text = i18n.New("en")
	}
	if c.Log == nil {
		c.Log = zap.NewNop()
	}
	if c.FlowTimeout <= 0 {
		c.FlowTimeout = DefaultFlowTimeout
	}
	if c.RefreshLimit <= 0 {
		c.RefreshLimit = DefaultRefreshLimit
	}
	if c.NewID == nil {
		c.NewID = func() string { return "game-" + uuid.NewString() }
	}
}

type Lobby struct {
	cfg    Config
	log    *zap.Logger
	inbox  chan Msg
	notes  *notify.Notifier
	ctx    context.Context
	cancel context.CancelFunc

	version int
	clients map[string]chan View

	connected    bool
	initializing bool

	records    []session.Record
	reveals    session.Reveals
	refreshSeq uint64
	appliedSeq uint64
	refreshing int

	formOpen bool
	form     session.Form
	creating bool
	create   engine.State

	selectedID string
	selEpoch   uint64
	localValue *uint64
	verifying  map[string]bool
	verify     map[string]engine.State
}

func NewLobby(parent context.Context, cfg Config) *Lobby {
	cfg.defaults()
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		cfg:       cfg,
		log:       cfg.Log.Named("lobby").With(zap.String("account", cfg.Account)),
		inbox:     make(chan Msg, 64),
		ctx:       ctx,
		cancel:    cancel,
		clients:   make(map[string]chan View),
		reveals:   session.Reveals{},
		form:      session.NewForm(),
		create:    engine.NewState(engine.FlowCreate),
		verifying: make(map[string]bool),
		verify:    make(map[string]engine.State),
	}
	l.notes = notify.New(cfg.Delays, notify.WithOnExpire(func(notify.Notification) {
		l.post(notificationExpired{})
	}))

	go l.loop()
	return l
}

// Inbox exposes the inbox so the hub and the presentation layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby has shut down.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

// Send delivers m unless the lobby has shut down.
func (l *Lobby) Send(m Msg) bool {
	select {
	case l.inbox <- m:
		return true
	case <-l.ctx.Done():
		return false
	}
}

// View returns the current view, or false if the lobby shut down first.
func (l *Lobby) View(ctx context.Context) (View, bool) {
	reply := make(chan View, 1)
	if !l.Send(GetState{Reply: reply}) {
		return View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-ctx.Done():
		return View{}, false
	case <-l.ctx.Done():
		return View{}, false
	}
}

func (l *Lobby) post(m Msg) { l.Send(m) }

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			if _, ok := m.(Shutdown); ok {
				l.shutdown()
				return
			}
			if l.handle(m) {
				l.version++
				l.broadcast(l.view())
			}
		}
	}
}

// handle applies m and reports whether the view changed.
func (l *Lobby) handle(m Msg) bool {
	switch msg := m.(type) {
	case Join:
		l.clients[msg.ClientID] = msg.Outbox
		msg.Outbox <- l.view()
		return false

	case Leave:
		delete(l.clients, msg.ClientID)
		return false

	case GetState:
		msg.Reply <- l.view()
		return false

	case Connect:
		return l.onConnect()
	case Disconnect:
		return l.onDisconnect()
	case Refresh:
		return l.startRefresh()
	case OpenForm:
		l.formOpen = true
		return true
	case CloseForm:
		l.formOpen = false
		return true
	case EditForm:
		l.form = msg.Form
		return true
	case Create:
		return l.startCreate(msg.Form)
	case Select:
		return l.onSelect(msg.ID)
	case Deselect:
		return l.onSelect("")
	case Verify:
		return l.startVerify(msg.ID)
	case Dismiss:
		l.notes.Dismiss()
		return true
	case Probe:
		gw := l.gateway()
		l.spawn(func(ctx context.Context) Msg {
			return probeDone{err: gw.Available(ctx)}
		})
		return false

	case initDone:
		return l.onInitDone(msg)
	case refreshDone:
		return l.onRefreshDone(msg)
	case progress:
		return l.onProgress(msg)
	case createDone:
		return l.onCreateDone(msg)
	case verifyDone:
		return l.onVerifyDone(msg)
	case probeDone:
		if msg.err != nil {
			l.fail(msg.err, i18n.MsgProbeFailed)
		} else {
			l.notes.Show(notify.KindSuccess, l.cfg.Text.Text(i18n.MsgAvailable))
		}
		return true
	case notificationExpired:
		return true
	}
	return false
}

func (l *Lobby) shutdown() {
	l.notes.Close()
	for id, ch := range l.clients {
		close(ch) // no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(v View) {
	for id, ch := range l.clients {
		select {
		case ch <- v:
		default:
			// Slow client: drop it.
			close(ch)
			delete(l.clients, id)
		}
	}
}

// spawn runs task off the loop and posts its result.
func (l *Lobby) spawn(task func(ctx context.Context) Msg) {
	go func() {
		ctx, cancel := context.WithTimeout(l.ctx, l.cfg.FlowTimeout)
		defer cancel()
		l.post(task(ctx))
	}()
}

// gateway returns a signing gateway when connected and a read-only one otherwise.
func (l *Lobby) gateway() *store.Gateway {
	var signer wallet.Signer
	if l.connected {
		signer = l.cfg.Signer
	}
	return store.NewGateway(l.cfg.Backend, signer, l.log)
}

func (l *Lobby) address() string {
	if l.cfg.Signer == nil {
		return ""
	}
	return l.cfg.Signer.Address()
}

func (l *Lobby) onConnect() bool {
	if l.cfg.Signer == nil {
		l.notes.Show(notify.KindError, l.cfg.Text.Text(i18n.MsgNotConnected))
		return true
	}
	if l.connected {
		return false
	}
	l.connected = true
	l.log.Info("connected", zap.String("address", l.address()))
	l.maybeInit()
	l.startRefresh()
	return true
}

func (l *Lobby) onDisconnect() bool {
	if !l.connected {
		return false
	}
	l.connected = false
	l.log.Info("disconnected")
	l.maybeInit()
	return true
}

// maybeInit starts crypto initialization when connected, not ready and not
// already initializing.
func (l *Lobby) maybeInit() {
	if !l.connected || l.initializing || l.cfg.Crypto.Status() == crypto.StatusReady {
		return
	}
	l.initializing = true
	l.spawn(func(ctx context.Context) Msg {
		return initDone{err: l.cfg.Crypto.Init(ctx)}
	})
}

func (l *Lobby) onInitDone(msg initDone) bool {
	l.initializing = false
	if msg.err != nil {
		l.log.Warn("crypto init failed", zap.Error(msg.err))
		l.notes.Show(notify.KindError, l.cfg.Text.Text(i18n.MsgInitFailed))
	}
	return true
}

func (l *Lobby) onSelect(id string) bool {
	if id == l.selectedID {
		return false
	}
	l.selectedID = id
	l.selEpoch++
	l.localValue = nil
	return true
}

// fail shows the error notification for err. Classes with their own message
// use it; everything else is reported through generic with the error text.
func (l *Lobby) fail(err error, generic i18n.Key) {
	var text string
	switch Classify(err) {
	case ClassNotConnected:
		text = l.cfg.Text.Text(i18n.MsgNotConnected)
	case ClassInitFailure:
		text = l.cfg.Text.Text(i18n.MsgInitFailed)
	case ClassUserRejected:
		text = l.cfg.Text.Text(i18n.MsgUserRejected)
	case ClassRecordNotFound:
		text = l.cfg.Text.Text(i18n.MsgNotFound)
	default:
		text = l.cfg.Text.Text(generic, err.Error())
	}
	l.notes.Show(notify.KindError, text)
}

func (l *Lobby) pending(key i18n.Key) {
	l.notes.Show(notify.KindPending, l.cfg.Text.Text(key))
}

func (l *Lobby) success(key i18n.Key) {
	l.notes.Show(notify.KindSuccess, l.cfg.Text.Text(key))
}
