package hub

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/hidden-role-client/internal/lobby"
	"github.com/DoyleJ11/hidden-role-client/internal/wallet"
)

var errEmptyAccount = errors.New("empty account name")

type HubMsg interface{ isHubMsg() }

type GetLobby struct {
	Account string
	Reply   chan *lobby.Lobby
}

// EnsureLobby replies with the account's lobby, starting it if needed.
// The reply is nil when no lobby can be started for the account.
type EnsureLobby struct {
	Account string
	Reply   chan *lobby.Lobby
}

type RemoveLobby struct {
	Account string
}

type ListAccounts struct {
	Reply chan []string
}

type ShutdownHub struct{}

func (GetLobby) isHubMsg()     {}
func (EnsureLobby) isHubMsg()  {}
func (RemoveLobby) isHubMsg()  {}
func (ListAccounts) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

// Options describe how lobbies are built. Template is copied for every
// account; Account and Signer are filled in per account.
type Options struct {
	Template lobby.Config
	Keyring  *wallet.Keyring // nil: lobbies are read-only
	Policy   wallet.Policy
	Log      *zap.Logger
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	opts    Options
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		opts:    opts,
		log:     opts.Log.Named("hub"),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub has shut down.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

// Ensure is the blocking form of EnsureLobby.
func (h *Hub) Ensure(ctx context.Context, account string) (*lobby.Lobby, bool) {
	return h.ask(ctx, func(reply chan *lobby.Lobby) HubMsg {
		return EnsureLobby{Account: account, Reply: reply}
	})
}

// Get is the blocking form of GetLobby.
func (h *Hub) Get(ctx context.Context, account string) (*lobby.Lobby, bool) {
	return h.ask(ctx, func(reply chan *lobby.Lobby) HubMsg {
		return GetLobby{Account: account, Reply: reply}
	})
}

func (h *Hub) ask(ctx context.Context, build func(chan *lobby.Lobby) HubMsg) (*lobby.Lobby, bool) {
	reply := make(chan *lobby.Lobby, 1)
	select {
	case h.inbox <- build(reply):
	case <-ctx.Done():
		return nil, false
	case <-h.ctx.Done():
		return nil, false
	}
	select {
	case lb := <-reply:
		return lb, lb != nil
	case <-ctx.Done():
		return nil, false
	case <-h.ctx.Done():
		return nil, false
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetLobby:
				msg.Reply <- h.live(normalize(msg.Account)) // may be nil

			case EnsureLobby:
				account := normalize(msg.Account)
				if lb := h.live(account); lb != nil {
					msg.Reply <- lb
					break
				}
				lb, err := h.start(account)
				if err != nil {
					h.log.Warn("lobby not started", zap.String("account", account), zap.Error(err))
					msg.Reply <- nil
					break
				}
				h.lobbies[account] = lb
				msg.Reply <- lb

			case RemoveLobby:
				account := normalize(msg.Account)
				if lb := h.lobbies[account]; lb != nil {
					lb.Send(lobby.Shutdown{})
					delete(h.lobbies, account)
				}

			case ListAccounts:
				out := make([]string, 0, len(h.lobbies))
				for account := range h.lobbies {
					out = append(out, account)
				}
				msg.Reply <- out

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

// live returns the account's lobby unless it has already shut down.
func (h *Hub) live(account string) *lobby.Lobby {
	lb := h.lobbies[account]
	if lb == nil {
		return nil
	}
	select {
	case <-lb.Done():
		delete(h.lobbies, account)
		return nil
	default:
		return lb
	}
}

func (h *Hub) start(account string) (*lobby.Lobby, error) {
	if account == "" {
		return nil, errEmptyAccount
	}
	cfg := h.opts.Template
	cfg.Account = account
	cfg.Signer = nil
	if h.opts.Keyring != nil {
		signer, err := h.opts.Keyring.Signer(account, h.opts.Policy)
		if err != nil {
			return nil, err
		}
		cfg.Signer = signer
	}
	h.log.Info("starting lobby", zap.String("account", account))
	return lobby.NewLobby(h.ctx, cfg), nil
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		lb.Send(lobby.Shutdown{})
	}
	clear(h.lobbies)
}

func normalize(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}
