package lobby

import (
	"sort"

	"github.com/DoyleJ11/hidden-role-client/internal/crypto"
	"github.com/DoyleJ11/hidden-role-client/internal/engine"
	"github.com/DoyleJ11/hidden-role-client/internal/notify"
	"github.com/DoyleJ11/hidden-role-client/internal/session"
)

// View is a copy of the lobby's state, safe to hand to other goroutines.
type View struct {
	Version    int
	NumClients int

	Account   string
	Address   string
	Connected bool
	Crypto    crypto.Status

	Records    []session.Record
	Refreshing bool

	FormOpen    bool
	Form        session.Form
	Creating    bool
	CreatePhase engine.Phase

	Selected  *Selection
	Verifying []string

	Notification *notify.Notification
}

type Selection struct {
	Record session.Record
	Phase  engine.Phase
	Busy   bool

	// LocalValue is what this client decrypted, if it did.
	LocalValue    uint64
	HasLocalValue bool

	// Role is the store's revealed role when verified, else the local one.
	Role      session.Role
	RoleKnown bool
}

func (l *Lobby) view() View {
	v := View{
		Version:     l.version,
		NumClients:  len(l.clients),
		Account:     l.cfg.Account,
		Address:     l.address(),
		Connected:   l.connected,
		Crypto:      l.cfg.Crypto.Status(),
		Records:     append([]session.Record(nil), l.records...),
		Refreshing:  l.refreshing > 0,
		FormOpen:    l.formOpen,
		Form:        l.form,
		Creating:    l.creating,
		CreatePhase: l.create.Phase,
	}

	for id := range l.verifying {
		v.Verifying = append(v.Verifying, id)
	}
	sort.Strings(v.Verifying)

	if n, ok := l.notes.Current(); ok {
		v.Notification = &n
	}

	if l.selectedID != "" {
		rec, ok := session.Find(l.records, l.selectedID)
		if !ok {
			rec = session.Record{ID: l.selectedID}
		}
		sel := &Selection{
			Record: rec,
			Phase:  engine.PhaseIdle,
			Busy:   l.verifying[l.selectedID],
		}
		if st, ok := l.verify[l.selectedID]; ok {
			sel.Phase = st.Phase
		}
		if l.localValue != nil {
			sel.LocalValue = *l.localValue
			sel.HasLocalValue = true
		}
		if value, ok := rec.Revealed(); ok {
			sel.Role, sel.RoleKnown = session.RoleOf(value), true
		} else if sel.HasLocalValue {
			sel.Role, sel.RoleKnown = session.RoleOf(sel.LocalValue), true
		}
		v.Selected = sel
	}
	return v
}
