package identity

import (
	"encoding/json"
	"sync"

	"wasentry/internal/store"

	"go.mau.fi/whatsmeow/types"
)

const feature = "lidmap"

type mapping struct {
	Phone string `json:"phone"`
}

// Resolver maintains the correlation between hidden LID identities and
// phone-number JIDs. Mappings are only recorded from asserted sources
// (group participant lists carrying both identities), never guessed.
type Resolver struct {
	store *store.Store

	mu      sync.RWMutex
	toPhone map[string]string
	toLID   map[string]string
}

func NewResolver(s *store.Store) *Resolver {
	r := &Resolver{
		store:   s,
		toPhone: make(map[string]string),
		toLID:   make(map[string]string),
	}
	for _, lid := range s.Keys(feature) {
		m := store.Get[mapping](s, feature, lid)
		if m.Phone == "" {
			continue
		}
		r.toPhone[lid] = m.Phone
		r.toLID[m.Phone] = lid
	}
	return r
}

// Record registers a phone/LID pair. It persists only when the pair is
// new or the phone behind a LID changed, so repeated observations of
// the same roster are cheap.
func (r *Resolver) Record(phone, lid types.JID) {
	if phone.IsEmpty() || lid.IsEmpty() {
		return
	}
	if phone.Server != types.DefaultUserServer || lid.Server != types.HiddenUserServer {
		return
	}
	p := phone.ToNonAD().String()
	l := lid.ToNonAD().String()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.toPhone[l] == p {
		return
	}
	r.toPhone[l] = p
	r.toLID[p] = l
	raw, err := json.Marshal(mapping{Phone: p})
	if err != nil {
		return
	}
	r.store.PutDoc(feature, l, raw)
}

// Resolve maps a LID-addressed JID to its phone JID when the mapping
// is known. Any other JID, or an unknown LID, is returned unchanged.
func (r *Resolver) Resolve(jid types.JID) types.JID {
	if jid.Server != types.HiddenUserServer {
		return jid
	}
	r.mu.RLock()
	p, ok := r.toPhone[jid.ToNonAD().String()]
	r.mu.RUnlock()
	if !ok {
		return jid
	}
	phone, err := types.ParseJID(p)
	if err != nil {
		return jid
	}
	return phone
}

// LIDFor returns the recorded LID for a phone JID, if any.
func (r *Resolver) LIDFor(phone types.JID) (types.JID, bool) {
	r.mu.RLock()
	l, ok := r.toLID[phone.ToNonAD().String()]
	r.mu.RUnlock()
	if !ok {
		return types.EmptyJID, false
	}
	lid, err := types.ParseJID(l)
	if err != nil {
		return types.EmptyJID, false
	}
	return lid, true
}
