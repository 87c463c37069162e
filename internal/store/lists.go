package store

const (
	featureSudo   = "sudo"
	featureBanned = "banned"
	featurePrefix = "prefix"

	globalKey = "global"
)

type stringList struct {
	Users []string `json:"users"`
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func (s *Store) listAdd(feature, user string) bool {
	added := false
	Update(s, feature, globalKey, func(l *stringList) {
		if contains(l.Users, user) {
			return
		}
		l.Users = append(l.Users, user)
		added = true
	})
	return added
}

func (s *Store) listRemove(feature, user string) bool {
	removed := false
	Update(s, feature, globalKey, func(l *stringList) {
		out := l.Users[:0]
		for _, item := range l.Users {
			if item == user {
				removed = true
				continue
			}
			out = append(out, item)
		}
		l.Users = out
	})
	return removed
}

func (s *Store) listHas(feature, user string) bool {
	return contains(Get[stringList](s, feature, globalKey).Users, user)
}

// SudoList returns the configured sudo user IDs.
func (s *Store) SudoList() []string {
	return Get[stringList](s, featureSudo, globalKey).Users
}

func (s *Store) AddSudo(user string) bool    { return s.listAdd(featureSudo, user) }
func (s *Store) RemoveSudo(user string) bool { return s.listRemove(featureSudo, user) }
func (s *Store) IsSudo(user string) bool     { return s.listHas(featureSudo, user) }

func (s *Store) BannedList() []string {
	return Get[stringList](s, featureBanned, globalKey).Users
}

func (s *Store) Ban(user string) bool      { return s.listAdd(featureBanned, user) }
func (s *Store) Unban(user string) bool    { return s.listRemove(featureBanned, user) }
func (s *Store) IsBanned(user string) bool { return s.listHas(featureBanned, user) }

type prefixDoc struct {
	Prefix string `json:"prefix"`
	Set    bool   `json:"set"`
}

// Prefix returns the stored command prefix, falling back to def when
// none has been set. The literal "none" is a valid stored value and is
// returned as-is for the dispatcher to interpret.
func (s *Store) Prefix(def string) string {
	doc := Get[prefixDoc](s, featurePrefix, globalKey)
	if !doc.Set {
		return def
	}
	return doc.Prefix
}

func (s *Store) SetPrefix(p string) {
	Update(s, featurePrefix, globalKey, func(d *prefixDoc) {
		d.Prefix = p
		d.Set = true
	})
}
