// Package reconcile computes how a local collection must change to match a
// freshly fetched remote collection of the same entity kind. It performs no
// I/O; callers apply the resulting instructions inside their own transaction.
package reconcile

// Keyed is implemented by local records and remote payloads alike. The key
// is the server-side identifier, unique within the parent scope.
type Keyed interface {
	RemoteKey() int64
}

// Pair is a local record matched with its remote counterpart.
type Pair[L, R Keyed] struct {
	Local  L
	Remote R
}

// Partition is the result of matching a local and a remote collection.
type Partition[L, R Keyed] struct {
	OnlyLocal  []L
	OnlyRemote []R
	Pairs      []Pair[L, R]
}

// Split partitions local and remote by remote key. Pairs keep the order of
// local. If remote holds a key twice the last occurrence wins, both for the
// match and in OnlyRemote, which never repeats a key.
func Split[L, R Keyed](local []L, remote []R) Partition[L, R] {
	last := make(map[int64]int, len(remote))
	for i, r := range remote {
		last[r.RemoteKey()] = i
	}
	localKeys := make(map[int64]struct{}, len(local))
	for _, l := range local {
		localKeys[l.RemoteKey()] = struct{}{}
	}

	var p Partition[L, R]
	for _, l := range local {
		if i, ok := last[l.RemoteKey()]; ok {
			p.Pairs = append(p.Pairs, Pair[L, R]{Local: l, Remote: remote[i]})
		} else {
			p.OnlyLocal = append(p.OnlyLocal, l)
		}
	}
	for i, r := range remote {
		key := r.RemoteKey()
		if _, ok := localKeys[key]; ok || last[key] != i {
			continue
		}
		p.OnlyRemote = append(p.OnlyRemote, r)
	}
	return p
}
