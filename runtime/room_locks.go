package runtime

import (
	"polychat/domain"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// RoomLocks hands out one RWMutex per room.
// Join and leave write-lock the rooms they touch so registry and index change together;
// a fan-out read-locks its room only while taking the member snapshot.
// Membership changes also share the global lock, which Snapshot takes exclusively
// so that reads spanning every room never see a move half done.
type RoomLocks struct {
	mu     sync.Mutex
	global sync.RWMutex
	locks  map[domain.RoomID]*sync.RWMutex
}

func NewRoomLocks() *RoomLocks {
	return &RoomLocks{locks: make(map[domain.RoomID]*sync.RWMutex)}
}

func (l *RoomLocks) get(roomID domain.RoomID) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[roomID]
	if !ok {
		m = &sync.RWMutex{}
		l.locks[roomID] = m
	}
	return m
}

// Lock write-locks every given room, always in the same order to avoid deadlocks
// between two connections moving across the same pair of rooms.
func (l *RoomLocks) Lock(roomIDs ...domain.RoomID) (unlock func()) {
	ids := lo.Uniq(roomIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	l.global.RLock()
	held := make([]*sync.RWMutex, 0, len(ids))
	for _, id := range ids {
		m := l.get(id)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
		l.global.RUnlock()
	}
}

// Snapshot waits for in-flight membership changes and holds new ones back until unlock.
// Fan-outs are not blocked.
func (l *RoomLocks) Snapshot() (unlock func()) {
	l.global.Lock()
	return l.global.Unlock
}

func (l *RoomLocks) RLock(roomID domain.RoomID) (unlock func()) {
	m := l.get(roomID)
	m.RLock()
	return m.RUnlock
}
