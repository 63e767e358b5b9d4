package runtime

import (
	"polychat/contract"
	"polychat/domain"
	"sort"
	"sync"

	"github.com/samber/lo"
)

var _ contract.IRoomIndex = (*RoomIndex)(nil)

// roomMembers keeps a room's members in join order.
// Each room has its own lock so unrelated rooms never contend.
type roomMembers struct {
	mu      sync.RWMutex
	order   []domain.ConnectionID
	members map[domain.ConnectionID]struct{}
}

func newRoomMembers() *roomMembers {
	return &roomMembers{members: make(map[domain.ConnectionID]struct{})}
}

// RoomIndex maps a room to the connections in it.
// Rooms are created on first join and are kept, possibly empty, afterwards.
type RoomIndex struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomMembers
}

func NewRoomIndex() *RoomIndex {
	return &RoomIndex{rooms: make(map[domain.RoomID]*roomMembers)}
}

func (x *RoomIndex) room(roomID domain.RoomID) (*roomMembers, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	r, ok := x.rooms[roomID]
	return r, ok
}

func (x *RoomIndex) getOrCreate(roomID domain.RoomID) *roomMembers {
	if r, ok := x.room(roomID); ok {
		return r
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	// Double check, someone may have created it between the two locks
	if r, ok := x.rooms[roomID]; ok {
		return r
	}
	r := newRoomMembers()
	x.rooms[roomID] = r
	return r
}

// AddMember creates the room if needed. Adding twice is a no-op.
func (x *RoomIndex) AddMember(roomID domain.RoomID, id domain.ConnectionID) {
	r := x.getOrCreate(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; ok {
		return
	}
	r.members[id] = struct{}{}
	r.order = append(r.order, id)
}

// RemoveMember ignores unknown rooms and members.
func (x *RoomIndex) RemoveMember(roomID domain.RoomID, id domain.ConnectionID) {
	r, ok := x.room(roomID)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return
	}
	delete(r.members, id)
	r.order = lo.Without(r.order, id)
}

// Members returns a copy of the room's members in join order.
// An unknown room has no members.
func (x *RoomIndex) Members(roomID domain.RoomID) []domain.ConnectionID {
	r, ok := x.room(roomID)
	if !ok {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.ConnectionID(nil), r.order...)
}

func (x *RoomIndex) Count(roomID domain.RoomID) int {
	r, ok := x.room(roomID)
	if !ok {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Exists reports whether the room was ever joined, even if it is empty now.
func (x *RoomIndex) Exists(roomID domain.RoomID) bool {
	_, ok := x.room(roomID)
	return ok
}

// AllRooms lists every tracked room sorted by id.
func (x *RoomIndex) AllRooms() []domain.RoomStat {
	x.mu.RLock()
	ids := lo.Keys(x.rooms)
	x.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return lo.Map(ids, func(id domain.RoomID, _ int) domain.RoomStat {
		return domain.RoomStat{ID: id, MemberCount: x.Count(id)}
	})
}
