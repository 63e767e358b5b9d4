package domain

type RoomID string

// RoomStat is a point-in-time view of one room.
type RoomStat struct {
	ID          RoomID
	MemberCount int
}

// RoomInfo answers the single room admin query.
type RoomInfo struct {
	ID          RoomID
	Exists      bool
	MemberCount int
}

// Stats aggregates every tracked room.
type Stats struct {
	TotalRooms  int
	TotalUsers  int
	ActiveRooms int
}

// Member is what the other participants of a room see about someone.
type Member struct {
	DisplayName  string
	LanguageCode string
}

func NewStats(rooms []RoomStat) Stats {
	stats := Stats{TotalRooms: len(rooms)}
	for _, r := range rooms {
		stats.TotalUsers += r.MemberCount
		if r.MemberCount > 0 {
			stats.ActiveRooms++
		}
	}
	return stats
}
