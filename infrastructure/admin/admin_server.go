// Package admin exposes read-only room statistics over HTTP.
package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"polychat/domain"
	"polychat/services"
	"time"

	"github.com/samber/lo"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type RoomEntry struct {
	ID        string `json:"id"`
	UserCount int    `json:"userCount"`
}

type RoomsResponse struct {
	Success    bool        `json:"success"`
	Rooms      []RoomEntry `json:"rooms"`
	TotalRooms int         `json:"totalRooms"`
}

type RoomDetail struct {
	ID        string `json:"id"`
	Exists    bool   `json:"exists"`
	UserCount int    `json:"userCount"`
}

type RoomResponse struct {
	Success bool       `json:"success"`
	Room    RoomDetail `json:"room"`
}

type StatsEntry struct {
	TotalRooms  int `json:"totalRooms"`
	TotalUsers  int `json:"totalUsers"`
	ActiveRooms int `json:"activeRooms"`
}

type StatsResponse struct {
	Success bool       `json:"success"`
	Stats   StatsEntry `json:"stats"`
}

type LanguagesResponse struct {
	Success   bool              `json:"success"`
	Languages []domain.Language `json:"languages"`
}

type AdminServer struct {
	log         *slog.Logger
	chatService services.IChatService
	now         func() time.Time
}

func NewAdminServer(log *slog.Logger, chatService services.IChatService) *AdminServer {
	return &AdminServer{log: log, chatService: chatService, now: func() time.Time { return time.Now().UTC() }}
}

// Register mounts the admin routes on mux.
func (s *AdminServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/rooms", s.handleRooms)
	mux.HandleFunc("GET /api/rooms/{roomId}", s.handleRoom)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/languages", s.handleLanguages)
}

func (s *AdminServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.write(w, HealthResponse{Status: "OK", Message: "Chat server is running", Timestamp: s.now()})
}

func (s *AdminServer) handleRooms(w http.ResponseWriter, _ *http.Request) {
	rooms := lo.Map(s.chatService.Rooms(), func(r domain.RoomStat, _ int) RoomEntry {
		return RoomEntry{ID: string(r.ID), UserCount: r.MemberCount}
	})
	s.write(w, RoomsResponse{Success: true, Rooms: rooms, TotalRooms: len(rooms)})
}

func (s *AdminServer) handleRoom(w http.ResponseWriter, r *http.Request) {
	info := s.chatService.Room(domain.RoomID(r.PathValue("roomId")))
	s.write(w, RoomResponse{Success: true, Room: RoomDetail{
		ID:        string(info.ID),
		Exists:    info.Exists,
		UserCount: info.MemberCount,
	}})
}

func (s *AdminServer) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.chatService.Stats()
	s.write(w, StatsResponse{Success: true, Stats: StatsEntry{
		TotalRooms:  stats.TotalRooms,
		TotalUsers:  stats.TotalUsers,
		ActiveRooms: stats.ActiveRooms,
	}})
}

func (s *AdminServer) handleLanguages(w http.ResponseWriter, r *http.Request) {
	languages := s.chatService.Languages(r.Context())
	if languages == nil {
		languages = []domain.Language{}
	}
	s.write(w, LanguagesResponse{Success: true, Languages: languages})
}

func (s *AdminServer) write(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("Admin response not written", "error", err)
	}
}
