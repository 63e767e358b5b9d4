package workers

import (
	"context"
	"log/slog"
	"polychat/domain"
	"polychat/mocks"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSessionWorker_Handles_Commands_In_Order(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	router := mocks.NewMockIRouter(ctrl)
	id := domain.NewConnectionID()

	joinCmd := domain.JoinRoomCommand{ConnectionID: id, RoomID: "R1", DisplayName: "Alice", LanguageCode: "en"}
	sendCmd := domain.SendMessageCommand{ConnectionID: id, Text: "hello", SourceLanguage: "en"}
	leaveCmd := domain.LeaveRoomCommand{ConnectionID: id}

	// Then the router sees join, send and leave in that order, then the closing leave
	gomock.InOrder(
		router.EXPECT().Handle(gomock.Any(), joinCmd).Times(1),
		router.EXPECT().Handle(gomock.Any(), sendCmd).Times(1),
		router.EXPECT().Handle(gomock.Any(), leaveCmd).Times(1),
		router.EXPECT().Leave(gomock.Any(), leaveCmd).Times(1),
	)

	// Given a mailbox with three commands, then closed
	commands := make(chan domain.Command, 3)
	commands <- joinCmd
	commands <- sendCmd
	commands <- leaveCmd
	close(commands)

	// When the worker runs
	err := NewSessionWorker(id, router, commands, log).Run(context.Background())

	// Then it stops cleanly once the mailbox is drained
	req.NoError(err)
}

func TestSessionWorker_Leaves_After_Queued_Join_When_Mailbox_Closes(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	router := mocks.NewMockIRouter(ctrl)
	id := domain.NewConnectionID()

	joinCmd := domain.JoinRoomCommand{ConnectionID: id, RoomID: "R2", DisplayName: "Alice", LanguageCode: "en"}

	// Then the queued join is handled before the connection leaves
	gomock.InOrder(
		router.EXPECT().Handle(gomock.Any(), joinCmd).Times(1),
		router.EXPECT().Leave(gomock.Any(), domain.LeaveRoomCommand{ConnectionID: id}).Times(1),
	)

	// Given a join still queued when the connection goes away
	commands := make(chan domain.Command, 1)
	commands <- joinCmd
	close(commands)

	req.NoError(NewSessionWorker(id, router, commands, log).Run(context.Background()))
}

func TestSessionWorker_Stops_On_Context(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	router := mocks.NewMockIRouter(ctrl)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := NewSessionWorker(domain.NewConnectionID(), router, make(chan domain.Command), log).Run(ctx)
	req.ErrorIs(err, context.DeadlineExceeded)
}
