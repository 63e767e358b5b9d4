package workers

import (
	"context"
	"log/slog"
	"polychat/contract"
	"polychat/domain"
)

var _ contract.Worker = (*SessionWorker)(nil)

// SessionWorker drains the mailbox of one connection.
// Commands of a connection are handled one after the other, in arrival order,
// while different connections run on their own workers.
type SessionWorker struct {
	connectionID domain.ConnectionID
	router       contract.IRouter
	commands     <-chan domain.Command
	log          *slog.Logger
}

func NewSessionWorker(connectionID domain.ConnectionID, router contract.IRouter,
	commands <-chan domain.Command, log *slog.Logger) *SessionWorker {
	return &SessionWorker{
		connectionID: connectionID,
		router:       router,
		commands:     commands,
		log:          log,
	}
}

// Run returns nil once the mailbox is closed so the supervisor does not restart it.
// Closing the mailbox is the only way a connection leaves on disconnect, so the
// leave always runs after every command received before it.
func (w *SessionWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping session worker", "connection", w.connectionID)
			return ctx.Err()
		case cmd, ok := <-w.commands:
			if !ok {
				w.log.Debug("Mailbox closed", "connection", w.connectionID)
				w.router.Leave(ctx, domain.LeaveRoomCommand{ConnectionID: w.connectionID})
				return nil
			}
			w.router.Handle(ctx, cmd)
		}
	}
}
