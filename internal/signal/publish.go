package signal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgxlisten"
	"github.com/yuku/respool/internal/sqlc"
)

// Channel is the NOTIFY channel shared by all groups.
const Channel = "respool_low_water"

// Publisher sends low-water notifications for one group.
type Publisher struct {
	q     *sqlc.Queries
	group string
}

// NewPublisher returns a Publisher that notifies on db.
func NewPublisher(db sqlc.DBTX, group string) *Publisher {
	return &Publisher{q: sqlc.New(db), group: group}
}

// Signal notifies every listener that the group may be running low.
func (p *Publisher) Signal(ctx context.Context) error {
	err := p.q.NotifyLowWater(ctx, sqlc.NotifyLowWaterParams{
		Channel: Channel,
		Payload: p.group,
	})
	if err != nil {
		return fmt.Errorf("failed to notify low water for %s: %w", p.group, err)
	}
	return nil
}

// NewListener returns a pgxlisten.Listener that delivers Channel
// notifications to handler. connect must return a dedicated connection,
// not one borrowed from a pool.
func NewListener(connect func(context.Context) (*pgx.Conn, error), handler *ListenHandler) *pgxlisten.Listener {
	listener := &pgxlisten.Listener{Connect: connect}
	listener.Handle(Channel, handler)
	return listener
}
