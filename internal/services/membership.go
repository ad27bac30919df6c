package services

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/logger"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
)

// membership mirrors room membership onto users.rooms and the site role. The room
// document is the source of truth; a failure here is logged, not returned.
type membership struct {
	users UserStore
	log   logger.Logger
}

func (m *membership) joined(ctx context.Context, uid, roomID bson.ObjectID, role models.Role) {
	err := withRetry(func() error {
		u, err := m.users.FindByID(ctx, uid)
		if err != nil {
			return err
		}
		u.JoinRoom(roomID, role)
		return m.users.Update(ctx, u)
	})
	if err != nil {
		m.log.Error("membership: record join", "user", uid.Hex(), "room", roomID.Hex(), "err", err)
	}
}

func (m *membership) left(ctx context.Context, uid, roomID bson.ObjectID) {
	err := withRetry(func() error {
		u, err := m.users.FindByID(ctx, uid)
		if err != nil {
			return err
		}
		u.LeaveRoom(roomID)
		return m.users.Update(ctx, u)
	})
	if err != nil {
		m.log.Error("membership: record leave", "user", uid.Hex(), "room", roomID.Hex(), "err", err)
	}
}
