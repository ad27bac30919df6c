package services

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/repository"
)

var (
	ErrUserNotFound       = apperr.NotFound("USER_NOT_FOUND", "user not found")
	ErrRoomNotFound       = models.ErrRoomDeleted
	ErrNameTaken          = apperr.Conflict("NAME_TAKEN", "a room with this name already exists")
	ErrEmailTaken         = apperr.Conflict("EMAIL_TAKEN", "email is already registered")
	ErrUsernameTaken      = apperr.Conflict("USERNAME_TAKEN", "username is already taken")
	ErrInvalidCredentials = apperr.New(http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	ErrInvalidRefresh     = apperr.New(http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "refresh token is invalid or expired")
	ErrWrongPassword      = apperr.BadRequest("WRONG_PASSWORD", "current password is incorrect")
	ErrFollowSelf         = apperr.BadRequest("CANNOT_FOLLOW_SELF", "you cannot follow yourself")
	ErrOwnRole            = apperr.BadRequest("CANNOT_CHANGE_OWN_ROLE", "you cannot change your own role")
	ErrNotRoomMember      = apperr.Forbidden("NOT_ROOM_MEMBER", "join the room first")
	ErrRoomPrivate        = apperr.Forbidden("ROOM_PRIVATE", "this room is private")
	ErrNotAuthor          = apperr.Forbidden("NOT_AUTHOR", "only the author can do this")
	ErrUploadTooLarge     = apperr.New(http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file is too large")
)

// mapNotFound swaps a repository miss for the domain error the handler should answer.
func mapNotFound(err error, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return err
}

func loadUser(ctx context.Context, users UserStore, id bson.ObjectID) (*models.User, error) {
	u, err := users.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	return u, nil
}

// loadRoom returns live rooms only.
func loadRoom(ctx context.Context, rooms RoomStore, id bson.ObjectID) (*models.Room, error) {
	r, err := rooms.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrRoomNotFound)
	}
	if r.IsDeleted {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// loadPost returns live posts only.
func loadPost(ctx context.Context, posts PostStore, id bson.ObjectID) (*models.Post, error) {
	p, err := posts.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, models.ErrPostNotFound)
	}
	if p.IsDeleted {
		return nil, models.ErrPostNotFound
	}
	return p, nil
}
