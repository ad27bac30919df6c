package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Role string

const (
	RoleGeneral    Role = "general"
	RoleRoomMember Role = "roomMember"
	RoleRoomOwner  Role = "roomOwner"
	RoleAdmin      Role = "admin"
)

var roleRank = map[Role]int{
	RoleGeneral:    0,
	RoleRoomMember: 1,
	RoleRoomOwner:  2,
	RoleAdmin:      3,
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Max returns whichever of r and other ranks higher. Room activity only ever raises a role.
func (r Role) Max(other Role) Role {
	if roleRank[other] > roleRank[r] {
		return other
	}
	return r
}

type User struct {
	ID           bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username     string          `bson:"username" json:"username"`
	Email        string          `bson:"email" json:"email"`
	PasswordHash string          `bson:"password_hash" json:"-"`
	FullName     string          `bson:"full_name" json:"fullName"`
	Bio          string          `bson:"bio,omitempty" json:"bio,omitempty"`
	Location     string          `bson:"location,omitempty" json:"location,omitempty"`
	Website      string          `bson:"website,omitempty" json:"website,omitempty"`
	AvatarURL    string          `bson:"avatar_url,omitempty" json:"avatarUrl,omitempty"`
	Role         Role            `bson:"role" json:"role"`
	Followers    []bson.ObjectID `bson:"followers" json:"followers"`
	Following    []bson.ObjectID `bson:"following" json:"following"`
	Rooms        []bson.ObjectID `bson:"rooms" json:"rooms"`
	CreatedAt    time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updated_at" json:"updatedAt"`
	Version      int64           `bson:"version" json:"version"`
}

func (u *User) IsSiteAdmin() bool { return u != nil && u.Role == RoleAdmin }

// JoinRoom records room membership on the user and raises the role to at least min.
func (u *User) JoinRoom(roomID bson.ObjectID, min Role) {
	if !slices.Contains(u.Rooms, roomID) {
		u.Rooms = append(u.Rooms, roomID)
	}
	u.Role = u.Role.Max(min)
}

// LeaveRoom drops the room from the user's list. The role is left untouched.
func (u *User) LeaveRoom(roomID bson.ObjectID) {
	u.Rooms = removeID(u.Rooms, roomID)
}

func (u *User) IsFollowing(other bson.ObjectID) bool {
	return slices.Contains(u.Following, other)
}

// UserSummary is the public projection embedded in member lists and search results.
type UserSummary struct {
	ID        bson.ObjectID `json:"id"`
	Username  string        `json:"username"`
	FullName  string        `json:"fullName"`
	AvatarURL string        `json:"avatarUrl,omitempty"`
	Role      Role          `json:"role"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, FullName: u.FullName, AvatarURL: u.AvatarURL, Role: u.Role}
}

func removeID(ids []bson.ObjectID, id bson.ObjectID) []bson.ObjectID {
	return slices.DeleteFunc(ids, func(x bson.ObjectID) bool { return x == id })
}
