package dto

type CreateRoomReq struct {
	Name        string   `json:"name" form:"name" validate:"notblank,max=100"`
	Description string   `json:"description" form:"description" validate:"max=2000"`
	Tags        []string `json:"tags" form:"tags" validate:"max=10,dive,max=30"`
	RoomType    string   `json:"roomType" form:"roomType" validate:"omitempty,oneof=public private"`
	IsVisible   *bool    `json:"isVisible" form:"isVisible"`
}

type UpdateRoomReq struct {
	Name        *string   `json:"name" form:"name" validate:"omitempty,notblank,max=100"`
	Description *string   `json:"description" form:"description" validate:"omitempty,max=2000"`
	Tags        *[]string `json:"tags" form:"tags" validate:"omitempty,max=10,dive,max=30"`
	RoomType    *string   `json:"roomType" form:"roomType" validate:"omitempty,oneof=public private"`
	IsVisible   *bool     `json:"isVisible" form:"isVisible"`
}

type JoinRoomReq struct {
	Message string `json:"message" validate:"max=500"`
}

type JoinRoomResp struct {
	Status string `json:"status"`
}

type AddMemberReq struct {
	UserID string `json:"userId" validate:"required,objectid"`
}

type HandleRequestReq struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
}

type PinResp struct {
	Pinned bool `json:"pinned"`
}
