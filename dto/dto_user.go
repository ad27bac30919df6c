package dto

type UpdateProfileReq struct {
	Username *string `json:"username" form:"username" validate:"omitempty,username"`
	FullName *string `json:"fullName" form:"fullName" validate:"omitempty,max=100"`
	Bio      *string `json:"bio" form:"bio" validate:"omitempty,max=500"`
	Location *string `json:"location" form:"location" validate:"omitempty,max=100"`
	Website  *string `json:"website" form:"website" validate:"omitempty,max=200"`
}

type ChangePasswordReq struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

type SetRoleReq struct {
	Role string `json:"role" validate:"required,oneof=general roomMember roomOwner admin"`
}
