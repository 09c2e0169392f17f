package httpserver

import (
	"time"

	"github.com/and161185/keepsake/internal/model"
	"github.com/gofrs/uuid/v5"
)

// Every gated request body may carry "token"; it is consumed by requireAuth.

type signupRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=1024"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Username string    `json:"username"`
	UserID   uuid.UUID `json:"userId"`
	Email    string    `json:"email"`
	IsAdmin  bool      `json:"isAdmin"`
	Token    string    `json:"token"`
	Expires  time.Time `json:"expiresAt"`
}

type userResponse struct {
	ID          uuid.UUID   `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Description string      `json:"description"`
	Collections []uuid.UUID `json:"collections"`
	IsAdmin     bool        `json:"isAdmin"`
	IsBlocked   bool        `json:"isBlocked"`
	CreatedAt   time.Time   `json:"createdAt"`
}

func toUserResponse(u model.User) userResponse {
	cs := u.Collections
	if cs == nil {
		cs = []uuid.UUID{}
	}
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Description: u.Description,
		Collections: cs,
		IsAdmin:     u.IsAdmin,
		IsBlocked:   u.IsBlocked,
		CreatedAt:   u.CreatedAt,
	}
}

type patchDescriptionRequest struct {
	Description string `json:"description" validate:"required,max=2000"`
}

type customField struct {
	Type    string `json:"type" validate:"required,oneof=text"`
	Content string `json:"content"`
}

func toFields(in []customField) []model.CustomField {
	if in == nil {
		return nil
	}
	out := make([]model.CustomField, len(in))
	for i, f := range in {
		out[i] = model.CustomField{Kind: model.FieldKind(f.Type), Content: f.Content}
	}
	return out
}

type createCollectionRequest struct {
	Name         string        `json:"name" validate:"required,max=200"`
	AuthorID     *uuid.UUID    `json:"authorId"`
	Theme        string        `json:"theme" validate:"required,max=100"`
	Description  string        `json:"description" validate:"max=5000"`
	ImageURL     string        `json:"imageUrl" validate:"omitempty,url"`
	CustomFields []customField `json:"customFields" validate:"dive"`
}

type addItemRequest struct {
	Name         string        `json:"name" validate:"required,max=200"`
	Tags         []string      `json:"tags" validate:"required,dive,required,max=64"`
	CustomFields []customField `json:"customFields" validate:"dive"`
}

type editItemRequest struct {
	ItemID       int64         `json:"itemId" validate:"required,gte=1"`
	Name         *string       `json:"name" validate:"omitempty,min=1,max=200"`
	Tags         []string      `json:"tags" validate:"omitempty,dive,required,max=64"`
	CustomFields []customField `json:"customFields" validate:"omitempty,dive"`
}

type itemRefRequest struct {
	ItemID int64 `json:"itemId" validate:"required,gte=1"`
}

type likeRequest struct {
	ItemID int64 `json:"itemId" validate:"required,gte=1"`
	Unlike bool  `json:"unlike"`
}

type tagRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

type commentRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

type okResponse struct {
	Message string `json:"message"`
}
