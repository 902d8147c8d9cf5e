package models

// SyncUserRequest upserts an identity-provider user into the backend.
// ExternalID is the opaque id issued by the identity provider; the
// rest of the system only ever sees the backend user id it maps to.
type SyncUserRequest struct {
	ExternalID   string `json:"clerk_id" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	DisplayName  string `json:"display_name,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
}

type User struct {
	ID           string `json:"id"`
	ExternalID   string `json:"clerk_id"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	ProfileImage string `json:"profile_image"`
}

type SyncUserResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
	IsNew   bool   `json:"is_new"`
}
