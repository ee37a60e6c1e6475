package services

import (
	"time"

	"github.com/Goodness5/Vortexis-Backend/internal/models"
)

// ProfileView is the public part of a user profile.
type ProfileView struct {
	Bio            string `json:"bio"`
	GitHub         string `json:"github"`
	LinkedIn       string `json:"linkedin"`
	Twitter        string `json:"twitter"`
	Website        string `json:"website"`
	Location       string `json:"location"`
	ProfilePicture string `json:"profile_picture"`
}

// PublicUser is what any authenticated caller may see about a user.
type PublicUser struct {
	ID            string       `json:"id"`
	Username      string       `json:"username"`
	FirstName     string       `json:"first_name"`
	LastName      string       `json:"last_name"`
	IsParticipant bool         `json:"is_participant"`
	IsOrganizer   bool         `json:"is_organizer"`
	IsJudge       bool         `json:"is_judge"`
	IsModerator   bool         `json:"is_moderator"`
	Profile       *ProfileView `json:"profile"`
}

// PrivateUser is the account owner's view, adding contact and account state.
type PrivateUser struct {
	PublicUser
	Email        string     `json:"email"`
	AuthProvider string     `json:"auth_provider"`
	IsAdmin      bool       `json:"is_admin"`
	IsVerified   bool       `json:"is_verified"`
	IsActive     bool       `json:"is_active"`
	DateJoined   time.Time  `json:"date_joined"`
	LastLoginAt  *time.Time `json:"last_login"`
}

// PublicView projects user for other users.
func PublicView(user *models.User) *PublicUser {
	if user == nil {
		return nil
	}
	view := &PublicUser{
		ID:            user.ID,
		Username:      user.Username,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		IsParticipant: user.IsParticipant,
		IsOrganizer:   user.IsOrganizer,
		IsJudge:       user.IsJudge,
		IsModerator:   user.IsModerator,
	}
	if user.Profile != nil {
		view.Profile = &ProfileView{
			Bio:            user.Profile.Bio,
			GitHub:         user.Profile.GitHub,
			LinkedIn:       user.Profile.LinkedIn,
			Twitter:        user.Profile.Twitter,
			Website:        user.Profile.Website,
			Location:       user.Profile.Location,
			ProfilePicture: user.Profile.ProfilePicture,
		}
	}
	return view
}

// PrivateView projects user for the account owner.
func PrivateView(user *models.User) *PrivateUser {
	if user == nil {
		return nil
	}
	return &PrivateUser{
		PublicUser:   *PublicView(user),
		Email:        user.Email,
		AuthProvider: user.AuthProvider,
		IsAdmin:      user.IsAdmin,
		IsVerified:   user.IsVerified,
		IsActive:     user.IsActive,
		DateJoined:   user.CreatedAt,
		LastLoginAt:  user.LastLoginAt,
	}
}

// ViewFor picks the projection matching the viewer's relationship to user.
func ViewFor(viewerID string, user *models.User) any {
	if user != nil && viewerID == user.ID {
		return PrivateView(user)
	}
	return PublicView(user)
}
