package models

// CheckIn is a short status update: mood, availability and a line of text.
type CheckIn struct {
	PostBase
	Mood         string `json:"mood" gorm:"size:32"`
	Availability string `json:"availability" gorm:"size:32"`
	Description  string `json:"description" gorm:"type:text"`
}

func (c *CheckIn) Ref() Ref     { return Ref{Kind: KindCheckIn, ID: c.ID} }
func (c *CheckIn) Body() string { return c.Description }

type CreateCheckInRequest struct {
	Mood         string `json:"mood" validate:"max=32"`
	Availability string `json:"availability" validate:"max=32"`
	Description  string `json:"description" validate:"max=2000"`
	AccessRequest
}

// UpdateContentRequest patches any post type. Nil fields are left untouched.
type UpdateContentRequest struct {
	Content      *string        `json:"content,omitempty" validate:"omitempty,max=5000"`
	Mood         *string        `json:"mood,omitempty" validate:"omitempty,max=32"`
	Availability *string        `json:"availability,omitempty" validate:"omitempty,max=32"`
	PhotoURL     *string        `json:"photo_url,omitempty" validate:"omitempty,url"`
	Access       *AccessRequest `json:"access,omitempty"`
}
