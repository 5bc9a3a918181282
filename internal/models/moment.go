package models

// Moment is a photo and mood snapshot.
type Moment struct {
	PostBase
	Mood        string `json:"mood" gorm:"size:32"`
	PhotoURL    string `json:"photo_url"`
	Description string `json:"description" gorm:"type:text"`
}

func (m *Moment) Ref() Ref     { return Ref{Kind: KindMoment, ID: m.ID} }
func (m *Moment) Body() string { return m.Description }

type CreateMomentRequest struct {
	Mood        string `json:"mood" validate:"max=32"`
	PhotoURL    string `json:"photo_url" validate:"omitempty,url"`
	Description string `json:"description" validate:"max=2000"`
	AccessRequest
}
