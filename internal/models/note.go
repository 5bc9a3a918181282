package models

// Note is free-form text with optional images.
type Note struct {
	PostBase
	Content string `json:"content" gorm:"type:text;not null"`
}

func (n *Note) Ref() Ref     { return Ref{Kind: KindNote, ID: n.ID} }
func (n *Note) Body() string { return n.Content }

type CreateNoteRequest struct {
	Content string `json:"content" validate:"max=5000"`
	AccessRequest
}
