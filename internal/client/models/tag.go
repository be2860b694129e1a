package models

// Tag is one selectable tag from the backend taxonomy.
type Tag struct {
	ID         int    `json:"id"`
	CategoryID int    `json:"category_id"`
	Name       string `json:"name"`
}

// TagCategory groups tags; the backend returns categories and tags as two
// independent collections joined client-side by CategoryID.
type TagCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Tags []Tag  `json:"tags"`
}

// Association is one persisted file↔tag link.
type Association struct {
	ID     int    `json:"id"`
	FileID string `json:"file_id"`
	TagID  int    `json:"tag_id"`
}
