package models

// RemoteFile describes an uploaded drive item.
type RemoteFile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	WebURL string `json:"webUrl"`
	Size   int64  `json:"size"`
}

// RemoteFolder describes a resolved or created drive folder.
type RemoteFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
