package models

// SnapshotResponse is the JSON body of the snapshot listing endpoint.
type SnapshotResponse struct {
	Data       []SnapshotItem `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// SnapshotItem is one snapshot entry together with its key.
type SnapshotItem struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	URL          string       `json:"url"`
	Availability Availability `json:"availability"`
}

type Pagination struct {
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
}
