package app

// DraftLinesRequest is the input of DraftRequestLines.
type DraftLinesRequest struct {
	Text string `json:"text"`
	// ExistingItemIDs are the items already on the form; drafts never repeat them.
	ExistingItemIDs []int `json:"existing_item_ids,omitempty"`
}
