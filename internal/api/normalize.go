package api

import "encoding/json"

// decodeList normalizes the backend's two list response shapes into one
// canonical slice: a bare JSON array, or an envelope object whose "items"
// field holds the array. Anything else, including a malformed body, decodes
// to an empty slice; a bad payload must never abort the render pipeline.
func decodeList[T any](data []byte) []T {
	var list []T
	if err := json.Unmarshal(data, &list); err == nil {
		return list
	}

	var envelope struct {
		Items []T `json:"items"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil {
		return envelope.Items
	}

	return nil
}
