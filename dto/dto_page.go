package dto

type MarkAllReadResp struct {
	Updated int64 `json:"updated"`
}

type ReadyResp struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
