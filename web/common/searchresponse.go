package common

import "axiapac.com/backoffice/utils"

type SearchResponse struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data"`
	Meta    utils.PageMeta `json:"meta"`
}

func NewSearchResponse(data interface{}, meta utils.PageMeta) *SearchResponse {
	return &SearchResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	}
}
