package model

// Page is the extracted text of one document page. PageNum starts at 1.
type Page struct {
	PageNum int    `json:"page_num"`
	Text    string `json:"text"`
}
