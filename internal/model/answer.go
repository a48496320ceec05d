package model

type Hit struct {
	PageNum int     `json:"page_num"`
	ChunkID string  `json:"chunk_id"`
	Text    string  `json:"text"`
	Score   float32 `json:"score"`
}

type Source struct {
	Page    int     `json:"page"`
	ChunkID string  `json:"chunk_id"`
	Score   float32 `json:"score"`
}

type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

type UploadResult struct {
	DocID     string `json:"doc_id"`
	NumChunks int    `json:"num_chunks"`
}

type IngestResult struct {
	DocID         string `json:"doc_id"`
	AcceptedCount int    `json:"accepted_count"`
}

type DocumentStat struct {
	DocID   string `json:"doc_id"`
	Dim     int    `json:"dim"`
	Vectors int    `json:"vectors"`
}
