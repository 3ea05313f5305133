package dto

type UploadRequest struct {
	Folder string `form:"folder" binding:"omitempty,oneof=avatars runs routes badges"`
}

type UploadResponse struct {
	URL      string `json:"url"`
	FileType string `json:"fileType"`
	Folder   string `json:"folder"`
}
