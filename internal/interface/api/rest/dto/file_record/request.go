package file_record

type (
	CompressRequest struct {
		RecordID         string `json:"recordId"`
		CompressionLevel int    `json:"compressionLevel"`
		AssetID          string `json:"assetId"`
		FileType         string `json:"fileType"`
	}

	DownloadRequest struct {
		RecordIDs []string `json:"recordIds"`
	}
)
