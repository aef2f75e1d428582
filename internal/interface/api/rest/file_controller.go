package rest

import (
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"compraser-api/internal/application/ports"
	"compraser-api/internal/application/services"
	"compraser-api/internal/interface/api/rest/dto/file_record"
	"compraser-api/internal/interface/api/rest/validator"
	"compraser-api/pkg/archive"
)

const (
	// room for multipart boundaries and part headers
	multipartOverhead = int64(1 << 20)
	maxBatchFiles     = 10
)

type FileController struct {
	fileService ports.FileService
	logger      *zap.Logger
	maxSize     int64
}

func NewFileController(
	r *gin.Engine,
	fileService ports.FileService,
	logger *zap.Logger,
	maxSize int64,
) *FileController {
	fc := &FileController{
		fileService: fileService,
		logger:      logger,
		maxSize:     maxSize,
	}

	r.POST(RouteUpload, fc.UploadHandler)
	r.POST(RouteUploadBatch, fc.UploadBatchHandler)
	r.POST(RouteCompress, fc.CompressHandler)
	r.POST(RouteDownload, fc.DownloadArchiveHandler)
	r.GET(RouteDownload, fc.DownloadFileHandler)

	return fc
}

func (fc *FileController) UploadHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, fc.maxSize+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": services.NewTooLargeError(fc.maxSize).Message})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is unreadable"})
		return
	}
	defer f.Close()

	res, err := fc.fileService.Upload(c.Request.Context(), ports.UploadInput{
		FileName: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
		Body:     f,
	})
	if err != nil {
		status, msg := uploadFailure(err)
		if status == http.StatusInternalServerError {
			fc.logger.Error("Upload() error", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, file_record.ToUploadResponse(*res.Record, res.URL))
}

func (fc *FileController) UploadBatchHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, fc.maxSize*maxBatchFiles+multipartOverhead)

	form, err := c.MultipartForm()
	if err != nil {
		if isBodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "batch exceeds the request size limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "files are required"})
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "files are required"})
		return
	}
	if len(headers) > maxBatchFiles {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many files in one batch"})
		return
	}

	items := make(file_record.BatchItems, len(headers))
	inputs := make([]ports.UploadInput, 0, len(headers))
	slots := make([]int, 0, len(headers))
	for i, fh := range headers {
		items[i] = file_record.BatchItem{FileName: fh.Filename, OriginalSize: fh.Size}

		f, err := fh.Open()
		if err != nil {
			items[i].Error = "file is unreadable"
			continue
		}
		defer f.Close()

		inputs = append(inputs, ports.UploadInput{
			FileName: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Size:     fh.Size,
			Body:     f,
		})
		slots = append(slots, i)
	}

	outcomes := fc.fileService.UploadBatch(c.Request.Context(), inputs)
	for j, out := range outcomes {
		item := &items[slots[j]]
		if out.Err != nil {
			status, msg := uploadFailure(out.Err)
			if status == http.StatusInternalServerError {
				fc.logger.Error("UploadBatch() error", zap.String("file_name", out.FileName), zap.Error(out.Err))
			}
			item.Error = msg
			continue
		}
		rec := out.Result.Record
		item.RecordID = &rec.ID
		item.AssetID = rec.AssetID
		item.OriginalSize = rec.OriginalSize
		item.URL = out.Result.URL
	}

	c.JSON(http.StatusOK, file_record.ResponseData{Data: items})
}

func (fc *FileController) CompressHandler(c *gin.Context) {
	var req file_record.CompressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}
	if errs := validator.ValidateCompress(req, services.MinCompressionLevel, services.MaxCompressionLevel); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": errs,
		})
		return
	}
	_, recordID := validator.IsUUID(req.RecordID)

	res, err := fc.fileService.Compress(c.Request.Context(), ports.CompressInput{
		RecordID: recordID,
		AssetID:  strings.TrimSpace(req.AssetID),
		Level:    req.CompressionLevel,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidLevel), errors.Is(err, services.ErrAssetMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "file record not found"})
		case errors.Is(err, services.ErrTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": services.NewTooLargeError(fc.maxSize).Message})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compress file"})
			fc.logger.Error("Compress() error", zap.Error(err))
		}
		return
	}

	c.JSON(http.StatusOK, file_record.CompressResponse{
		CompressedURL:  res.URL,
		CompressedSize: res.CompressedSize,
		SavedPercent:   res.PercentSaved,
	})
}

func (fc *FileController) DownloadArchiveHandler(c *gin.Context) {
	var req file_record.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}
	ids, err := validator.ParseIDs(req.RecordIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	arc, err := fc.fileService.BuildArchive(c.Request.Context(), ids)
	if err != nil {
		var missing *services.MissingRecordsError
		switch {
		case errors.As(err, &missing):
			c.JSON(http.StatusNotFound, gin.H{
				"error":      "file records not found",
				"missingIds": missing.IDs,
			})
		case errors.Is(err, services.ErrNoRecords):
			c.JSON(http.StatusNotFound, gin.H{"error": "no matching file records"})
		case errors.Is(err, services.ErrUpstreamStorage), errors.Is(err, services.ErrTooLarge):
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch files"})
			fc.logger.Error("BuildArchive() error", zap.Error(err))
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build archive"})
			fc.logger.Error("BuildArchive() error", zap.Error(err))
		}
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", attachment(arc.FileName))
	c.Status(http.StatusOK)
	if err = archive.Write(c.Writer, arc.Entries, time.Now()); err != nil {
		// headers are gone; the client sees a broken stream
		fc.logger.Error("archive.Write() error", zap.Int64("bytes", archive.Size(arc.Entries)), zap.Error(err))
	}
}

func (fc *FileController) DownloadFileHandler(c *gin.Context) {
	raw := c.Query("recordId")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recordId is required"})
		return
	}
	ok, id := validator.IsUUID(raw)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recordId must be a valid UUID"})
		return
	}

	dl, err := fc.fileService.OpenDownload(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "file record not found"})
		case errors.Is(err, services.ErrUpstreamStorage):
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch file"})
			fc.logger.Error("OpenDownload() error", zap.Error(err))
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to download file"})
			fc.logger.Error("OpenDownload() error", zap.Error(err))
		}
		return
	}
	defer dl.Body.Close()

	c.DataFromReader(http.StatusOK, -1, dl.ContentType, dl.Body, map[string]string{
		"Content-Disposition": attachment(dl.FileName),
	})
}

// uploadFailure maps an upload error to a status and a message safe for the client.
func uploadFailure(err error) (int, string) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		if ve.Reason == services.ReasonTooLarge {
			return http.StatusRequestEntityTooLarge, ve.Message
		}
		return http.StatusBadRequest, ve.Message
	case errors.Is(err, services.ErrUpstreamStorage):
		return http.StatusInternalServerError, "failed to store file"
	case errors.Is(err, services.ErrMetadataStore):
		return http.StatusInternalServerError, "failed to save file record"
	default:
		return http.StatusInternalServerError, "failed to upload file"
	}
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func attachment(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
