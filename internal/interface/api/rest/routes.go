package rest

const (
	// files
	RouteUpload      = "/upload"
	RouteUploadBatch = RouteUpload + "/batch"
	RouteCompress    = "/compress"
	RouteDownload    = "/download"

	// lifecycle
	RouteCleanup = "/cleanup"

	// ops
	RouteHealth  = "/healthz"
	RouteReady   = "/readyz"
	RouteMetrics = "/metrics"
)
