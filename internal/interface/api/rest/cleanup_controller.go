package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"compraser-api/internal/application/ports"
	"compraser-api/internal/application/services"
	"compraser-api/internal/infrastructure/jwt"
	"compraser-api/internal/interface/api/rest/dto/file_record"
	"compraser-api/internal/interface/api/rest/middleware"
)

// cleanupTimeout bounds a sweep started over HTTP; a client hang-up does not cut it short.
const cleanupTimeout = time.Minute

type CleanupController struct {
	sweepService ports.SweepService
	logger       *zap.Logger
	now          func() time.Time
}

func NewCleanupController(
	r *gin.Engine,
	sweepService ports.SweepService,
	logger *zap.Logger,
	secret string,
	jwtService *jwt.Service,
) *CleanupController {
	cc := &CleanupController{
		sweepService: sweepService,
		logger:       logger,
		now:          time.Now,
	}

	auth := middleware.CleanupAuth(secret, jwtService)
	r.GET(RouteCleanup, auth, cc.CleanupHandler)
	r.POST(RouteCleanup, auth, cc.CleanupHandler)

	return cc
}

func (cc *CleanupController) CleanupHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), cleanupTimeout)
	defer cancel()

	res, err := cc.sweepService.Sweep(ctx, cc.now())
	if err != nil {
		cc.logger.Error("Sweep() error", zap.Error(err))
		if errors.Is(err, services.ErrRowDeletion) && res != nil {
			c.JSON(http.StatusInternalServerError, file_record.CleanupErrorResponse{
				Error:         "Asset cleanup done but metadata delete failed.",
				AssetsDeleted: res.AssetsDeleted,
				AssetFailures: res.AssetFailures,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cleanup failed"})
		return
	}

	if res.DeletedCount == 0 && res.AssetsDeleted == 0 && res.AssetFailures == 0 {
		c.JSON(http.StatusOK, file_record.CleanupResponse{})
		return
	}

	c.JSON(http.StatusOK, file_record.CleanupResponse{
		DeletedCount:  res.DeletedCount,
		AssetsDeleted: &res.AssetsDeleted,
		AssetFailures: &res.AssetFailures,
	})
}
