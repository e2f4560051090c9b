package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mpilhlt/dhamps-blog/internal/auth"
	"github.com/mpilhlt/dhamps-blog/internal/database"
	"github.com/mpilhlt/dhamps-blog/internal/hits"
	"github.com/mpilhlt/dhamps-blog/internal/models"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func resetDbFunc(ctx context.Context, input *models.ResetDbRequest) (*models.ResetDbResponse, error) {
	pool, err := GetDBPool(ctx)
	if err != nil {
		zap.L().Error("resetting database: no connection pool", zap.Error(err))
		return nil, err
	}
	counter, err := GetCounter(ctx)
	if err != nil {
		return nil, err
	}

	queries := database.New(pool)

	zap.L().Info("resetting database: deleting all records")
	err = queries.DeleteAllRecords(ctx)
	if err != nil {
		zap.L().Error("resetting database: unable to delete records", zap.Error(err))
		return nil, huma.Error500InternalServerError(fmt.Sprintf("unable to delete all records. %v", err))
	}

	zap.L().Info("resetting database: resetting serials")
	err = queries.ResetAllSerials(ctx)
	if err != nil {
		zap.L().Error("resetting database: unable to reset serials", zap.Error(err))
		return nil, huma.Error500InternalServerError(fmt.Sprintf("unable to reset serials. %v", err))
	}

	err = counter.Reset(ctx)
	if err != nil {
		zap.L().Error("resetting database: unable to reset view counts", zap.Error(err))
		return nil, huma.Error500InternalServerError(fmt.Sprintf("unable to reset view counts. %v", err))
	}

	return &models.ResetDbResponse{}, nil
}

// RegisterAdminRoutes registers all the admin routes with the API
func RegisterAdminRoutes(pool *pgxpool.Pool, counter hits.Counter, api huma.API) error {
	footgunOp := huma.Operation{
		OperationID:   "footgun",
		Method:        http.MethodGet,
		Path:          "/v1/admin/footgun",
		DefaultStatus: http.StatusNoContent,
		Summary:       "Remove all records from database and reset serials/counters",
		Security:      auth.AdminSecurity,
		Tags:          []string{"admin"},
	}

	huma.Register(api, footgunOp, addPoolToContext(pool, addCounterToContext(counter, resetDbFunc)))
	return nil
}
