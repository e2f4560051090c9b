package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mpilhlt/dhamps-blog/internal/database"
	"github.com/mpilhlt/dhamps-blog/internal/hits"
	"github.com/mpilhlt/dhamps-blog/internal/models"
	"github.com/mpilhlt/dhamps-blog/internal/render"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	huma "github.com/danielgtaylor/huma/v2"
)

type contextKey string

// Context keys
const (
	PoolKey     = contextKey("dbPool")
	RendererKey = contextKey("renderer")
	CounterKey  = contextKey("hitCounter")
)

// Error responses
var (
	ErrPoolNotFound     = errors.New("database connection pool not found in context")
	ErrRendererNotFound = errors.New("page renderer not found in context")
	ErrCounterNotFound  = errors.New("view counter not found in context")
)

// Services bundles the collaborators of the handlers besides the pool.
type Services struct {
	Renderer *render.Renderer
	Counter  hits.Counter
}

// AddRoutes adds all the routes to the API
func AddRoutes(pool *pgxpool.Pool, services Services, api huma.API) error {
	err := RegisterPostsRoutes(pool, api)
	if err != nil {
		zap.L().Error("unable to register posts routes", zap.Error(err))
		return err
	}
	err = RegisterPageRoutes(pool, services, api)
	if err != nil {
		zap.L().Error("unable to register page routes", zap.Error(err))
		return err
	}
	err = RegisterAdminRoutes(pool, services.Counter, api)
	if err != nil {
		zap.L().Error("unable to register admin routes", zap.Error(err))
		return err
	}
	return nil
}

// Middleware to add the connection pool to the context
func addPoolToContext[I any, O any](pool *pgxpool.Pool, next func(context.Context, *I) (*O, error)) func(context.Context, *I) (*O, error) {
	return func(ctx context.Context, input *I) (*O, error) {
		if pool == nil {
			return nil, fmt.Errorf("provided pool is nil")
		}
		ctx = context.WithValue(ctx, PoolKey, pool)
		return next(ctx, input)
	}
}

// Middleware to add the page renderer to the context
func addRendererToContext[I any, O any](renderer *render.Renderer, next func(context.Context, *I) (*O, error)) func(context.Context, *I) (*O, error) {
	return func(ctx context.Context, input *I) (*O, error) {
		if renderer == nil {
			return nil, fmt.Errorf("provided renderer is nil")
		}
		ctx = context.WithValue(ctx, RendererKey, renderer)
		return next(ctx, input)
	}
}

// Middleware to add the view counter to the context
func addCounterToContext[I any, O any](counter hits.Counter, next func(context.Context, *I) (*O, error)) func(context.Context, *I) (*O, error) {
	return func(ctx context.Context, input *I) (*O, error) {
		if counter == nil {
			return nil, fmt.Errorf("provided counter is nil")
		}
		ctx = context.WithValue(ctx, CounterKey, counter)
		return next(ctx, input)
	}
}

// Get the database connection pool from the context
// (exported helper function so that blackbox testing can access it)
func GetDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, ok := ctx.Value(PoolKey).(*pgxpool.Pool)
	if !ok || pool == nil {
		return nil, huma.NewError(http.StatusInternalServerError, ErrPoolNotFound.Error())
	}
	return pool, nil
}

// Get the page renderer from the context
func GetRenderer(ctx context.Context) (*render.Renderer, error) {
	renderer, ok := ctx.Value(RendererKey).(*render.Renderer)
	if !ok || renderer == nil {
		return nil, huma.NewError(http.StatusInternalServerError, ErrRendererNotFound.Error())
	}
	return renderer, nil
}

// Get the view counter from the context
func GetCounter(ctx context.Context) (hits.Counter, error) {
	counter, ok := ctx.Value(CounterKey).(hits.Counter)
	if !ok || counter == nil {
		return nil, huma.NewError(http.StatusInternalServerError, ErrCounterNotFound.Error())
	}
	return counter, nil
}

// toPost converts a database row into its API representation.
func toPost(p database.Post) models.Post {
	return models.Post{
		PostID:    p.PostID,
		Title:     p.Title,
		Body:      p.Body,
		CreatedAt: p.CreatedAt.Time,
		UpdatedAt: p.UpdatedAt.Time,
	}
}
