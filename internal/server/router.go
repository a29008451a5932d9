package server

import (
	"context"
	"net/http"

	"aromastock/internal/handlers"
	applog "aromastock/internal/log"
)

func newRouter() http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")
	mux.HandleFunc("/healthz", handlers.Health)
	applog.Debug(context.Background(), "route registered", "path", "/healthz")
	mux.HandleFunc("/login", handlers.Login)
	applog.Debug(context.Background(), "route registered", "path", "/login")
	mux.HandleFunc("/signup", handlers.Signup)
	applog.Debug(context.Background(), "route registered", "path", "/signup")
	mux.HandleFunc("/logout", handlers.Logout)
	applog.Debug(context.Background(), "route registered", "path", "/logout")
	mux.Handle("/app/api/materials", handlers.RequireAuthentication(http.HandlerFunc(handlers.MaterialResource)))
	mux.Handle("/app/api/materials/", handlers.RequireAuthentication(http.HandlerFunc(handlers.MaterialResource)))
	applog.Debug(context.Background(), "route registered", "path", "/app/api/materials", "protected", true)
	mux.Handle("/app/api/recipes", handlers.RequireAuthentication(http.HandlerFunc(handlers.RecipeResource)))
	mux.Handle("/app/api/recipes/", handlers.RequireAuthentication(http.HandlerFunc(handlers.RecipeResource)))
	applog.Debug(context.Background(), "route registered", "path", "/app/api/recipes", "protected", true)
	mux.Handle("/app/api/production", handlers.RequireAuthentication(http.HandlerFunc(handlers.ProductionResource)))
	mux.Handle("/app/api/production/", handlers.RequireAuthentication(http.HandlerFunc(handlers.ProductionResource)))
	applog.Debug(context.Background(), "route registered", "path", "/app/api/production", "protected", true)
	mux.Handle("/app/api/import", handlers.RequireAuthentication(http.HandlerFunc(handlers.RecipeImport)))
	applog.Debug(context.Background(), "route registered", "path", "/app/api/import", "protected", true)
	mux.Handle("/app/api/activity", handlers.RequireAuthentication(http.HandlerFunc(handlers.ActivityFeed)))
	applog.Debug(context.Background(), "route registered", "path", "/app/api/activity", "protected", true)
	return mux
}
