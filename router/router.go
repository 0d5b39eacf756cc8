package router

import (
	"database/sql"
	"net/http"

	"cratetrack/internal/livequery"
	recordhandler "cratetrack/internal/record"
	recordrepo "cratetrack/internal/record/repository"
	recordservice "cratetrack/internal/record/service"
	userhandler "cratetrack/internal/user"
	userrepo "cratetrack/internal/user/repository"
	userservice "cratetrack/internal/user/service"
	"cratetrack/middleware"
	"cratetrack/pkg/geocode"
	"cratetrack/socket"
)

// Setup wires the store, feed, hub, and handlers into one http.Handler.
// The feed and hub are explicit objects owned here, not package globals.
func Setup(db *sql.DB, geo *geocode.Client) (http.Handler, *socket.Hub) {
	mux := http.NewServeMux()

	recordRepo := recordrepo.NewRecordRepository(db)
	userRepo := userrepo.NewUserRepository(db)
	feed := livequery.NewFeed(recordRepo, userRepo)
	hub := socket.NewHub(feed)

	recordService := recordservice.NewRecordService(recordRepo, geo, feed)
	userService := userservice.NewUserService(userRepo, feed)
	recordHandler := recordhandler.NewRecordHandler(recordService)
	userHandler := userhandler.NewUserHandler(userService)
	auth := middleware.AuthMiddleware
	admin := func(h http.Handler) http.Handler { return auth(middleware.RequireAdmin(h)) }

	// WebSocket live feed
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFrom(r.Context())
		role := middleware.RoleFrom(r.Context())
		socket.ServeWs(hub, w, r, userID, role)
	})
	mux.Handle("/ws", auth(wsHandler))

	// Identity
	mux.Handle("/api/auth/register", http.HandlerFunc(userHandler.Register))
	mux.Handle("/api/auth/login", http.HandlerFunc(userHandler.Login))

	// Records
	mux.Handle("/api/records", auth(http.HandlerFunc(recordHandler.GetRecords)))
	mux.Handle("/api/records/create", auth(http.HandlerFunc(recordHandler.CreateRecord)))
	mux.Handle("/api/records/address", auth(http.HandlerFunc(recordHandler.UpdateAddress)))
	mux.Handle("/api/records/delete", auth(http.HandlerFunc(recordHandler.DeleteRecord)))

	// Admin
	mux.Handle("/api/admin/users", admin(http.HandlerFunc(userHandler.GetUsers)))
	mux.Handle("/api/admin/users/role", admin(http.HandlerFunc(userHandler.ToggleRole)))

	return middleware.CORSMiddleware(mux), hub
}
