package main

//go:generate swag init -g cmd/syncd/main.go -o docs

// @title           STL 311 Sync API
// @version         0.1.0
// @description     Daily synchronization of St. Louis 311 service requests into PostGIS, with GeoServer layer refresh.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
