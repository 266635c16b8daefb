package handler

import (
	"github.com/sachirademein17/mindcareapp-sub000/internal/chathub"
	"github.com/sachirademein17/mindcareapp-sub000/internal/config"
	"github.com/sachirademein17/mindcareapp-sub000/internal/storage"
)

// Handler holds what every endpoint needs: the store, the live hub and the
// runtime config.
type Handler struct {
	Store storage.Storage
	Hub   *chathub.Manager
	Cfg   config.Config
}

func NewHandler(store storage.Storage, hub *chathub.Manager, cfg config.Config) *Handler {
	return &Handler{Store: store, Hub: hub, Cfg: cfg}
}
