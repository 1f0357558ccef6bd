package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/checklist/internal/grocery"
	"github.com/dukerupert/checklist/internal/importer"
	"github.com/dukerupert/checklist/internal/store"
	ws "github.com/dukerupert/checklist/internal/websocket"
)

// Broadcaster publishes change notifications to connected views.
type Broadcaster interface {
	Broadcast(msg ws.Message)
}

type GroceryHandler struct {
	list   *grocery.Controller
	hub    Broadcaster
	client *http.Client
	logger *slog.Logger
}

func NewGroceryHandler(list *grocery.Controller, hub Broadcaster, client *http.Client, logger *slog.Logger) *GroceryHandler {
	if client == nil {
		client = http.DefaultClient
	}
	return &GroceryHandler{list: list, hub: hub, client: client, logger: logger}
}

type groceryItemRequest struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Category string `json:"category"`
}

func (req groceryItemRequest) input() store.ItemInput {
	return store.ItemInput{Name: req.Name, Quantity: req.Quantity, Category: req.Category}
}

// ListItems returns the snapshot, filtered by ?q= when present.
func (h *GroceryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.list.Search(r.URL.Query().Get("q")))
}

func (h *GroceryHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.list.State())
}

// Refresh re-reads the list; views call it when they regain focus.
func (h *GroceryHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.list.Refresh(r.Context()); err != nil {
		h.writeStoreError(w, err, "failed to refresh list")
		return
	}
	writeJSON(w, http.StatusOK, h.list.State())
}

func (h *GroceryHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req groceryItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.list.Add(r.Context(), req.input())
	if err != nil && item == nil {
		h.writeStoreError(w, err, "failed to create item")
		return
	}

	h.hub.Broadcast(ws.NewMessage("created", item.ID))
	writeJSON(w, http.StatusCreated, item)
}

func (h *GroceryHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req groceryItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.list.Edit(r.Context(), id, req.input())
	if err != nil && item == nil {
		h.writeStoreError(w, err, "failed to update item")
		return
	}

	h.hub.Broadcast(ws.NewMessage("updated", item.ID))
	writeJSON(w, http.StatusOK, item)
}

func (h *GroceryHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	item, err := h.list.Toggle(r.Context(), id)
	if err != nil && item == nil {
		h.writeStoreError(w, err, "failed to toggle item")
		return
	}

	h.hub.Broadcast(ws.NewMessage("toggled", item.ID))
	writeJSON(w, http.StatusOK, item)
}

// DeleteItem is idempotent: a missing id answers 200 with deleted=false.
func (h *GroceryHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	deleted, err := h.list.Delete(r.Context(), id)
	if err != nil && !deleted {
		h.writeStoreError(w, err, "failed to delete item")
		return
	}

	if deleted {
		h.hub.Broadcast(ws.NewMessage("deleted", id))
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *GroceryHandler) ClearBought(w http.ResponseWriter, r *http.Request) {
	count, err := h.list.ClearBought(r.Context())
	if err != nil && count == 0 {
		h.writeStoreError(w, err, "failed to clear bought items")
		return
	}

	if count > 0 {
		msg := ws.NewMessage("cleared", 0)
		msg.Count = count
		h.hub.Broadcast(msg)
	}
	writeJSON(w, http.StatusOK, map[string]int64{"cleared": count})
}

type importRequest struct {
	URL string `json:"url"`
}

// Import merges a remote JSON array into the list. Failures answer 502 with
// the generic import message; rows inserted before the failure stay.
func (h *GroceryHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	src, err := importer.ParseSource(req.URL, h.client)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := src.(importer.HTTPSource); !ok {
		writeError(w, http.StatusBadRequest, "url must be http or https")
		return
	}

	res, err := h.list.Import(r.Context(), src)
	if res.Inserted > 0 {
		msg := ws.NewMessage("imported", 0)
		msg.Count = int64(res.Inserted)
		h.hub.Broadcast(msg)
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":    grocery.ImportFailedMessage,
			"inserted": res.Inserted,
		})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *GroceryHandler) writeStoreError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "item not found")
	default:
		h.logger.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
