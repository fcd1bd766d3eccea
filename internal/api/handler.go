package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/stac-catalog/internal/model"
	"github.com/sells-group/stac-catalog/internal/serializer"
	"github.com/sells-group/stac-catalog/internal/transactions"
)

// Transactions is the single-record surface the handlers call.
type Transactions interface {
	CreateItem(ctx context.Context, baseURL string, item model.Item) (*model.Item, error)
	CreateCollection(ctx context.Context, baseURL string, c model.Collection) (*model.Collection, error)
	UpdateItem(ctx context.Context, baseURL string, item model.Item) (*model.Item, error)
	UpdateCollection(ctx context.Context, baseURL string, c model.Collection) (*model.Collection, error)
	DeleteItem(ctx context.Context, baseURL, itemID, collectionID string) (*model.Item, error)
	DeleteCollection(ctx context.Context, baseURL, collectionID string) (*model.Collection, error)
}

// BulkTransactions is the bulk surface the handlers call.
type BulkTransactions interface {
	BulkItemInsert(ctx context.Context, items []model.Item, chunkSize int) (string, error)
}

// Handler serves the transactions routes.
type Handler struct {
	tx        Transactions
	bulk      BulkTransactions
	baseURL   string
	chunkSize int
}

// NewHandler creates a Handler. An empty baseURL means links are built from
// each request's scheme and host. chunkSize is the bulk default when the
// request gives none.
func NewHandler(tx Transactions, bulk BulkTransactions, baseURL string, chunkSize int) *Handler {
	return &Handler{tx: tx, bulk: bulk, baseURL: baseURL, chunkSize: chunkSize}
}

// errorBody is the JSON error shape.
type errorBody struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) createCollection(w http.ResponseWriter, r *http.Request) {
	var c model.Collection
	if !decode(w, r, &c) {
		return
	}
	if c.ID == "" {
		badRequest(w, "collection id is required")
		return
	}
	out, err := h.tx.CreateCollection(r.Context(), h.base(r), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) updateCollection(w http.ResponseWriter, r *http.Request) {
	var c model.Collection
	if !decode(w, r, &c) {
		return
	}
	if c.ID == "" {
		badRequest(w, "collection id is required")
		return
	}
	out, err := h.tx.UpdateCollection(r.Context(), h.base(r), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) deleteCollection(w http.ResponseWriter, r *http.Request) {
	out, err := h.tx.DeleteCollection(r.Context(), h.base(r), chi.URLParam(r, "collection_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var item model.Item
	if !decode(w, r, &item) {
		return
	}
	if !bindItemPath(w, r, &item, false) {
		return
	}
	out, err := h.tx.CreateItem(r.Context(), h.base(r), item)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	var item model.Item
	if !decode(w, r, &item) {
		return
	}
	if !bindItemPath(w, r, &item, true) {
		return
	}
	out, err := h.tx.UpdateItem(r.Context(), h.base(r), item)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	out, err := h.tx.DeleteItem(r.Context(), h.base(r),
		chi.URLParam(r, "item_id"), chi.URLParam(r, "collection_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) bulkItems(w http.ResponseWriter, r *http.Request) {
	chunkSize := h.chunkSize
	if v := r.URL.Query().Get("chunk_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "chunk_size must be a non-negative integer")
			return
		}
		chunkSize = n
	}

	var body model.Items
	if !decode(w, r, &body) {
		return
	}
	collectionID := chi.URLParam(r, "collection_id")
	for i := range body.Items {
		if body.Items[i].Collection == "" {
			body.Items[i].Collection = collectionID
		}
		if body.Items[i].Collection != collectionID {
			badRequest(w, "item "+body.Items[i].ID+" belongs to collection "+body.Items[i].Collection)
			return
		}
	}

	msg, err := h.bulk.BulkItemInsert(r.Context(), body.Items, chunkSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// bindItemPath fills the item's collection (and id, when withID) from the
// path, rejecting bodies that name a different one.
func bindItemPath(w http.ResponseWriter, r *http.Request, item *model.Item, withID bool) bool {
	collectionID := chi.URLParam(r, "collection_id")
	if item.Collection == "" {
		item.Collection = collectionID
	}
	if item.Collection != collectionID {
		badRequest(w, "item collection does not match path")
		return false
	}
	if withID {
		itemID := chi.URLParam(r, "item_id")
		if item.ID == "" {
			item.ID = itemID
		}
		if item.ID != itemID {
			badRequest(w, "item id does not match path")
			return false
		}
	}
	if item.ID == "" {
		badRequest(w, "item id is required")
		return false
	}
	return true
}

// base returns the configured base URL or one derived from the request.
func (h *Handler) base(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + "/"
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Code: "BadRequest", Description: msg})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var nf *transactions.NotFoundError
	if errors.As(err, &nf) {
		writeJSON(w, http.StatusNotFound, errorBody{Code: "NotFoundError", Description: nf.Error()})
		return
	}
	if errors.Is(err, serializer.ErrInvalidDatetime) {
		badRequest(w, err.Error())
		return
	}
	zap.L().Error("api: request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, errorBody{Code: "InternalServerError", Description: "internal server error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
