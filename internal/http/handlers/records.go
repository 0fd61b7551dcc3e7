package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/geocoder89/catalogapi/internal/http/middlewares"
	"github.com/geocoder89/catalogapi/internal/resource"
	"github.com/gin-gonic/gin"
)

// RecordsHandler serves CRUD for whichever collection ResolveModel put on the
// context, so one handler covers every model.
type RecordsHandler struct {
	log *slog.Logger
}

func NewRecordsHandler(log *slog.Logger) *RecordsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &RecordsHandler{log: log}
}

func (h *RecordsHandler) collection(ctx *gin.Context) (resource.Collection, bool) {
	coll, ok := middlewares.CollectionFromContext(ctx)
	if !ok {
		RespondNotFound(ctx, "invalid_model", "Invalid Model")
		return nil, false
	}
	return coll, true
}

func parseID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(ctx, "id must be a positive integer", gin.H{"id": ctx.Param("id")})
		return 0, false
	}
	return id, true
}

func (h *RecordsHandler) bindAttributes(ctx *gin.Context, schema resource.Schema, partial bool) (resource.Attributes, bool) {
	var payload map[string]any

	if !BindJSON(ctx, &payload) {
		return nil, false
	}

	attrs, err := schema.Attributes(payload, partial)
	if err != nil {
		RespondStoreError(ctx, h.log, err)
		return nil, false
	}
	return attrs, true
}

func (h *RecordsHandler) GetAll(ctx *gin.Context) {
	coll, ok := h.collection(ctx)
	if !ok {
		return
	}

	records, err := coll.Get(ctx.Request.Context())
	if err != nil {
		RespondStoreError(ctx, h.log, err)
		return
	}

	RespondRead(ctx, records)
}

func (h *RecordsHandler) GetOne(ctx *gin.Context) {
	coll, ok := h.collection(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	rec, err := coll.GetByID(ctx.Request.Context(), id)
	if err != nil {
		RespondStoreError(ctx, h.log, err)
		return
	}

	RespondRead(ctx, rec)
}

func (h *RecordsHandler) Create(ctx *gin.Context) {
	coll, ok := h.collection(ctx)
	if !ok {
		return
	}

	attrs, ok := h.bindAttributes(ctx, coll.Schema(), false)
	if !ok {
		return
	}

	rec, err := coll.Create(ctx.Request.Context(), attrs)
	if err != nil {
		RespondStoreError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusCreated, rec)
}

func (h *RecordsHandler) Update(ctx *gin.Context) {
	coll, ok := h.collection(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	attrs, ok := h.bindAttributes(ctx, coll.Schema(), true)
	if !ok {
		return
	}

	rec, err := coll.Update(ctx.Request.Context(), id, attrs)
	if err != nil {
		RespondStoreError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, rec)
}

// Delete answers with the bare number of removed records, 0 when the id was
// already gone.
func (h *RecordsHandler) Delete(ctx *gin.Context) {
	coll, ok := h.collection(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	n, err := coll.Delete(ctx.Request.Context(), id)
	if err != nil {
		RespondStoreError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, n)
}
