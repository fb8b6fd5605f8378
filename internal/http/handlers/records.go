package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/http/response"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
	"github.com/yungbote/agroyield-backend/internal/services"
)

type RecordHandlerDeps struct {
	Log     *logger.Logger
	Service services.RecordService
}

// RecordHandler serves /api/{backend}/records for one backend.
type RecordHandler struct {
	log    *logger.Logger
	svc    services.RecordService
	flavor crops.Flavor
}

func NewRecordHandlerWithDeps(deps RecordHandlerDeps) *RecordHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	h := &RecordHandler{svc: deps.Service, flavor: crops.FlavorRelational}
	if deps.Service != nil {
		h.flavor = deps.Service.Flavor()
		log = log.With("backend", deps.Service.Backend())
	}
	h.log = log.With("handler", "RecordHandler")
	return h
}

// POST /api/{backend}/records/
func (h *RecordHandler) Create(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondInvalid(c, "invalid request body: "+err.Error())
		return
	}
	if !req.year(h.flavor).Set {
		response.RespondInvalid(c, yearKey(h.flavor)+" is required")
		return
	}
	view, err := h.svc.Create(c.Request.Context(), req.toCreate(h.flavor))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, crops.Project(h.flavor, *view))
}

// GET /api/{backend}/records/?limit=&offset=&state=&crop=&season=&year=
func (h *RecordHandler) List(c *gin.Context) {
	f := crops.RecordFilter{
		State:  c.Query("state"),
		Crop:   c.Query("crop"),
		Season: c.Query("season"),
	}
	var err error
	if f.Limit, err = queryInt(c, "limit", crops.DefaultListLimit); err != nil {
		response.RespondInvalid(c, err.Error())
		return
	}
	if f.Offset, err = queryInt(c, "offset", 0); err != nil {
		response.RespondInvalid(c, err.Error())
		return
	}
	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			response.RespondInvalid(c, "year must be an integer")
			return
		}
		f.Year = &year
	}
	views, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, crops.ProjectAll(h.flavor, views))
}

// GET /api/{backend}/records/latest
func (h *RecordHandler) Latest(c *gin.Context) {
	view, err := h.svc.Latest(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, crops.Project(h.flavor, *view))
}

// GET /api/{backend}/records/:id
func (h *RecordHandler) Get(c *gin.Context) {
	view, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, crops.Project(h.flavor, *view))
}

// PUT /api/{backend}/records/:id
func (h *RecordHandler) Update(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondInvalid(c, "invalid request body: "+err.Error())
		return
	}
	view, err := h.svc.Update(c.Request.Context(), c.Param("id"), req.toUpdate(h.flavor))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, crops.Project(h.flavor, *view))
}

// DELETE /api/{backend}/records/:id
func (h *RecordHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func yearKey(flavor crops.Flavor) string {
	if flavor == crops.FlavorDocument {
		return "year"
	}
	return "crop_year"
}

type queryError string

func (e queryError) Error() string { return string(e) }

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(key + " must be an integer")
	}
	return n, nil
}
