package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dispatch-backend/internal/domain"
	"dispatch-backend/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxRequestID = "requestId"
	ctxAdmin     = "adminSubject"
)

// Deps are the services the HTTP surface dispatches to.
type Deps struct {
	Status   *usecase.StatusService
	Importer *usecase.ImportService
	Resolver *usecase.Resolver
	Assign   *usecase.AssignService
	Couriers *usecase.CourierService
	Stores   *usecase.StoreService
	Admin    *usecase.AdminAuth
	Log      *slog.Logger
}

type Server struct {
	d      Deps
	log    *slog.Logger
	engine *gin.Engine
}

func New(d Deps) *Server {
	s := &Server{d: d, log: d.Log, engine: gin.New()}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.engine.Use(s.requestID(), s.accessLog(), gin.CustomRecovery(s.recover), s.cors())
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// riderAliases map the courier app's webhook names onto status events.
var riderAliases = map[string]string{
	"picked-up":             "picked_up",
	"shipped":               "in_transit",
	"delivered-to-store":    "delivered_to_store",
	"delivered-to-customer": "delivered_to_customer",
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/status-update", s.handleStatusUpdate)
	r.POST("/rider-webhooks/:alias", s.handleRiderWebhook)
	r.POST("/import-order", s.handleImportOrder)

	admin := r.Group("/", s.requireAdmin())
	admin.POST("/assign", s.handleAssign)
	admin.GET("/assignment-context/:orderId", s.handleAssignmentContext)
	admin.POST("/assignments/:orderId/status", s.handleAssignmentStatus)
	admin.GET("/couriers/available", s.handleAvailableCouriers)
	admin.GET("/stores", s.handleListStores)
	admin.POST("/stores", s.handleCreateStore)
}

func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "*")
		h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = c.GetHeader("Idempotency-Key")
		}
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.log.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString(ctxRequestID))
	}
}

func (s *Server) recover(c *gin.Context, v any) {
	s.log.Error("panic in handler", "panic", v, "path", c.Request.URL.Path)
	s.fail(c, http.StatusInternalServerError, "ServerError", "internal error")
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || s.d.Admin == nil {
			s.fail(c, http.StatusUnauthorized, "Unauthorized", "unauthorized")
			return
		}
		sub, err := s.d.Admin.Verify(strings.TrimSpace(tok))
		if err != nil {
			s.fail(c, http.StatusUnauthorized, "Unauthorized", err.Error())
			return
		}
		c.Set(ctxAdmin, sub)
		c.Next()
	}
}

func credentials(c *gin.Context) usecase.Credentials {
	bearer, _ := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	return usecase.Credentials{
		Bearer: strings.TrimSpace(bearer),
		Header: strings.TrimSpace(c.GetHeader("x-shared-secret")),
	}
}

type statusUpdateReq struct {
	OrderID     string `json:"orderId"`
	Event       string `json:"event"`
	CourierID   string `json:"courierId"`
	CourierName string `json:"courierName"`
}

func (s *Server) handleStatusUpdate(c *gin.Context) {
	if err := s.d.Status.Guard.Webhook(credentials(c)); err != nil {
		s.failErr(c, err)
		return
	}
	var req statusUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	s.updateStatus(c, req)
}

type riderWebhookReq struct {
	OrderID     string `json:"orderId"`
	RiderID     string `json:"riderId"`
	RiderName   string `json:"riderName"`
	CourierID   string `json:"courierId"`
	CourierName string `json:"courierName"`
}

func (s *Server) handleRiderWebhook(c *gin.Context) {
	if err := s.d.Status.Guard.Webhook(credentials(c)); err != nil {
		s.failErr(c, err)
		return
	}
	event, ok := riderAliases[c.Param("alias")]
	if !ok {
		s.fail(c, http.StatusNotFound, "NotFound", "unknown rider webhook "+c.Param("alias"))
		return
	}
	var req riderWebhookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	s.updateStatus(c, statusUpdateReq{
		OrderID:     req.OrderID,
		Event:       event,
		CourierID:   firstNonEmpty(req.CourierID, req.RiderID),
		CourierName: firstNonEmpty(req.CourierName, req.RiderName),
	})
}

func (s *Server) updateStatus(c *gin.Context, req statusUpdateReq) {
	res, err := s.d.Status.UpdateStatus(c.Request.Context(), credentials(c), usecase.StatusUpdate{
		OrderID:     req.OrderID,
		Event:       req.Event,
		CourierID:   req.CourierID,
		CourierName: req.CourierName,
	})
	if err != nil {
		s.failErr(c, err)
		return
	}
	var upstream any
	if res.UpstreamStatus != "" {
		upstream = res.UpstreamStatus
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":                    true,
		"orderId":               res.OrderID,
		"localOrderStatus":      res.LocalOrderStatus,
		"localAssignmentStatus": res.LocalAssignmentStatus,
		"upstreamStatus":        upstream,
		"mirrored":              res.Mirror.OK,
	})
}

type importReq struct {
	OrderID string `json:"orderId"`
	Source  string `json:"source"`
}

func (s *Server) handleImportOrder(c *gin.Context) {
	secret := strings.TrimSpace(c.GetHeader("x-shared-secret"))
	if err := s.d.Importer.Guard.Import(secret); err != nil {
		s.failErr(c, err)
		return
	}
	var req importReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	res, err := s.d.Importer.Import(c.Request.Context(), secret, req.OrderID, req.Source)
	if err != nil {
		s.failErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"ok":            true,
		"localOrderId":  res.LocalOrderID,
		"sourceOrderId": res.SourceOrderID,
		"created":       res.Created,
	})
}

type assignReq struct {
	OrderID           string `json:"orderId"`
	CourierID         string `json:"courierId"`
	SelectedAddressID string `json:"selectedAddressId"`
	AssignmentType    string `json:"assignmentType"`
}

func (s *Server) handleAssign(c *gin.Context) {
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	a, err := s.d.Assign.Assign(c.Request.Context(), usecase.AssignRequest{
		OrderID:           req.OrderID,
		CourierID:         req.CourierID,
		SelectedAddressID: req.SelectedAddressID,
		AssignmentType:    domain.Leg(strings.ToLower(strings.TrimSpace(req.AssignmentType))),
	})
	if err != nil {
		s.failErr(c, err)
		return
	}
	s.log.Info("assignment saved", "order_id", a.OrderID, "admin", c.GetString(ctxAdmin))
	c.JSON(http.StatusOK, gin.H{"ok": true, "assignment": a})
}

func (s *Server) handleAssignmentContext(c *gin.Context) {
	leg := domain.Leg(strings.ToLower(strings.TrimSpace(c.Query("type"))))
	out, err := s.d.Resolver.Context(c.Request.Context(), c.Param("orderId"), leg)
	if err != nil {
		s.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type assignmentStatusReq struct {
	Status string `json:"status"`
}

func (s *Server) handleAssignmentStatus(c *gin.Context) {
	var req assignmentStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	a, err := s.d.Assign.SetStatus(c.Request.Context(), c.Param("orderId"), domain.AssignmentStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		s.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "assignment": a})
}

func (s *Server) handleAvailableCouriers(c *gin.Context) {
	list, err := s.d.Couriers.Available(c.Request.Context())
	if err != nil {
		s.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "couriers": list})
}

func (s *Server) handleListStores(c *gin.Context) {
	list, err := s.d.Stores.List(c.Request.Context())
	if err != nil {
		s.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "stores": list})
}

func (s *Server) handleCreateStore(c *gin.Context) {
	var req domain.StoreAddress
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	st, err := s.d.Stores.Create(c.Request.Context(), req)
	if err != nil {
		s.failErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "store": st})
}

// failErr maps usecase errors onto status codes. Anything untyped is a 500
// and its text stays in the log.
func (s *Server) failErr(c *gin.Context, err error) {
	var (
		unauth usecase.ErrUnauthorized
		bad    usecase.ErrBadRequest
		nf     usecase.ErrNotFound
		up     usecase.ErrUpstream
		dep    usecase.ErrDependency
	)
	switch {
	case errors.As(err, &unauth):
		s.fail(c, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.As(err, &bad):
		s.fail(c, http.StatusBadRequest, "BadRequest", err.Error())
	case errors.As(err, &nf):
		s.fail(c, http.StatusNotFound, "NotFound", err.Error())
	case errors.As(err, &up):
		s.fail(c, http.StatusBadGateway, "UpstreamError", err.Error())
	case errors.As(err, &dep):
		s.fail(c, http.StatusFailedDependency, "DependencyFailed", err.Error())
	default:
		s.log.Error("request failed", "path", c.FullPath(), "error", err, "request_id", c.GetString(ctxRequestID))
		s.fail(c, http.StatusInternalServerError, "ServerError", "internal error")
	}
}

func (s *Server) fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"ok":        false,
		"error":     msg,
		"code":      code,
		"requestId": c.GetString(ctxRequestID),
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
