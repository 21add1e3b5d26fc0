package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"quickref/internal/convert"
	"quickref/internal/prompt"
	"quickref/internal/service/ai"
	"quickref/internal/session"
	"quickref/internal/upload"
	"quickref/internal/worker"
)

const (
	uploadField = "excelFile"
	// multipart framing on top of the file itself
	formOverheadBytes = 1 << 20

	msgAlive          = "Server is alive"
	msgNoFile         = "No file uploaded."
	msgProcessed      = "File successfully processed and ready for querying."
	msgNextStep       = "Use this sessionId and your question in the /query-gemini endpoint."
	msgProcessFailed  = "Error processing file."
	msgFileTooLarge   = "Uploaded file is too large."
	msgMissingInput   = "sessionId and question are required."
	msgUnknownSession = "Invalid or expired sessionId."
	msgQueryFailed    = "Error querying Gemini API."
	msgBusy           = "Server is busy, please retry."
	msgInvalidated    = "Session invalidated."
)

// Handler wires HTTP routes to the converter, the session store and the query pool.
type Handler struct {
	store           session.Store
	spool           *upload.Spool
	asker           ai.Asker
	baseURL         string
	maxUploadBytes  int64
	maxContextBytes int
}

// NewHandler constructs a Handler instance. asker is usually a *worker.Dispatcher so upstream
// calls are bounded.
func NewHandler(store session.Store, spool *upload.Spool, asker ai.Asker, baseURL string, maxUploadBytes int64, maxContextBytes int) *Handler {
	return &Handler{
		store:           store,
		spool:           spool,
		asker:           asker,
		baseURL:         baseURL,
		maxUploadBytes:  maxUploadBytes,
		maxContextBytes: maxContextBytes,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.GET("/", h.health)
	router.GET("/config", h.clientConfig)
	router.POST("/upload-context", h.uploadContext)
	router.POST("/query-gemini", h.queryGemini)
	router.DELETE("/sessions/:sessionId", h.invalidateSession)
}

// browser client is served from another origin
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": msgAlive})
}

func (h *Handler) clientConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"baseUrl": h.baseURL})
}

func failure(c *gin.Context, status int, message string, err error) {
	body := gin.H{"success": false, "message": message}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(status, body)
}

func (h *Handler) uploadContext(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+formOverheadBytes)
	}
	file, err := c.FormFile(uploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			failure(c, http.StatusRequestEntityTooLarge, msgFileTooLarge, err)
			return
		}
		failure(c, http.StatusBadRequest, msgNoFile, nil)
		return
	}
	if ext := filepath.Ext(file.Filename); !convert.Supported(ext) {
		failure(c, http.StatusInternalServerError, msgProcessFailed, &convert.UnsupportedFormatError{Ext: ext})
		return
	}

	spooled, err := h.spool.Save(file)
	if err != nil {
		if errors.Is(err, upload.ErrTooLarge) {
			failure(c, http.StatusRequestEntityTooLarge, msgFileTooLarge, err)
			return
		}
		log.Printf("upload: spool %s: %v", file.Filename, err)
		failure(c, http.StatusInternalServerError, msgProcessFailed, err)
		return
	}
	defer h.spool.Remove(spooled)

	text, err := convert.Convert(spooled.StoredPath, spooled.Extension)
	if err != nil {
		log.Printf("upload: convert %s: %v", spooled.OriginalName, err)
		failure(c, http.StatusInternalServerError, msgProcessFailed, err)
		return
	}
	if h.maxContextBytes > 0 && len(text) > h.maxContextBytes {
		failure(c, http.StatusRequestEntityTooLarge, msgProcessFailed,
			fmt.Errorf("converted content is %d bytes, limit is %d", len(text), h.maxContextBytes))
		return
	}

	sessionID, err := h.store.Create(c.Request.Context(), text)
	if err != nil {
		log.Printf("upload: create session: %v", err)
		failure(c, http.StatusInternalServerError, msgProcessFailed, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": sessionID,
		"message":   msgProcessed,
		"next_step": msgNextStep,
	})
}

type queryRequest struct {
	SessionID string `json:"sessionId"`
	Question  string `json:"question"`
}

func (h *Handler) queryGemini(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, msgMissingInput, err)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.Question) == "" {
		failure(c, http.StatusBadRequest, msgMissingInput, nil)
		return
	}

	ctx := c.Request.Context()
	se, err := h.store.Get(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			failure(c, http.StatusNotFound, msgUnknownSession, nil)
			return
		}
		log.Printf("query: load session %s: %v", req.SessionID, err)
		failure(c, http.StatusInternalServerError, msgQueryFailed, err)
		return
	}

	answer, err := h.asker.Ask(ctx, prompt.Build(se.Content, req.Question))
	if err != nil {
		if errors.Is(err, worker.ErrDispatcherBusy) {
			failure(c, http.StatusTooManyRequests, msgBusy, nil)
			return
		}
		log.Printf("query: session %s: %v", req.SessionID, err)
		failure(c, http.StatusInternalServerError, msgQueryFailed, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"question": req.Question,
		"answer":   answer,
	})
}

func (h *Handler) invalidateSession(c *gin.Context) {
	err := h.store.Invalidate(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			failure(c, http.StatusNotFound, msgUnknownSession, nil)
			return
		}
		log.Printf("invalidate: session %s: %v", c.Param("sessionId"), err)
		failure(c, http.StatusInternalServerError, "Error invalidating session.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msgInvalidated})
}
