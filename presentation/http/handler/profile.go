package handler

import (
	"errors"
	"net/http"

	"swingref/application/port"
	cfgpkg "swingref/domain/aggregate/config"

	"github.com/gin-gonic/gin"
)

// ProfileHandler exposes CRUD over persisted config profiles: a named
// DetectorConfig/ReferenceConfig pair a session can be initialized from.
type ProfileHandler struct {
	profiles port.ConfigProfileRepository
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles port.ConfigProfileRepository) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

type createProfileRequest struct {
	ID        string               `json:"id" binding:"required"`
	Detector  detectorConfigPatch  `json:"detector"`
	Reference referenceConfigPatch `json:"reference"`
}

// Create handles POST /profiles. The detector/reference bodies are
// patches applied onto the defaults, so a profile only needs to name
// the parameters it changes.
func (h *ProfileHandler) Create(c *gin.Context) {
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	detector, err := req.Detector.apply(cfgpkg.DefaultDetectorConfig())
	if err != nil {
		writeConfigError(c, err)
		return
	}
	reference, err := req.Reference.apply(cfgpkg.DefaultReferenceConfig())
	if err != nil {
		writeConfigError(c, err)
		return
	}

	profile := port.ConfigProfile{ID: req.ID, Detector: detector, Reference: reference}
	if err := h.profiles.Create(c.Request.Context(), profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": req.ID})
}

// List handles GET /profiles.
func (h *ProfileHandler) List(c *gin.Context) {
	profiles, err := h.profiles.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, gin.H{
			"id":       p.ID,
			"lookback": p.Detector.Lookback(),
			"top_n":    p.Reference.TopN(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"profiles": out})
}

// Delete handles DELETE /profiles/:profileID.
func (h *ProfileHandler) Delete(c *gin.Context) {
	id := c.Param("profileID")
	if err := h.profiles.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, port.ErrConfigProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "profile deleted"})
}
