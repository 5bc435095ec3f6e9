package handler

import (
	"errors"
	"net/http"
	"strconv"

	"swingref/application/port"
	"swingref/application/usecase"
	"swingref/domain/aggregate/bar"
	cfgpkg "swingref/domain/aggregate/config"

	"github.com/gin-gonic/gin"
)

// SessionHandler exposes the Manager contracts as thin JSON handlers,
// binding request bodies, dispatching to the use case, and mapping
// sentinel errors to status codes the way the teacher's ConfigHandler does.
type SessionHandler struct {
	manager  *usecase.Manager
	profiles port.ConfigProfileRepository
}

// NewSessionHandler creates a new SessionHandler. A nil profiles
// repository disables profile-based initialization.
func NewSessionHandler(manager *usecase.Manager, profiles port.ConfigProfileRepository) *SessionHandler {
	return &SessionHandler{manager: manager, profiles: profiles}
}

type initRequest struct {
	BaseBarIndex int64  `json:"base_bar_index"`
	ProfileID    string `json:"profile_id"`
}

// Init handles POST /sessions. When profile_id names a persisted config
// profile, the session starts from its detector/reference parameters
// instead of the defaults.
func (h *SessionHandler) Init(c *gin.Context) {
	var req initRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	detectorCfg := cfgpkg.DefaultDetectorConfig()
	referenceCfg := cfgpkg.DefaultReferenceConfig()
	if req.ProfileID != "" {
		if h.profiles == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile storage is not configured"})
			return
		}
		profile, err := h.profiles.Get(c.Request.Context(), req.ProfileID)
		if err != nil {
			if errors.Is(err, port.ErrConfigProfileNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		detectorCfg = profile.Detector
		referenceCfg = profile.Reference
	}

	handle, err := h.manager.Init(detectorCfg, referenceCfg, req.BaseBarIndex)
	if err != nil {
		writeConfigError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"handle": handle})
}

type advanceRequest struct {
	Bars             []bar.Bar `json:"bars"`
	IncludeSnapshots bool      `json:"include_snapshots"`
}

// Advance handles POST /sessions/:id/advance.
func (h *SessionHandler) Advance(c *gin.Context) {
	handle := c.Param("id")

	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, snapshots, err := h.manager.Advance(handle, req.Bars, req.IncludeSnapshots)
	if err != nil {
		writeSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "snapshots": snapshots})
}

// Reset handles POST /sessions/:id/reset.
func (h *SessionHandler) Reset(c *gin.Context) {
	handle := c.Param("id")
	if err := h.manager.Reset(handle); err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session reset"})
}

// detectorConfigPatch binds partial updates by field name; unset fields
// are nil and leave the session's current value untouched.
type detectorConfigPatch struct {
	Lookback                  *int     `json:"lookback"`
	MinLegRangeThreshold      *float64 `json:"min_leg_range_threshold"`
	EngulfedBreachThreshold   *float64 `json:"engulfed_breach_threshold"`
	PivotBreachTolerance      *float64 `json:"pivot_breach_tolerance"`
	StaleExtensionThreshold   *int64   `json:"stale_extension_threshold"`
	DominanceFactor           *float64 `json:"dominance_factor"`
	OriginRangePruneThreshold *float64 `json:"origin_range_prune_threshold"`
	OriginTimePruneThreshold  *int64   `json:"origin_time_prune_threshold"`
}

func (p detectorConfigPatch) apply(base cfgpkg.DetectorConfig) (cfgpkg.DetectorConfig, error) {
	cur := base
	var err error
	if p.Lookback != nil {
		if cur, err = cur.WithLookback(*p.Lookback); err != nil {
			return cur, err
		}
	}
	if p.MinLegRangeThreshold != nil {
		if cur, err = cur.WithMinLegRangeThreshold(*p.MinLegRangeThreshold); err != nil {
			return cur, err
		}
	}
	if p.EngulfedBreachThreshold != nil {
		if cur, err = cur.WithEngulfedBreachThreshold(*p.EngulfedBreachThreshold); err != nil {
			return cur, err
		}
	}
	if p.PivotBreachTolerance != nil {
		if cur, err = cur.WithPivotBreachTolerance(*p.PivotBreachTolerance); err != nil {
			return cur, err
		}
	}
	if p.StaleExtensionThreshold != nil {
		if cur, err = cur.WithStaleExtensionThreshold(*p.StaleExtensionThreshold); err != nil {
			return cur, err
		}
	}
	if p.DominanceFactor != nil {
		if cur, err = cur.WithDominanceFactor(*p.DominanceFactor); err != nil {
			return cur, err
		}
	}
	if p.OriginRangePruneThreshold != nil {
		if cur, err = cur.WithOriginRangePruneThreshold(*p.OriginRangePruneThreshold); err != nil {
			return cur, err
		}
	}
	if p.OriginTimePruneThreshold != nil {
		if cur, err = cur.WithOriginTimePruneThreshold(*p.OriginTimePruneThreshold); err != nil {
			return cur, err
		}
	}
	return cur, nil
}

// UpdateDetectorConfig handles PATCH /sessions/:id/config/detector.
func (h *SessionHandler) UpdateDetectorConfig(c *gin.Context) {
	handle := c.Param("id")

	current, err := h.manager.GetDetectorConfig(handle)
	if err != nil {
		writeSessionError(c, err)
		return
	}

	var patch detectorConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg, err := patch.apply(current)
	if err != nil {
		writeConfigError(c, err)
		return
	}

	if err := h.manager.UpdateDetectionConfig(handle, cfg); err != nil {
		if errors.Is(err, usecase.ErrNotInitialized) {
			writeSessionError(c, err)
			return
		}
		writeConfigError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "detector config updated"})
}

// referenceConfigPatch binds partial updates to ReferenceConfig; unset
// fields leave the session's current value untouched.
type referenceConfigPatch struct {
	FormationFibThreshold      *float64 `json:"formation_fib_threshold"`
	SmallOriginTolerance       *float64 `json:"small_origin_tolerance"`
	BigTradeBreachTolerance    *float64 `json:"big_trade_breach_tolerance"`
	BigCloseBreachTolerance    *float64 `json:"big_close_breach_tolerance"`
	SignificantBinThreshold    *int     `json:"significant_bin_threshold"`
	TopN                       *int     `json:"top_n"`
	MinSwingsForClassification *int     `json:"min_swings_for_classification"`
	RecencyDecayBars           *float64 `json:"recency_decay_bars"`
	DepthDecayFactor           *float64 `json:"depth_decay_factor"`
	WindowDuration             *int64   `json:"window_duration"`
	RecomputeInterval          *int     `json:"recompute_interval"`
	DefaultMedian              *float64 `json:"default_median"`
	TrackingCap                *int     `json:"tracking_cap"`
}

func (p referenceConfigPatch) apply(base cfgpkg.ReferenceConfig) (cfgpkg.ReferenceConfig, error) {
	cur := base
	var err error
	if p.FormationFibThreshold != nil {
		if cur, err = cur.WithFormationFibThreshold(*p.FormationFibThreshold); err != nil {
			return cur, err
		}
	}
	if p.SmallOriginTolerance != nil {
		if cur, err = cur.WithSmallOriginTolerance(*p.SmallOriginTolerance); err != nil {
			return cur, err
		}
	}
	if p.BigTradeBreachTolerance != nil {
		if cur, err = cur.WithBigTradeBreachTolerance(*p.BigTradeBreachTolerance); err != nil {
			return cur, err
		}
	}
	if p.BigCloseBreachTolerance != nil {
		if cur, err = cur.WithBigCloseBreachTolerance(*p.BigCloseBreachTolerance); err != nil {
			return cur, err
		}
	}
	if p.SignificantBinThreshold != nil {
		if cur, err = cur.WithSignificantBinThreshold(*p.SignificantBinThreshold); err != nil {
			return cur, err
		}
	}
	if p.TopN != nil {
		if cur, err = cur.WithTopN(*p.TopN); err != nil {
			return cur, err
		}
	}
	if p.MinSwingsForClassification != nil {
		if cur, err = cur.WithMinSwingsForClassification(*p.MinSwingsForClassification); err != nil {
			return cur, err
		}
	}
	if p.RecencyDecayBars != nil {
		if cur, err = cur.WithRecencyDecayBars(*p.RecencyDecayBars); err != nil {
			return cur, err
		}
	}
	if p.DepthDecayFactor != nil {
		if cur, err = cur.WithDepthDecayFactor(*p.DepthDecayFactor); err != nil {
			return cur, err
		}
	}
	if p.WindowDuration != nil {
		if cur, err = cur.WithWindowDuration(*p.WindowDuration); err != nil {
			return cur, err
		}
	}
	if p.RecomputeInterval != nil {
		if cur, err = cur.WithRecomputeInterval(*p.RecomputeInterval); err != nil {
			return cur, err
		}
	}
	if p.DefaultMedian != nil {
		if cur, err = cur.WithDefaultMedian(*p.DefaultMedian); err != nil {
			return cur, err
		}
	}
	if p.TrackingCap != nil {
		if cur, err = cur.WithTrackingCap(*p.TrackingCap); err != nil {
			return cur, err
		}
	}
	return cur, nil
}

// UpdateReferenceConfig handles PATCH /sessions/:id/config/reference.
func (h *SessionHandler) UpdateReferenceConfig(c *gin.Context) {
	handle := c.Param("id")

	current, err := h.manager.GetReferenceConfig(handle)
	if err != nil {
		writeSessionError(c, err)
		return
	}

	var patch referenceConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg, err := patch.apply(current)
	if err != nil {
		writeConfigError(c, err)
		return
	}

	if err := h.manager.UpdateReferenceConfig(handle, cfg); err != nil {
		if errors.Is(err, usecase.ErrNotInitialized) {
			writeSessionError(c, err)
			return
		}
		writeConfigError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reference config updated"})
}

// GetReferenceState handles GET /sessions/:id/reference-state.
func (h *SessionHandler) GetReferenceState(c *gin.Context) {
	handle := c.Param("id")

	var atBarIndex *int64
	if raw := c.Query("bar_index"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bar_index must be an integer"})
			return
		}
		atBarIndex = &v
	}

	state, err := h.manager.GetReferenceState(handle, atBarIndex)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Track handles POST /sessions/:id/track/:legID.
func (h *SessionHandler) Track(c *gin.Context) {
	handle := c.Param("id")
	legID := c.Param("legID")

	if err := h.manager.Track(handle, legID); err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "leg tracked"})
}

// Untrack handles DELETE /sessions/:id/track/:legID.
func (h *SessionHandler) Untrack(c *gin.Context) {
	handle := c.Param("id")
	legID := c.Param("legID")

	if err := h.manager.Untrack(handle, legID); err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "leg untracked"})
}

// GetActiveLegs handles GET /sessions/:id/legs.
func (h *SessionHandler) GetActiveLegs(c *gin.Context) {
	handle := c.Param("id")

	legs, err := h.manager.GetActiveLegs(handle)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"legs": legs})
}

// GetLineage handles GET /sessions/:id/legs/:legID/lineage.
func (h *SessionHandler) GetLineage(c *gin.Context) {
	handle := c.Param("id")
	legID := c.Param("legID")

	ancestors, descendants, depth, err := h.manager.GetLineage(handle, legID)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ancestors":   ancestors,
		"descendants": descendants,
		"depth":       depth,
	})
}

func writeSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrNotInitialized):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, usecase.ErrIndexOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": "bar index out of range"})
	case errors.Is(err, usecase.ErrSessionUnusable):
		c.JSON(http.StatusConflict, gin.H{"error": "session is unusable after an internal detector error; reset it"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func writeConfigError(c *gin.Context, err error) {
	var validationErr *cfgpkg.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": validationErr.Errors})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
