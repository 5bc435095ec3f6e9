package mongodb

import (
	"context"

	cfgpkg "swingref/domain/aggregate/config"
	"swingref/application/port"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const configCollectionName = "config_profiles"

// detectorConfigDocument mirrors DetectorConfig's fields as exported,
// bson-taggable values. DetectorConfig itself carries only unexported
// fields behind getters, so it cannot be handed to the driver directly;
// every write goes through its getters and every read is rebuilt through
// its With* builders so the document never bypasses Validate.
type detectorConfigDocument struct {
	Lookback                  int     `bson:"lookback"`
	MinLegRangeThreshold      float64 `bson:"min_leg_range_threshold"`
	EngulfedBreachThreshold   float64 `bson:"engulfed_breach_threshold"`
	PivotBreachTolerance      float64 `bson:"pivot_breach_tolerance"`
	StaleExtensionThreshold   int64   `bson:"stale_extension_threshold"`
	DominanceFactor           float64 `bson:"dominance_factor"`
	OriginRangePruneThreshold float64 `bson:"origin_range_prune_threshold"`
	OriginTimePruneThreshold  int64   `bson:"origin_time_prune_threshold"`
}

func toDetectorDocument(c cfgpkg.DetectorConfig) detectorConfigDocument {
	return detectorConfigDocument{
		Lookback:                  c.Lookback(),
		MinLegRangeThreshold:      c.MinLegRangeThreshold(),
		EngulfedBreachThreshold:   c.EngulfedBreachThreshold(),
		PivotBreachTolerance:      c.PivotBreachTolerance(),
		StaleExtensionThreshold:   c.StaleExtensionThreshold(),
		DominanceFactor:           c.DominanceFactor(),
		OriginRangePruneThreshold: c.OriginRangePruneThreshold(),
		OriginTimePruneThreshold:  c.OriginTimePruneThreshold(),
	}
}

func (d detectorConfigDocument) toConfig() (cfgpkg.DetectorConfig, error) {
	c := cfgpkg.DefaultDetectorConfig()
	var err error
	if c, err = c.WithLookback(d.Lookback); err != nil {
		return c, err
	}
	if c, err = c.WithMinLegRangeThreshold(d.MinLegRangeThreshold); err != nil {
		return c, err
	}
	if c, err = c.WithEngulfedBreachThreshold(d.EngulfedBreachThreshold); err != nil {
		return c, err
	}
	if c, err = c.WithPivotBreachTolerance(d.PivotBreachTolerance); err != nil {
		return c, err
	}
	if c, err = c.WithStaleExtensionThreshold(d.StaleExtensionThreshold); err != nil {
		return c, err
	}
	if c, err = c.WithDominanceFactor(d.DominanceFactor); err != nil {
		return c, err
	}
	if c, err = c.WithOriginRangePruneThreshold(d.OriginRangePruneThreshold); err != nil {
		return c, err
	}
	return c.WithOriginTimePruneThreshold(d.OriginTimePruneThreshold)
}

// referenceConfigDocument is ReferenceConfig's bson-taggable counterpart,
// for the same reason detectorConfigDocument exists.
type referenceConfigDocument struct {
	FormationFibThreshold      float64                `bson:"formation_fib_threshold"`
	SmallOriginTolerance       float64                `bson:"small_origin_tolerance"`
	BigTradeBreachTolerance    float64                `bson:"big_trade_breach_tolerance"`
	BigCloseBreachTolerance    float64                `bson:"big_close_breach_tolerance"`
	SignificantBinThreshold    int                    `bson:"significant_bin_threshold"`
	TopN                       int                    `bson:"top_n"`
	MinSwingsForClassification int                    `bson:"min_swings_for_classification"`
	RecencyDecayBars           float64                `bson:"recency_decay_bars"`
	DepthDecayFactor           float64                `bson:"depth_decay_factor"`
	WindowDuration             int64                  `bson:"window_duration"`
	RecomputeInterval          int                    `bson:"recompute_interval"`
	DefaultMedian              float64                `bson:"default_median"`
	TrackingCap                int                    `bson:"tracking_cap"`
	Weights                    cfgpkg.SalienceWeights `bson:"weights"`
}

func toReferenceDocument(c cfgpkg.ReferenceConfig) referenceConfigDocument {
	return referenceConfigDocument{
		FormationFibThreshold:      c.FormationFibThreshold(),
		SmallOriginTolerance:       c.SmallOriginTolerance(),
		BigTradeBreachTolerance:    c.BigTradeBreachTolerance(),
		BigCloseBreachTolerance:    c.BigCloseBreachTolerance(),
		SignificantBinThreshold:    c.SignificantBinThreshold(),
		TopN:                       c.TopN(),
		MinSwingsForClassification: c.MinSwingsForClassification(),
		RecencyDecayBars:           c.RecencyDecayBars(),
		DepthDecayFactor:           c.DepthDecayFactor(),
		WindowDuration:             c.WindowDuration(),
		RecomputeInterval:          c.RecomputeInterval(),
		DefaultMedian:              c.DefaultMedian(),
		TrackingCap:                c.TrackingCap(),
		Weights:                    c.Weights(),
	}
}

func (d referenceConfigDocument) toConfig() (cfgpkg.ReferenceConfig, error) {
	c := cfgpkg.DefaultReferenceConfig()
	var err error
	if c, err = c.WithFormationFibThreshold(d.FormationFibThreshold); err != nil {
		return c, err
	}
	if c, err = c.WithSmallOriginTolerance(d.SmallOriginTolerance); err != nil {
		return c, err
	}
	if c, err = c.WithBigTradeBreachTolerance(d.BigTradeBreachTolerance); err != nil {
		return c, err
	}
	if c, err = c.WithBigCloseBreachTolerance(d.BigCloseBreachTolerance); err != nil {
		return c, err
	}
	if c, err = c.WithSignificantBinThreshold(d.SignificantBinThreshold); err != nil {
		return c, err
	}
	if c, err = c.WithTopN(d.TopN); err != nil {
		return c, err
	}
	if c, err = c.WithMinSwingsForClassification(d.MinSwingsForClassification); err != nil {
		return c, err
	}
	if c, err = c.WithRecencyDecayBars(d.RecencyDecayBars); err != nil {
		return c, err
	}
	if c, err = c.WithDepthDecayFactor(d.DepthDecayFactor); err != nil {
		return c, err
	}
	if c, err = c.WithWindowDuration(d.WindowDuration); err != nil {
		return c, err
	}
	if c, err = c.WithRecomputeInterval(d.RecomputeInterval); err != nil {
		return c, err
	}
	if c, err = c.WithDefaultMedian(d.DefaultMedian); err != nil {
		return c, err
	}
	if c, err = c.WithWeights(d.Weights); err != nil {
		return c, err
	}
	return c.WithTrackingCap(d.TrackingCap)
}

type configProfileDocument struct {
	ID        string                  `bson:"_id"`
	Detector  detectorConfigDocument  `bson:"detector"`
	Reference referenceConfigDocument `bson:"reference"`
}

// ConfigProfileRepository implements port.ConfigProfileRepository over a
// MongoDB collection, one document per named profile.
type ConfigProfileRepository struct {
	collection *mongo.Collection
}

// NewConfigProfileRepository creates a new MongoDB-backed
// ConfigProfileRepository.
func NewConfigProfileRepository(client *mongo.Client, databaseName string) *ConfigProfileRepository {
	collection := client.Database(databaseName).Collection(configCollectionName)
	return &ConfigProfileRepository{collection: collection}
}

func toDocument(p port.ConfigProfile) configProfileDocument {
	return configProfileDocument{
		ID:        p.ID,
		Detector:  toDetectorDocument(p.Detector),
		Reference: toReferenceDocument(p.Reference),
	}
}

func (d configProfileDocument) toProfile() (port.ConfigProfile, error) {
	detector, err := d.Detector.toConfig()
	if err != nil {
		return port.ConfigProfile{}, err
	}
	reference, err := d.Reference.toConfig()
	if err != nil {
		return port.ConfigProfile{}, err
	}
	return port.ConfigProfile{ID: d.ID, Detector: detector, Reference: reference}, nil
}

// Create inserts a new profile document.
func (r *ConfigProfileRepository) Create(ctx context.Context, profile port.ConfigProfile) error {
	_, err := r.collection.InsertOne(ctx, toDocument(profile))
	return err
}

// Get retrieves a profile by id.
func (r *ConfigProfileRepository) Get(ctx context.Context, id string) (port.ConfigProfile, error) {
	var doc configProfileDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return port.ConfigProfile{}, port.ErrConfigProfileNotFound
		}
		return port.ConfigProfile{}, err
	}
	return doc.toProfile()
}

// GetAll retrieves every profile document.
func (r *ConfigProfileRepository) GetAll(ctx context.Context) ([]port.ConfigProfile, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var profiles []port.ConfigProfile
	for cursor.Next(ctx) {
		var doc configProfileDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		profile, err := doc.toProfile()
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

// Update replaces an existing profile document.
func (r *ConfigProfileRepository) Update(ctx context.Context, profile port.ConfigProfile) error {
	doc := toDocument(profile)
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": profile.ID}, doc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return port.ErrConfigProfileNotFound
	}
	return nil
}

// Delete removes a profile document by id.
func (r *ConfigProfileRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return port.ErrConfigProfileNotFound
	}
	return nil
}
