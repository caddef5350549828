package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"foodsnap-core/internal/metrics"
	"foodsnap-core/internal/models"
	"foodsnap-core/internal/storage"
	"foodsnap-core/pkg/logging"
)

// PremiumKey is the storage key of the last SDK-confirmed premium flag
const PremiumKey = "isPremium"

// SubscriptionSDK is the purchases backend as seen by the premium services
type SubscriptionSDK interface {
	Configure(ctx context.Context, apiKey, appUserID string) error
	IsConfigured() bool
	CustomerInfo(ctx context.Context) (*models.CustomerInfo, error)
	Offerings(ctx context.Context) (*models.Offerings, error)
	PurchasePackage(ctx context.Context, pkg models.Package, receipt string) (*models.CustomerInfo, error)
	RestorePurchases(ctx context.Context) (*models.CustomerInfo, error)
	Subscribe(cb func(*models.CustomerInfo)) func()
}

// EntitlementStoreConfig configures the entitlement store
type EntitlementStoreConfig struct {
	APIKey        string
	AppUserID     string
	EntitlementID string
}

// EntitlementStore is the single source of truth for the premium flag.
// Updates from the backend are last-write-wins.
type EntitlementStore struct {
	sdk     SDKInitializer
	kv      storage.KV
	cfg     EntitlementStoreConfig
	metrics *metrics.Metrics
	now     func() time.Time

	// writeMu keeps each state change and its persisted copy in one step
	writeMu sync.Mutex

	mu          sync.RWMutex
	state       models.EntitlementState
	loading     bool
	unsubscribe func()
}

// SDKInitializer is the subset of SubscriptionSDK the store needs
type SDKInitializer interface {
	Configure(ctx context.Context, apiKey, appUserID string) error
	CustomerInfo(ctx context.Context) (*models.CustomerInfo, error)
	Subscribe(cb func(*models.CustomerInfo)) func()
}

// NewEntitlementStore creates a store in the unset, loading state
func NewEntitlementStore(sdk SDKInitializer, kv storage.KV, cfg EntitlementStoreConfig, m *metrics.Metrics) *EntitlementStore {
	if cfg.EntitlementID == "" {
		cfg.EntitlementID = "premium"
	}
	return &EntitlementStore{
		sdk:     sdk,
		kv:      kv,
		cfg:     cfg,
		metrics: m,
		now:     time.Now,
		state:   models.EntitlementState{Source: models.EntitlementSourceUnset},
		loading: true,
	}
}

// Initialize configures the backend and reads the entitlement. It never
// fails: any backend error falls back to the persisted flag, or false.
func (s *EntitlementStore) Initialize(ctx context.Context) {
	defer s.setLoading(false)

	if err := s.sdk.Configure(ctx, s.cfg.APIKey, s.cfg.AppUserID); err != nil {
		logging.Warnf("Purchases backend unavailable, using persisted premium flag: %v", err)
		s.fallback(ctx)
		return
	}

	s.mu.Lock()
	if s.unsubscribe == nil {
		s.unsubscribe = s.sdk.Subscribe(func(info *models.CustomerInfo) {
			s.adopt(context.Background(), info, "listener")
		})
	}
	s.mu.Unlock()

	info, err := s.sdk.CustomerInfo(ctx)
	if err != nil {
		logging.Warnf("Failed to read customer info, using persisted premium flag: %v", err)
		s.fallback(ctx)
		return
	}
	s.adopt(ctx, info, "initialize")
}

// Refresh re-reads the entitlement. A failed read leaves the value unchanged.
func (s *EntitlementStore) Refresh(ctx context.Context) models.EntitlementState {
	info, err := s.sdk.CustomerInfo(ctx)
	if err != nil {
		logging.Warnf("Entitlement refresh failed, keeping current value: %v", err)
		return s.State()
	}
	s.adopt(ctx, info, "refresh")
	return s.State()
}

// SetFromPurchaseResult adopts the customer info returned by a purchase or restore
func (s *EntitlementStore) SetFromPurchaseResult(ctx context.Context, info *models.CustomerInfo) {
	s.adopt(ctx, info, "purchase")
}

// IsPremium reports the current flag
func (s *EntitlementStore) IsPremium() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsPremium
}

// State returns a copy of the current state
func (s *EntitlementStore) State() models.EntitlementState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsLoading is true until Initialize returns
func (s *EntitlementStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Close removes the backend listener
func (s *EntitlementStore) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *EntitlementStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *EntitlementStore) adopt(ctx context.Context, info *models.CustomerInfo, trigger string) {
	if info == nil {
		return
	}
	premium := info.HasActiveEntitlement(s.cfg.EntitlementID)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.state = models.EntitlementState{
		IsPremium: premium,
		Source:    models.EntitlementSourceSDK,
		UpdatedAt: s.now(),
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.EntitlementUpdates.WithLabelValues(string(models.EntitlementSourceSDK), trigger).Inc()
	}
	logging.Infof("Premium status updated - premium: %t, trigger: %s", premium, trigger)

	if err := s.kv.Set(ctx, PremiumKey, strconv.FormatBool(premium)); err != nil {
		perr := &PersistenceError{Key: PremiumKey, Err: err}
		logging.Errorf("%v", perr)
		if s.metrics != nil {
			s.metrics.PersistenceFailures.Inc()
		}
	}
}

// fallback reads the persisted flag. It never writes: storage only holds
// values confirmed by the backend.
func (s *EntitlementStore) fallback(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	premium := false
	value, ok, err := s.kv.Get(ctx, PremiumKey)
	if err != nil {
		logging.Errorf("Failed to read persisted premium flag: %v", err)
	} else if ok {
		premium = value == "true"
	}

	s.mu.Lock()
	s.state = models.EntitlementState{
		IsPremium: premium,
		Source:    models.EntitlementSourceFallback,
		UpdatedAt: s.now(),
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.EntitlementUpdates.WithLabelValues(string(models.EntitlementSourceFallback), "initialize").Inc()
	}
}
