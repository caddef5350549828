package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"foodsnap-core/internal/database"
	"foodsnap-core/internal/models"
	"foodsnap-core/internal/revenuecat"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeSDK struct {
	mu sync.Mutex

	configureErr error
	configured   bool
	infos        []*models.CustomerInfo
	infoErr      error
	offerings    *models.Offerings
	purchaseInfo *models.CustomerInfo
	purchaseErr  error

	purchaseCalls int
	listeners     []func(*models.CustomerInfo)
}

func (f *fakeSDK) Configure(ctx context.Context, apiKey, appUserID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.configureErr != nil {
		return f.configureErr
	}
	f.configured = true
	return nil
}

func (f *fakeSDK) IsConfigured() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configured
}

// CustomerInfo returns the queued infos in order and repeats the last one
func (f *fakeSDK) CustomerInfo(ctx context.Context) (*models.CustomerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	if len(f.infos) == 0 {
		return nil, errors.New("no customer info")
	}
	info := f.infos[0]
	if len(f.infos) > 1 {
		f.infos = f.infos[1:]
	}
	return info, nil
}

func (f *fakeSDK) Offerings(ctx context.Context) (*models.Offerings, error) {
	if f.offerings == nil {
		return nil, errors.New("no offerings")
	}
	return f.offerings, nil
}

func (f *fakeSDK) PurchasePackage(ctx context.Context, pkg models.Package, receipt string) (*models.CustomerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purchaseCalls++
	if receipt == "" {
		return nil, revenuecat.ErrUserCancelled
	}
	return f.purchaseInfo, f.purchaseErr
}

func (f *fakeSDK) RestorePurchases(ctx context.Context) (*models.CustomerInfo, error) {
	return f.CustomerInfo(ctx)
}

func (f *fakeSDK) Subscribe(cb func(*models.CustomerInfo)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, cb)
	return func() {}
}

func (f *fakeSDK) push(info *models.CustomerInfo) {
	f.mu.Lock()
	cbs := append([]func(*models.CustomerInfo){}, f.listeners...)
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(info)
	}
}

func customerInfo(active ...string) *models.CustomerInfo {
	info := &models.CustomerInfo{
		AppUserID: "user-1",
		Entitlements: models.EntitlementInfos{
			All:    map[string]models.EntitlementInfo{},
			Active: map[string]models.EntitlementInfo{},
		},
	}
	for _, id := range active {
		e := models.EntitlementInfo{Identifier: id, IsActive: true}
		info.Entitlements.All[id] = e
		info.Entitlements.Active[id] = e
	}
	return info
}

// failingKV fails every operation
type failingKV struct{}

func (failingKV) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("storage offline")
}
func (failingKV) Set(ctx context.Context, key, value string) error { return errors.New("storage offline") }
func (failingKV) Remove(ctx context.Context, key string) error     { return errors.New("storage offline") }

type fakeContent struct {
	message string
	err     error
	calls   int
}

func (f *fakeContent) FetchMessage(ctx context.Context, userID string, meal models.MealType, language string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("%s for %s (%s)", f.message, meal, language), nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open("", dsn, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
